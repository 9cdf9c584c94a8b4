package usecase

import "fmt"

// ValidationError reports malformed or out-of-policy input. Field names the
// offending input when the failure is attributable to one; it stays empty for
// deliberately generic messages that must not reveal which field conflicted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
