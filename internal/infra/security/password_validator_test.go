package security

import (
	"errors"
	"testing"
)

func assertViolation(t *testing.T, validator *PasswordValidator, password, expectedCode string) {
	t.Helper()

	err := validator.Validate(password)
	if err == nil {
		t.Fatalf("expected validation error %s for %q", expectedCode, password)
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != expectedCode {
		t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
	}
}

func TestPolicyValidatorAcceptsStrongPassword(t *testing.T) {
	validator := PolicyValidator(8, 2)

	if err := validator.Validate("C0mplex!Passphrase#2025"); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestPolicyValidatorViolations(t *testing.T) {
	validator := PolicyValidator(8, 2)

	assertViolation(t, validator, "Ab1!", "min_length")
	assertViolation(t, validator, "12345678", "letter")
	assertViolation(t, validator, "password", "weak_password")
}

func TestPolicyValidatorUsesIdentityInputs(t *testing.T) {
	validator := PolicyValidator(8, 3, "jonathan.archer", "jonathan.archer@example.com")

	assertViolation(t, validator, "jonathan.archer", "weak_password")
}

func TestRequireDifferentFrom(t *testing.T) {
	validator := NewPasswordValidator(RequireDifferentFrom("old-password"))

	assertViolation(t, validator, "old-password", "different")
	if err := validator.Validate("new-password"); err != nil {
		t.Fatalf("expected different password to pass, got %v", err)
	}
}
