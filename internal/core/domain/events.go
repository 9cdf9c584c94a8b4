package domain

import "time"

// UserRegisteredEvent represents the payload for taskhub.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	Role         Role
	RegisteredAt time.Time
}

// UserLoggedInEvent represents the payload for taskhub.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID  string
	UserID   string
	LoggedAt time.Time
	IP       string
}

// PasswordChangedEvent represents the payload for taskhub.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
}

// TaskCompletionToggledEvent represents the payload for taskhub.task.completion.toggled messages.
type TaskCompletionToggledEvent struct {
	EventID   string
	TaskID    string
	UserID    string
	Completed bool
	ToggledAt time.Time
}
