package domain

import "time"

// Priority enumerates task priority levels.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid reports whether the priority is one of the known values.
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Weight orders priorities so HIGH sorts above MEDIUM above LOW.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// TaskStatus is the read-only state derived from completion and due date.
type TaskStatus string

const (
	TaskStatusCompleted TaskStatus = "Completed"
	TaskStatusOverdue   TaskStatus = "Overdue"
	TaskStatusPending   TaskStatus = "Pending"
)

// Task mirrors the persisted representation in the tasks table.
// UserID is the immutable owner reference; ownership never transfers.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOverdue reports whether the task has a due date in the past and is not
// completed, evaluated against the supplied reference time.
func (t Task) IsOverdue(at time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	return at.After(*t.DueDate)
}

// Status derives the presentation state from completion and overdue flags.
func (t Task) Status(at time.Time) TaskStatus {
	switch {
	case t.Completed:
		return TaskStatusCompleted
	case t.IsOverdue(at):
		return TaskStatusOverdue
	default:
		return TaskStatusPending
	}
}

// TaskStats aggregates counts over a principal's visible task set.
// CompletionRate is completed/total*100 rounded to two decimals, zero when
// the set is empty.
type TaskStats struct {
	Total          int
	Completed      int
	Pending        int
	Overdue        int
	CompletionRate float64
}
