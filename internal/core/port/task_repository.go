package port

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arklim/taskhub/internal/core/domain"
)

// TaskOrder enumerates supported list orderings.
type TaskOrder string

const (
	TaskOrderCreatedAt TaskOrder = "created_at"
	TaskOrderUpdatedAt TaskOrder = "updated_at"
	TaskOrderDueDate   TaskOrder = "due_date"
	TaskOrderPriority  TaskOrder = "priority"
)

// IsValid reports whether the ordering column is supported.
func (o TaskOrder) IsValid() bool {
	switch o {
	case TaskOrderCreatedAt, TaskOrderUpdatedAt, TaskOrderDueDate, TaskOrderPriority:
		return true
	default:
		return false
	}
}

// TaskFilter narrows a task listing. OwnerID empty means the whole table
// (admin scope); callers derive it from the authorization policy, never from
// client input.
type TaskFilter struct {
	OwnerID       string
	Completed     *bool
	Priority      *domain.Priority
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	DueAfter      *time.Time
	DueBefore     *time.Time
	Overdue       *bool
	Now           time.Time
	Search        string
	OrderBy       TaskOrder
	Ascending     bool
	Limit         int
	Offset        int
}

// TaskPatch carries partial-update semantics: nil fields retain prior values.
// ClearDueDate distinguishes "set due_date to null" from "leave unchanged".
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	Priority     *domain.Priority
	DueDate      *time.Time
	ClearDueDate bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// TaskRepository exposes persistence behavior for tasks. All mutations assign
// updated_at inside the repository so the timestamp has a single source.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	ToggleCompleted(ctx context.Context, id string) (*domain.Task, error)
	Stats(ctx context.Context, ownerID string, now time.Time) (domain.TaskStats, error)
	DeleteByOwnerTx(ctx context.Context, tx pgx.Tx, ownerID string) (int, error)
}
