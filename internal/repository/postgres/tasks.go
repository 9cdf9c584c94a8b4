package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/repository"
)

var taskColumns = []string{
	"id",
	"user_id",
	"title",
	"description",
	"completed",
	"priority",
	"due_date",
	"created_at",
	"updated_at",
}

// priorityOrderExpr maps the textual priority to its rank so ordering by
// priority compares LOW < MEDIUM < HIGH instead of alphabetically.
const priorityOrderExpr = "CASE priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 END"

// TaskRepository implements port.TaskRepository using PostgreSQL.
type TaskRepository struct {
	pool    PoolIface
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTaskRepository wires a PostgreSQL-backed task repository.
func NewTaskRepository(pool PoolIface) *TaskRepository {
	return &TaskRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *TaskRepository) WithTx(tx pgx.Tx) *TaskRepository {
	if tx == nil {
		return r
	}
	return &TaskRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new task row.
func (r *TaskRepository) Create(ctx context.Context, task domain.Task) error {
	stmt, args, err := r.builder.Insert("taskhub.tasks").
		Columns(taskColumns...).
		Values(
			task.ID,
			task.UserID,
			task.Title,
			task.Description,
			task.Completed,
			task.Priority,
			task.DueDate,
			task.CreatedAt,
			task.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert task sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert task: %w", mapWriteError(err))
	}

	return nil
}

// GetByID retrieves a task by identifier regardless of owner; ownership checks
// live above this layer.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	stmt, args, err := r.builder.
		Select(taskColumns...).
		From("taskhub.tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select task sql: %w", err)
	}

	return r.scanTask(r.exec.QueryRow(ctx, stmt, args...))
}

// List returns tasks matching the filter. Overdue selection is evaluated
// against filter.Now so a task sitting exactly on the boundary lands on one
// side consistently, and the negated form is the exact complement.
func (r *TaskRepository) List(ctx context.Context, filter port.TaskFilter) ([]domain.Task, error) {
	query := r.builder.Select(taskColumns...).From("taskhub.tasks")

	if filter.OwnerID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.OwnerID})
	}
	if filter.Completed != nil {
		query = query.Where(squirrel.Eq{"completed": *filter.Completed})
	}
	if filter.Priority != nil {
		query = query.Where(squirrel.Eq{"priority": *filter.Priority})
	}
	if filter.CreatedAfter != nil {
		query = query.Where(squirrel.GtOrEq{"created_at": *filter.CreatedAfter})
	}
	if filter.CreatedBefore != nil {
		query = query.Where(squirrel.LtOrEq{"created_at": *filter.CreatedBefore})
	}
	if filter.DueAfter != nil {
		query = query.Where(squirrel.GtOrEq{"due_date": *filter.DueAfter})
	}
	if filter.DueBefore != nil {
		query = query.Where(squirrel.LtOrEq{"due_date": *filter.DueBefore})
	}
	if filter.Overdue != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		if *filter.Overdue {
			query = query.Where(squirrel.And{
				squirrel.Lt{"due_date": now},
				squirrel.Eq{"completed": false},
			})
		} else {
			query = query.Where(squirrel.Or{
				squirrel.GtOrEq{"due_date": now},
				squirrel.Eq{"due_date": nil},
				squirrel.Eq{"completed": true},
			})
		}
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	query = query.OrderBy(orderClause(filter))

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tasks sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var (
			task    domain.Task
			dueDate *time.Time
		)
		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Description,
			&task.Completed,
			&task.Priority,
			&dueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.DueDate = dueDate
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

func orderClause(filter port.TaskFilter) string {
	column := string(port.TaskOrderCreatedAt)
	if filter.OrderBy.IsValid() {
		column = string(filter.OrderBy)
	}
	if filter.OrderBy == port.TaskOrderPriority {
		column = priorityOrderExpr
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	return column + " " + direction
}

// Update applies the non-nil fields of the patch and returns the updated row.
// updated_at is assigned here so every mutation path stamps it exactly once.
func (r *TaskRepository) Update(ctx context.Context, id string, patch port.TaskPatch) (*domain.Task, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	query := r.builder.Update("taskhub.tasks").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + returningColumns())

	if patch.Title != nil {
		query = query.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		query = query.Set("description", *patch.Description)
	}
	if patch.Completed != nil {
		query = query.Set("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		query = query.Set("priority", *patch.Priority)
	}
	if patch.ClearDueDate {
		query = query.Set("due_date", nil)
	} else if patch.DueDate != nil {
		query = query.Set("due_date", *patch.DueDate)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update task sql: %w", err)
	}

	return r.scanTask(r.exec.QueryRow(ctx, stmt, args...))
}

// Delete removes a task row.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("taskhub.tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete task sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ToggleCompleted flips the completion flag atomically in the database, so
// concurrent toggles serialize on the row instead of losing an update to a
// read-modify-write race.
func (r *TaskRepository) ToggleCompleted(ctx context.Context, id string) (*domain.Task, error) {
	stmt := `UPDATE taskhub.tasks
		SET completed = NOT completed, updated_at = $2
		WHERE id = $1
		RETURNING ` + returningColumns()

	return r.scanTask(r.exec.QueryRow(ctx, stmt, id, time.Now().UTC()))
}

// Stats aggregates task counters in one pass over the visible rows. An empty
// ownerID widens the scope to the whole table (admin view). Completed tasks
// never count as overdue no matter how old the due date is.
func (r *TaskRepository) Stats(ctx context.Context, ownerID string, now time.Time) (domain.TaskStats, error) {
	stmt := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE completed) AS completed,
		COUNT(*) FILTER (WHERE NOT completed) AS pending,
		COUNT(*) FILTER (WHERE NOT completed AND due_date IS NOT NULL AND due_date < $2) AS overdue
	FROM taskhub.tasks
	WHERE ($1 = '' OR user_id = $1)`

	var total, completed, pending, overdue int64
	if err := r.exec.QueryRow(ctx, stmt, ownerID, now).Scan(
		&total,
		&completed,
		&pending,
		&overdue,
	); err != nil {
		return domain.TaskStats{}, fmt.Errorf("query task stats: %w", err)
	}

	stats := domain.TaskStats{
		Total:     int(total),
		Completed: int(completed),
		Pending:   int(pending),
		Overdue:   int(overdue),
	}
	if stats.Total > 0 {
		stats.CompletionRate = roundRate(float64(stats.Completed) / float64(stats.Total) * 100)
	}

	return stats, nil
}

// roundRate rounds a percentage to two decimal places.
func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}

// DeleteByOwnerTx removes every task belonging to the owner inside the
// supplied transaction and reports how many rows went.
func (r *TaskRepository) DeleteByOwnerTx(ctx context.Context, tx pgx.Tx, ownerID string) (int, error) {
	stmt, args, err := r.builder.Delete("taskhub.tasks").
		Where(squirrel.Eq{"user_id": ownerID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete tasks by owner sql: %w", err)
	}

	ct, err := r.WithTx(tx).exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete tasks by owner: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func returningColumns() string {
	return "id, user_id, title, description, completed, priority, due_date, created_at, updated_at"
}

func (r *TaskRepository) scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task    domain.Task
		dueDate *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.Priority,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.DueDate = dueDate

	return &task, nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
