package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/infra/config"
	"github.com/arklim/taskhub/internal/infra/logger"
	"github.com/arklim/taskhub/internal/repository"
)

const maxTitleLength = 255

// TaskDraft carries the payload for creating a task. Zero-value Priority
// defaults to MEDIUM.
type TaskDraft struct {
	Title       string
	Description string
	Priority    domain.Priority
	DueDate     *time.Time
}

// TaskService applies the authorization policy on top of task persistence.
// It distinguishes ErrForbidden from ErrNotFound; the HTTP layer may collapse
// the two to avoid leaking task existence.
type TaskService struct {
	cfg    *config.AppConfig
	tasks  port.TaskRepository
	events port.EventPublisher
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(cfg *config.AppConfig, tasks port.TaskRepository, events port.EventPublisher) *TaskService {
	return &TaskService{cfg: cfg, tasks: tasks, events: events}
}

// Create persists a new task owned by the principal. Ownership always comes
// from the authenticated identity, never from the payload.
func (s *TaskService) Create(ctx context.Context, p domain.Principal, draft TaskDraft) (domain.Task, error) {
	if !domain.Can(p, domain.ActionTaskCreate, "") {
		return domain.Task{}, ErrForbidden
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Task{}, newValidationError("title", "title is required")
	}
	if len(title) > maxTitleLength {
		return domain.Task{}, newValidationError("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	priority := draft.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return domain.Task{}, newValidationError("priority", "priority must be LOW, MEDIUM, or HIGH")
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:          uuid.NewString(),
		UserID:      p.ID,
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Completed:   false,
		Priority:    priority,
		DueDate:     draft.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// Get returns a single task if the principal may read it.
func (s *TaskService) Get(ctx context.Context, p domain.Principal, taskID string) (domain.Task, error) {
	task, err := s.authorize(ctx, p, taskID, domain.ActionTaskRead)
	if err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

// List returns tasks visible to the principal. Regular users are always
// scoped to their own tasks regardless of requested filters; administrators
// see the whole table.
func (s *TaskService) List(ctx context.Context, p domain.Principal, filter port.TaskFilter) ([]domain.Task, error) {
	if !domain.Can(p, domain.ActionTaskList, "") {
		return nil, ErrForbidden
	}

	if !p.IsAdmin() {
		filter.OwnerID = p.ID
	}

	if filter.Priority != nil && !filter.Priority.IsValid() {
		return nil, newValidationError("priority", "priority must be LOW, MEDIUM, or HIGH")
	}
	if filter.OrderBy != "" && !filter.OrderBy.IsValid() {
		return nil, newValidationError("order_by", "unsupported ordering column")
	}
	if filter.Limit <= 0 || filter.Limit > s.cfg.Tasks.MaxPageSize {
		filter.Limit = s.cfg.Tasks.DefaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Now.IsZero() {
		filter.Now = time.Now().UTC()
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Update applies a partial task update. An empty patch is a no-op that
// returns the current state without touching updated_at.
func (s *TaskService) Update(ctx context.Context, p domain.Principal, taskID string, patch port.TaskPatch) (domain.Task, error) {
	if _, err := s.authorize(ctx, p, taskID, domain.ActionTaskUpdate); err != nil {
		return domain.Task{}, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Task{}, newValidationError("title", "title cannot be empty")
		}
		if len(title) > maxTitleLength {
			return domain.Task{}, newValidationError("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
		}
		patch.Title = &title
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		return domain.Task{}, newValidationError("priority", "priority must be LOW, MEDIUM, or HIGH")
	}
	if patch.DueDate != nil && patch.ClearDueDate {
		return domain.Task{}, newValidationError("due_date", "cannot both set and clear the due date")
	}

	updated, err := s.tasks.Update(ctx, taskID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}

	return *updated, nil
}

// Delete removes a task the principal owns or administers.
func (s *TaskService) Delete(ctx context.Context, p domain.Principal, taskID string) error {
	if _, err := s.authorize(ctx, p, taskID, domain.ActionTaskDelete); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	return nil
}

// ToggleCompleted atomically flips the completion flag. Two sequential
// toggles restore the original state; concurrent toggles interleave without
// lost updates because the flip happens in storage.
func (s *TaskService) ToggleCompleted(ctx context.Context, p domain.Principal, taskID string) (domain.Task, error) {
	if _, err := s.authorize(ctx, p, taskID, domain.ActionTaskUpdate); err != nil {
		return domain.Task{}, err
	}

	toggled, err := s.tasks.ToggleCompleted(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, fmt.Errorf("toggle task: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishTaskCompletionToggled(ctx, domain.TaskCompletionToggledEvent{
			EventID:   uuid.NewString(),
			TaskID:    toggled.ID,
			UserID:    toggled.UserID,
			Completed: toggled.Completed,
			ToggledAt: toggled.UpdatedAt,
		}); err != nil {
			logger.WithContext(ctx).Warn("publish toggle event failed", zap.Error(err))
		}
	}

	return *toggled, nil
}

// authorize loads the task and checks the policy against its owner.
func (s *TaskService) authorize(ctx context.Context, p domain.Principal, taskID string, action domain.Action) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if !domain.Can(p, action, task.UserID) {
		return nil, ErrForbidden
	}

	return task, nil
}
