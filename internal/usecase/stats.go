package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
)

// StatsService aggregates task counts over the caller's visible task set.
type StatsService struct {
	tasks port.TaskRepository
}

// NewStatsService constructs a StatsService instance.
func NewStatsService(tasks port.TaskRepository) *StatsService {
	return &StatsService{tasks: tasks}
}

// Summary computes totals, completion, and overdue counts over the same
// visible set List uses: regular users aggregate over their own tasks,
// administrators over all tasks. Overdue tasks are always counted inside
// pending, so total = completed + pending always holds.
func (s *StatsService) Summary(ctx context.Context, p domain.Principal) (domain.TaskStats, error) {
	if !domain.Can(p, domain.ActionStatsRead, "") {
		return domain.TaskStats{}, ErrForbidden
	}

	ownerID := p.ID
	if p.IsAdmin() {
		ownerID = ""
	}

	stats, err := s.tasks.Stats(ctx, ownerID, time.Now().UTC())
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	return stats, nil
}
