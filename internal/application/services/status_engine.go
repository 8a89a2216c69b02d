package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/ports"
)

// StatusEngine applies task events and persists the derived status. It is the
// only writer of tasks.status.
type StatusEngine struct {
	taskRepo ports.TaskRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewStatusEngine creates a new status engine
func NewStatusEngine(taskRepo ports.TaskRepository, m *metrics.Metrics, logger *logger.Logger) *StatusEngine {
	return &StatusEngine{
		taskRepo: taskRepo,
		metrics:  m,
		logger:   logger.WithComponent("status_engine"),
		now:      utcNow,
	}
}

// Apply loads the task, applies ev and writes the task back when it changed.
// Call it with a transactional context to keep it atomic with the write that
// caused the event.
func (e *StatusEngine) Apply(ctx context.Context, taskID uuid.UUID, ev entities.TaskEvent) (*entities.Task, error) {
	task, err := e.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("status engine: %w", err)
	}

	changed, err := e.Transition(task, ev)
	if err != nil {
		return nil, err
	}
	if !changed {
		return task, nil
	}

	if err := e.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("status engine: persist task: %w", err)
	}
	return task, nil
}

// Transition applies ev to an already loaded task without persisting it.
func (e *StatusEngine) Transition(task *entities.Task, ev entities.TaskEvent) (bool, error) {
	from := task.Status
	now := e.now()

	changed, err := entities.ApplyTaskEvent(task, ev, now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	task.UpdatedAt = now
	if task.Status != from {
		e.metrics.StatusTransition(string(ev.Kind), string(from), string(task.Status))
		e.logger.Debugw("Task status changed",
			"task_id", task.ID,
			"event", ev.Kind,
			"from", from,
			"to", task.Status,
		)
	}
	return true, nil
}
