package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// Reconciler re-derives task statuses from stored feedback and progress. It
// repairs drift left by writes that happened outside the status engine.
type Reconciler struct {
	taskRepo     ports.TaskRepository
	feedbackRepo ports.FeedbackRepository
	progressRepo ports.ProgressRepository
	tx           ports.Transactor
	engine       *StatusEngine
	logger       *logger.Logger
}

// NewReconciler creates a new status reconciler
func NewReconciler(
	taskRepo ports.TaskRepository,
	feedbackRepo ports.FeedbackRepository,
	progressRepo ports.ProgressRepository,
	tx ports.Transactor,
	engine *StatusEngine,
	logger *logger.Logger,
) *Reconciler {
	return &Reconciler{
		taskRepo:     taskRepo,
		feedbackRepo: feedbackRepo,
		progressRepo: progressRepo,
		tx:           tx,
		engine:       engine,
		logger:       logger.WithComponent("reconciler"),
	}
}

// Reconcile walks every task and returns the number it repaired.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	var tasks []*entities.Task
	for offset := 0; ; offset += sweepPageSize {
		page, err := r.taskRepo.List(ctx, ports.TaskFilter{Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("reconcile: list tasks: %w", err)
		}
		tasks = append(tasks, page...)
		if len(page) < sweepPageSize {
			break
		}
	}

	repaired := 0
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		var changed bool
		err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			changed, err = r.reconcileTask(ctx, task)
			return err
		})
		if err != nil {
			return repaired, fmt.Errorf("reconcile task %s: %w", task.ID, err)
		}
		if changed {
			repaired++
			r.logger.Infow("Task status repaired", "task_id", task.ID, "status", task.Status)
		}
	}

	return repaired, nil
}

func (r *Reconciler) reconcileTask(ctx context.Context, task *entities.Task) (bool, error) {
	feedback, err := r.feedbackRepo.CountByTask(ctx, task.ID)
	if err != nil {
		return false, err
	}

	var ev entities.TaskEvent
	switch {
	case feedback > 0:
		ev = entities.FeedbackCreatedEvent()
	case task.Status == entities.TaskStatusReviewed:
		ev = entities.FeedbackDeletedEvent(0)
	default:
		progress, err := r.progressRepo.FindByInternAndTask(ctx, task.AssignedTo, task.ID)
		if errors.Is(err, entities.ErrProgressNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		next, ok := entities.StatusFromProgress(progress.Percentage, progress.Status)
		if !ok || statusRank(next) <= statusRank(task.Status) {
			return false, nil
		}
		ev = entities.ProgressRecordedEvent(progress.Percentage, progress.Status)
	}

	changed, err := r.engine.Transition(task, ev)
	if err != nil || !changed {
		return false, err
	}
	if err := r.taskRepo.Update(ctx, task); err != nil {
		return false, err
	}
	return true, nil
}

func statusRank(s entities.TaskStatus) int {
	switch s {
	case entities.TaskStatusInProgress:
		return 1
	case entities.TaskStatusCompleted:
		return 2
	case entities.TaskStatusReviewed:
		return 3
	default:
		return 0
	}
}
