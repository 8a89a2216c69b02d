package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// ProgressService records interns' progress reports on their tasks
type ProgressService struct {
	progressRepo ports.ProgressRepository
	taskRepo     ports.TaskRepository
	userRepo     ports.UserRepository
	tx           ports.Transactor
	engine       *StatusEngine
	logger       *logger.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	progressRepo ports.ProgressRepository,
	taskRepo ports.TaskRepository,
	userRepo ports.UserRepository,
	tx ports.Transactor,
	engine *StatusEngine,
	logger *logger.Logger,
) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		tx:           tx,
		engine:       engine,
		logger:       logger.WithComponent("progress"),
		now:          utcNow,
	}
}

// RecordProgress creates or updates the (intern, task) progress record,
// appends a history entry and moves the task status accordingly.
func (s *ProgressService) RecordProgress(ctx context.Context, actor ports.Actor, req ports.RecordProgressRequest) (*entities.Progress, error) {
	internID := actor.ID
	if actor.IsAdmin() {
		if req.InternID == nil {
			return nil, fmt.Errorf("%w: intern_id is required", entities.ErrValidation)
		}
		internID = *req.InternID
	} else if req.InternID != nil && *req.InternID != actor.ID {
		return nil, entities.ErrForbidden
	}

	if req.Percentage != nil && (*req.Percentage < 0 || *req.Percentage > 100) {
		return nil, fmt.Errorf("%w: percentage must be between 0 and 100", entities.ErrValidation)
	}
	if req.Status != "" && !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown progress status %q", entities.ErrValidation, req.Status)
	}

	var progress *entities.Progress
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		task, err := s.taskRepo.GetByID(ctx, req.TaskID)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		if task.AssignedTo != internID {
			return entities.ErrNotAssignee
		}

		if err := reactivateIntern(ctx, s.userRepo, internID); err != nil {
			return err
		}

		now := s.now()
		progress, err = s.progressRepo.FindByInternAndTask(ctx, internID, task.ID)
		switch {
		case errors.Is(err, entities.ErrProgressNotFound):
			progress = &entities.Progress{
				InternID:  internID,
				TaskID:    task.ID,
				Status:    entities.ProgressStatusNotStarted,
				CreatedAt: now,
			}
			mergeProgress(progress, req)
			progress.UpdatedAt = now
			progress.Append(progress.Notes, progress.Percentage, now)
			if err := s.progressRepo.Create(ctx, progress); err != nil {
				return fmt.Errorf("failed to create progress: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to find progress: %w", err)
		default:
			mergeProgress(progress, req)
			progress.UpdatedAt = now
			progress.Append(stringValue(req.Notes), progress.Percentage, now)
			if err := s.progressRepo.Update(ctx, progress); err != nil {
				return fmt.Errorf("failed to update progress: %w", err)
			}
		}

		updated, err := s.engine.Apply(ctx, task.ID, entities.ProgressRecordedEvent(progress.Percentage, progress.Status))
		if err != nil {
			return err
		}
		progress.Task = updated.Ref()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Progress recorded",
		"intern_id", internID,
		"task_id", req.TaskID,
		"percentage", progress.Percentage,
	)
	return progress, nil
}

// ListByTask returns a task's progress records. Interns only get their own.
func (s *ProgressService) ListByTask(ctx context.Context, actor ports.Actor, taskID uuid.UUID) ([]*entities.Progress, error) {
	records, err := s.progressRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	if actor.IsAdmin() {
		return records, nil
	}

	own := make([]*entities.Progress, 0, len(records))
	for _, p := range records {
		if p.InternID == actor.ID {
			own = append(own, p)
		}
	}
	return own, nil
}

// ListByIntern returns every progress record of an intern
func (s *ProgressService) ListByIntern(ctx context.Context, actor ports.Actor, internID uuid.UUID) ([]*entities.Progress, error) {
	if !actor.IsAdmin() && actor.ID != internID {
		return nil, entities.ErrForbidden
	}

	records, err := s.progressRepo.ListByIntern(ctx, internID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

// mergeProgress copies the fields present in req onto p. A new percentage
// without an explicit status re-derives the status from it.
func mergeProgress(p *entities.Progress, req ports.RecordProgressRequest) {
	if req.Percentage != nil {
		p.Percentage = *req.Percentage
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	switch {
	case req.Status != "":
		p.Status = req.Status
	case req.Percentage != nil:
		p.Status = defaultProgressStatus(p.Percentage)
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func defaultProgressStatus(percentage int) entities.ProgressStatus {
	switch {
	case percentage >= 100:
		return entities.ProgressStatusCompleted
	case percentage > 0:
		return entities.ProgressStatusInProgress
	default:
		return entities.ProgressStatusNotStarted
	}
}
