package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/ports"
)

const sweepPageSize = 500

// InactivitySweeper deactivates interns who have had no task reviewed within
// the threshold.
type InactivitySweeper struct {
	userRepo  ports.UserRepository
	taskRepo  ports.TaskRepository
	threshold time.Duration
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewInactivitySweeper creates a new inactivity sweeper
func NewInactivitySweeper(userRepo ports.UserRepository, taskRepo ports.TaskRepository, threshold time.Duration, m *metrics.Metrics, logger *logger.Logger) *InactivitySweeper {
	return &InactivitySweeper{
		userRepo:  userRepo,
		taskRepo:  taskRepo,
		threshold: threshold,
		metrics:   m,
		logger:    logger.WithComponent("inactivity_sweeper"),
	}
}

// Sweep checks every active intern against now and returns how many were
// set inactive.
func (s *InactivitySweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	interns, err := s.activeInterns(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-s.threshold)
	deactivated := 0
	for _, intern := range interns {
		if err := ctx.Err(); err != nil {
			return deactivated, err
		}

		latest, err := s.taskRepo.LatestReviewedByAssignee(ctx, intern.ID)
		switch {
		case errors.Is(err, entities.ErrTaskNotFound):
		case err != nil:
			return deactivated, fmt.Errorf("inactivity sweep: %w", err)
		case !latest.UpdatedAt.Before(cutoff):
			continue
		}

		if err := s.userRepo.UpdateStatus(ctx, intern.ID, entities.UserStatusInactive); err != nil {
			return deactivated, fmt.Errorf("inactivity sweep: %w", err)
		}
		deactivated++
		s.logger.Infow("Intern marked inactive", "intern_id", intern.ID)
	}

	s.metrics.InternsDeactivated(deactivated)
	return deactivated, nil
}

// activeInterns loads the full candidate set before any status is changed,
// so paging is not disturbed by the updates.
func (s *InactivitySweeper) activeInterns(ctx context.Context) ([]*entities.User, error) {
	role := entities.UserRoleIntern
	status := entities.UserStatusActive

	var all []*entities.User
	for offset := 0; ; offset += sweepPageSize {
		page, err := s.userRepo.List(ctx, ports.UserFilter{
			Role:   &role,
			Status: &status,
			Limit:  sweepPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("inactivity sweep: list interns: %w", err)
		}
		all = append(all, page...)
		if len(page) < sweepPageSize {
			return all, nil
		}
	}
}
