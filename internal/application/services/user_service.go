package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// UserService handles user-related operations
type UserService struct {
	userRepo    ports.UserRepository
	taskRepo    ports.TaskRepository
	sweeper     *InactivitySweeper
	sweepOnList bool
	logger      *logger.Logger
}

// NewUserService creates a new user service. When sweepOnList is set, listings
// run the inactivity sweep first so statuses are current.
func NewUserService(userRepo ports.UserRepository, taskRepo ports.TaskRepository, sweeper *InactivitySweeper, sweepOnList bool, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		sweeper:     sweeper,
		sweepOnList: sweepOnList,
		logger:      logger.WithComponent("users"),
	}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers lists users with filtering and pagination
func (s *UserService) ListUsers(ctx context.Context, actor ports.Actor, filter ports.UserFilter) ([]*entities.User, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	s.maybeSweep(ctx)

	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	return users, total, nil
}

// ListInterns lists interns, each carrying the ids of its assigned tasks
func (s *UserService) ListInterns(ctx context.Context, actor ports.Actor, filter ports.UserFilter) ([]*entities.User, int64, error) {
	role := entities.UserRoleIntern
	filter.Role = &role

	interns, total, err := s.ListUsers(ctx, actor, filter)
	if err != nil {
		return nil, 0, err
	}

	for _, intern := range interns {
		ids, err := s.taskRepo.ListIDsByAssignee(ctx, intern.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load assigned tasks: %w", err)
		}
		intern.AssignedTasks = ids
	}

	return interns, total, nil
}

func (s *UserService) maybeSweep(ctx context.Context) {
	if !s.sweepOnList || s.sweeper == nil {
		return
	}
	if _, err := s.sweeper.Sweep(ctx, utcNow()); err != nil {
		s.logger.Warnw("Inactivity sweep before listing failed", "error", err)
	}
}
