package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/ports"
)

// FeedbackService manages admin feedback on interns' tasks
type FeedbackService struct {
	feedbackRepo ports.FeedbackRepository
	taskRepo     ports.TaskRepository
	userRepo     ports.UserRepository
	tx           ports.Transactor
	engine       *StatusEngine
	notifier     *NotificationService
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time

	cleanups sync.WaitGroup
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(
	feedbackRepo ports.FeedbackRepository,
	taskRepo ports.TaskRepository,
	userRepo ports.UserRepository,
	tx ports.Transactor,
	engine *StatusEngine,
	notifier *NotificationService,
	m *metrics.Metrics,
	logger *logger.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		tx:           tx,
		engine:       engine,
		notifier:     notifier,
		metrics:      m,
		logger:       logger.WithComponent("feedback"),
		now:          utcNow,
	}
}

// ListFeedback returns every feedback record whose task still exists,
// optionally for one intern. Orphaned records are removed in the background.
func (s *FeedbackService) ListFeedback(ctx context.Context, actor ports.Actor, internID *uuid.UUID) ([]*entities.Feedback, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, ports.FeedbackFilter{InternID: internID})
}

// GetFeedback returns one feedback record. An orphaned record is reported as
// not found and removed.
func (s *FeedbackService) GetFeedback(ctx context.Context, actor ports.Actor, id uuid.UUID) (*entities.Feedback, error) {
	records, err := s.list(ctx, ports.FeedbackFilter{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, entities.ErrFeedbackNotFound
	}

	fb := records[0]
	if !actor.IsAdmin() && fb.InternID != actor.ID {
		return nil, entities.ErrForbidden
	}
	return fb, nil
}

// ListByTask returns the feedback on one task. Interns only see their own.
func (s *FeedbackService) ListByTask(ctx context.Context, actor ports.Actor, taskID uuid.UUID) ([]*entities.Feedback, error) {
	filter := ports.FeedbackFilter{TaskID: &taskID}
	if !actor.IsAdmin() {
		filter.InternID = &actor.ID
	}
	return s.list(ctx, filter)
}

// InternSummary returns an intern's feedback with the average rating
func (s *FeedbackService) InternSummary(ctx context.Context, actor ports.Actor, internID uuid.UUID) (*ports.InternFeedbackSummary, error) {
	if !actor.IsAdmin() && actor.ID != internID {
		return nil, entities.ErrForbidden
	}

	records, err := s.list(ctx, ports.FeedbackFilter{InternID: &internID})
	if err != nil {
		return nil, err
	}

	return &ports.InternFeedbackSummary{
		InternID:      internID,
		Feedback:      records,
		Count:         len(records),
		AverageRating: entities.AverageRating(records),
	}, nil
}

// CreateFeedback stores feedback, marks the task reviewed and notifies the
// intern.
func (s *FeedbackService) CreateFeedback(ctx context.Context, actor ports.Actor, req ports.CreateFeedbackRequest) (*entities.Feedback, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	category := req.Category
	if category == "" {
		category = entities.FeedbackCategoryOverall
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown feedback category %q", entities.ErrValidation, category)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", entities.ErrValidation)
	}

	var (
		fb   *entities.Feedback
		task *entities.Task
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.taskRepo.GetByID(ctx, req.TaskID)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		if _, err := s.userRepo.GetByID(ctx, req.InternID); err != nil {
			return fmt.Errorf("failed to get intern: %w", err)
		}
		if task.AssignedTo != req.InternID {
			return entities.ErrNotAssignee
		}

		now := s.now()
		fb = &entities.Feedback{
			TaskID:    task.ID,
			InternID:  req.InternID,
			GivenByID: actor.ID,
			Rating:    req.Rating,
			Comment:   req.Comment,
			Category:  category,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.feedbackRepo.Create(ctx, fb); err != nil {
			return fmt.Errorf("failed to create feedback: %w", err)
		}

		task, err = s.engine.Apply(ctx, task.ID, entities.FeedbackCreatedEvent())
		return err
	})
	if err != nil {
		return nil, err
	}
	fb.Task = task.Ref()

	s.logger.Infow("Feedback created", "feedback_id", fb.ID, "task_id", task.ID, "rating", fb.Rating)

	s.notifier.Notify(ctx, ports.EmitNotificationRequest{
		RecipientID: fb.InternID,
		SenderID:    &actor.ID,
		Type:        entities.NotificationFeedbackReceived,
		Title:       "New feedback received",
		Message:     fmt.Sprintf("You received a %d-star rating on %q", fb.Rating, task.Title),
		Link:        "/feedback/" + fb.ID.String(),
		Data: entities.NotificationData{
			"feedback_id": fb.ID.String(),
			"task_id":     task.ID.String(),
			"task_title":  task.Title,
			"rating":      fb.Rating,
		},
	})

	return fb, nil
}

// UpdateFeedback edits rating, comment or category. The task status is not
// touched.
func (s *FeedbackService) UpdateFeedback(ctx context.Context, actor ports.Actor, id uuid.UUID, req ports.UpdateFeedbackRequest) (*entities.Feedback, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	fb, err := s.feedbackRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, fmt.Errorf("%w: rating must be between 1 and 5", entities.ErrValidation)
		}
		fb.Rating = *req.Rating
	}
	if req.Comment != nil {
		fb.Comment = *req.Comment
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return nil, fmt.Errorf("%w: unknown feedback category %q", entities.ErrValidation, *req.Category)
		}
		fb.Category = *req.Category
	}
	fb.UpdatedAt = s.now()

	if err := s.feedbackRepo.Update(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}

	data := entities.NotificationData{
		"feedback_id": fb.ID.String(),
		"task_id":     fb.TaskID.String(),
		"rating":      fb.Rating,
	}
	title := "your task"
	if fb.Task != nil {
		title = fmt.Sprintf("%q", fb.Task.Title)
		data["task_title"] = fb.Task.Title
	}
	s.notifier.Notify(ctx, ports.EmitNotificationRequest{
		RecipientID: fb.InternID,
		SenderID:    &actor.ID,
		Type:        entities.NotificationFeedbackUpdated,
		Title:       "Feedback updated",
		Message:     "Feedback on " + title + " has been updated",
		Link:        "/feedback/" + fb.ID.String(),
		Data:        data,
	})

	return fb, nil
}

// DeleteFeedback removes a feedback record. Once a task has no feedback left
// it drops back to completed.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fb, err := s.feedbackRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get feedback: %w", err)
		}
		if err := s.feedbackRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}

		remaining, err := s.feedbackRepo.CountByTask(ctx, fb.TaskID)
		if err != nil {
			return fmt.Errorf("failed to count feedback: %w", err)
		}

		_, err = s.engine.Apply(ctx, fb.TaskID, entities.FeedbackDeletedEvent(int(remaining)))
		if errors.Is(err, entities.ErrTaskNotFound) {
			// orphaned feedback: nothing to revert
			return nil
		}
		return err
	})
}

// Wait blocks until background orphan cleanups have finished.
func (s *FeedbackService) Wait() {
	s.cleanups.Wait()
}

func (s *FeedbackService) list(ctx context.Context, filter ports.FeedbackFilter) ([]*entities.Feedback, error) {
	records, err := s.feedbackRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	valid := make([]*entities.Feedback, 0, len(records))
	var orphaned []uuid.UUID
	for _, fb := range records {
		if fb.IsOrphaned() {
			orphaned = append(orphaned, fb.ID)
			continue
		}
		valid = append(valid, fb)
	}

	if len(orphaned) > 0 {
		s.removeOrphans(context.WithoutCancel(ctx), orphaned)
	}
	return valid, nil
}

// removeOrphans deletes feedback whose task is gone. It never blocks or fails
// the read that found them.
func (s *FeedbackService) removeOrphans(ctx context.Context, ids []uuid.UUID) {
	s.cleanups.Add(1)
	go func() {
		defer s.cleanups.Done()

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		n, err := s.feedbackRepo.DeleteByIDs(ctx, ids)
		if err != nil {
			s.logger.Warnw("Orphaned feedback cleanup failed", "error", err, "count", len(ids))
			return
		}
		s.metrics.OrphansRemoved(n)
		s.logger.Infow("Removed orphaned feedback", "count", n)
	}()
}
