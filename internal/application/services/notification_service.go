package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// NotificationService stores and serves per-user notifications
type NotificationService struct {
	repo   ports.NotificationRepository
	logger *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo ports.NotificationRepository, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.WithComponent("notifications"),
	}
}

// Emit persists a notification for its recipient
func (s *NotificationService) Emit(ctx context.Context, req ports.EmitNotificationRequest) (*entities.Notification, error) {
	n := &entities.Notification{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Link:        req.Link,
		Data:        req.Data,
		CreatedAt:   utcNow(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to emit notification: %w", err)
	}

	return n, nil
}

// Notify is Emit for side effects: a failure is logged and never returned.
func (s *NotificationService) Notify(ctx context.Context, req ports.EmitNotificationRequest) {
	if _, err := s.Emit(ctx, req); err != nil {
		s.logger.Warnw("Notification dropped",
			"error", err,
			"type", req.Type,
			"recipient_id", req.RecipientID,
		)
	}
}

// List returns the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, actor ports.Actor, filter ports.NotificationFilter) ([]*entities.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, actor.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor ports.Actor) (int64, error) {
	count, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor ports.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// Delete removes one of the caller's notifications
func (s *NotificationService) Delete(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor ports.Actor, id uuid.UUID) (*entities.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("notification lookup: %w", err)
	}
	if n.RecipientID != actor.ID {
		return nil, entities.ErrForbidden
	}
	return n, nil
}
