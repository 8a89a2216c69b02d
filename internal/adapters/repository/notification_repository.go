package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/ports"
)

const notificationColumns = `id, recipient_id, sender_id, type, title, message, link, is_read, data, created_at, updated_at`

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *entities.Notification) error {
	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Data == nil {
		n.Data = entities.NotificationData{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, q.Rebind(query),
		n.ID, n.RecipientID, n.SenderID, n.Type, n.Title, n.Message, n.Link,
		n.Read, n.Data, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

func (r *NotificationRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	var n entities.Notification
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &n, q.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}

	return &n, nil
}

func (r *NotificationRepositoryImpl) ListByRecipient(ctx context.Context, recipientID uuid.UUID, filter ports.NotificationFilter) ([]*entities.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	args := []interface{}{recipientID}
	if filter.UnreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	notifications := []*entities.Notification{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &notifications, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?`

	var count int64
	q := conn(ctx, r.db)
	if err := q.GetContext(ctx, &count, q.Rebind(query), recipientID, false); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET is_read = ?, updated_at = ? WHERE id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), true, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = ?, updated_at = ? WHERE recipient_id = ? AND is_read = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), true, time.Now().UTC(), recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return result.RowsAffected()
}

func (r *NotificationRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrNotificationNotFound
	}

	return nil
}
