package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
)

// Transactor runs fn inside a database transaction. Repositories called with
// the context passed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.UserStatus) error
	List(ctx context.Context, filter UserFilter) ([]*entities.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	// ListIDsByAssignee returns the ids of every task assigned to the intern,
	// which replaces a stored per-user task list.
	ListIDsByAssignee(ctx context.Context, internID uuid.UUID) ([]uuid.UUID, error)
	// LatestReviewedByAssignee returns the most recently updated reviewed task
	// of the intern, or ErrTaskNotFound.
	LatestReviewedByAssignee(ctx context.Context, internID uuid.UUID) (*entities.Task, error)
}

// ProgressRepository defines the interface for progress data operations
type ProgressRepository interface {
	Create(ctx context.Context, progress *entities.Progress) error
	Update(ctx context.Context, progress *entities.Progress) error
	// FindByInternAndTask returns ErrProgressNotFound when the pair has no record.
	FindByInternAndTask(ctx context.Context, internID, taskID uuid.UUID) (*entities.Progress, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entities.Progress, error)
	ListByIntern(ctx context.Context, internID uuid.UUID) ([]*entities.Progress, error)
}

// FeedbackRepository defines the interface for feedback data operations.
// List methods populate Task, Intern and GivenBy; Task stays nil when the
// task no longer exists.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entities.Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Feedback, error)
	Update(ctx context.Context, feedback *entities.Feedback) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
	CountByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
	List(ctx context.Context, filter FeedbackFilter) ([]*entities.Feedback, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, filter NotificationFilter) ([]*entities.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Filter types for repository queries
type UserFilter struct {
	Role   *entities.UserRole
	Status *entities.UserStatus
	Search *string
	Limit  int
	Offset int
}

type TaskFilter struct {
	AssigneeID *uuid.UUID
	Status     *entities.TaskStatus
	Priority   *entities.Priority
	Limit      int
	Offset     int
}

type FeedbackFilter struct {
	InternID *uuid.UUID
	TaskID   *uuid.UUID
	ID       *uuid.UUID
}

type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
