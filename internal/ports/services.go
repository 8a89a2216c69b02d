package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role entities.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == entities.UserRoleAdmin
}

// JobLocker guards background jobs so that only one process runs a job at a
// time. Acquire reports false when another holder owns the lock.
type JobLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Auth related types
type RegisterRequest struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	User        *entities.User `json:"user"`
}

type Claims struct {
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
}

// User related types
type CreateUserRequest struct {
	Name       string            `json:"name" validate:"required,max=100"`
	Email      string            `json:"email" validate:"required,email"`
	Password   string            `json:"password" validate:"required,min=8"`
	Role       entities.UserRole `json:"role" validate:"required,oneof=admin intern"`
	Department *string           `json:"department" validate:"omitempty,max=100"`
}

// Task related types
type CreateTaskRequest struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"required,max=5000"`
	AssignedTo  uuid.UUID            `json:"assigned_to" validate:"required"`
	Priority    entities.Priority    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Deadline    time.Time            `json:"deadline" validate:"required"`
	Category    *string              `json:"category" validate:"omitempty,max=100"`
	Attachments entities.Attachments `json:"attachments" validate:"omitempty,dive"`
}

type UpdateTaskRequest struct {
	Title       *string               `json:"title" validate:"omitempty,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=5000"`
	AssignedTo  *uuid.UUID            `json:"assigned_to"`
	Priority    *entities.Priority    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *entities.TaskStatus  `json:"status" validate:"omitempty"`
	Deadline    *time.Time            `json:"deadline"`
	Category    *string               `json:"category" validate:"omitempty,max=100"`
	Attachments *entities.Attachments `json:"attachments" validate:"omitempty,dive"`
}

type SubmitTaskRequest struct {
	SubmissionURL string `json:"submission_url" validate:"required,url"`
}

// Progress related types
type RecordProgressRequest struct {
	InternID   *uuid.UUID              `json:"intern_id"`
	TaskID     uuid.UUID               `json:"task_id" validate:"required"`
	Percentage *int                    `json:"percentage" validate:"omitempty,min=0,max=100"`
	Status     entities.ProgressStatus `json:"status" validate:"omitempty,oneof=not-started in-progress completed"`
	Notes      *string                 `json:"notes" validate:"omitempty,max=2000"`
}

// Feedback related types
type CreateFeedbackRequest struct {
	TaskID   uuid.UUID                 `json:"task_id" validate:"required"`
	InternID uuid.UUID                 `json:"intern_id" validate:"required"`
	Rating   int                       `json:"rating" validate:"required,min=1,max=5"`
	Comment  string                    `json:"comment" validate:"required,max=2000"`
	Category entities.FeedbackCategory `json:"category" validate:"omitempty,oneof=quality timeliness communication overall"`
}

type UpdateFeedbackRequest struct {
	Rating   *int                       `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment  *string                    `json:"comment" validate:"omitempty,max=2000"`
	Category *entities.FeedbackCategory `json:"category" validate:"omitempty,oneof=quality timeliness communication overall"`
}

type InternFeedbackSummary struct {
	InternID      uuid.UUID            `json:"intern_id"`
	Feedback      []*entities.Feedback `json:"feedback"`
	Count         int                  `json:"count"`
	AverageRating float64              `json:"average_rating"`
}

// Notification related types
type EmitNotificationRequest struct {
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	Type        entities.NotificationType
	Title       string
	Message     string
	Link        string
	Data        entities.NotificationData
}

// Response types for pagination and common structures
type PaginatedResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
