package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrProgressNotFound     = errors.New("progress not found")
	ErrFeedbackNotFound     = errors.New("feedback not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrForbidden            = errors.New("forbidden")
	ErrNotAssignee          = errors.New("user is not the task assignee")
	ErrInvalidAssignee      = errors.New("assignee must be an existing intern")
	ErrValidation           = errors.New("validation failed")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleIntern UserRole = "intern"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusReviewed   TaskStatus = "reviewed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ProgressStatus string

const (
	ProgressStatusNotStarted ProgressStatus = "not-started"
	ProgressStatusInProgress ProgressStatus = "in-progress"
	ProgressStatusCompleted  ProgressStatus = "completed"
)

type FeedbackCategory string

const (
	FeedbackCategoryQuality       FeedbackCategory = "quality"
	FeedbackCategoryTimeliness    FeedbackCategory = "timeliness"
	FeedbackCategoryCommunication FeedbackCategory = "communication"
	FeedbackCategoryOverall       FeedbackCategory = "overall"
)

type NotificationType string

const (
	NotificationTaskAssigned     NotificationType = "task_assigned"
	NotificationTaskSubmitted    NotificationType = "task_submitted"
	NotificationFeedbackReceived NotificationType = "feedback_received"
	NotificationFeedbackUpdated  NotificationType = "feedback_updated"
)

// User represents an admin or an intern
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	Department   *string    `json:"department,omitempty" db:"department"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// AssignedTasks is derived from tasks.assigned_to and only filled on
	// intern listings.
	AssignedTasks []uuid.UUID `json:"assigned_tasks,omitempty" db:"-"`
}

// UserRef is the populated form of a user reference.
type UserRef struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}

// Attachment is a file linked to a task
type Attachment struct {
	Name       string    `json:"name" validate:"required"`
	URL        string    `json:"url" validate:"required,url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Attachments is stored as a JSON column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue(a)
}

func (a *Attachments) Scan(src interface{}) error {
	return jsonScan(src, a)
}

// Task represents a unit of work assigned to an intern
type Task struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Title         string      `json:"title" db:"title"`
	Description   string      `json:"description" db:"description"`
	AssignedTo    uuid.UUID   `json:"assigned_to" db:"assigned_to"`
	AssignedBy    uuid.UUID   `json:"assigned_by" db:"assigned_by"`
	Priority      Priority    `json:"priority" db:"priority"`
	Status        TaskStatus  `json:"status" db:"status"`
	Deadline      time.Time   `json:"deadline" db:"deadline"`
	SubmissionURL string      `json:"submission_url" db:"submission_url"`
	SubmittedAt   *time.Time  `json:"submitted_at" db:"submitted_at"`
	CompletedAt   *time.Time  `json:"completed_at" db:"completed_at"`
	Category      *string     `json:"category,omitempty" db:"category"`
	Attachments   Attachments `json:"attachments" db:"attachments"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// TaskRef is the populated form of a task reference.
type TaskRef struct {
	ID       uuid.UUID  `json:"id"`
	Title    string     `json:"title"`
	Status   TaskStatus `json:"status"`
	Deadline time.Time  `json:"deadline"`
}

// ProgressUpdate is one entry of a progress history
type ProgressUpdate struct {
	Message    string    `json:"message"`
	Percentage int       `json:"percentage"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressUpdates is stored as a JSON column.
type ProgressUpdates []ProgressUpdate

func (u ProgressUpdates) Value() (driver.Value, error) {
	if u == nil {
		return "[]", nil
	}
	return jsonValue(u)
}

func (u *ProgressUpdates) Scan(src interface{}) error {
	return jsonScan(src, u)
}

// Progress is an intern's running report on a task
type Progress struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	InternID   uuid.UUID       `json:"intern_id" db:"intern_id"`
	TaskID     uuid.UUID       `json:"task_id" db:"task_id"`
	Percentage int             `json:"percentage" db:"percentage"`
	Status     ProgressStatus  `json:"status" db:"status"`
	Notes      string          `json:"notes" db:"notes"`
	Updates    ProgressUpdates `json:"updates" db:"updates"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`

	Task   *TaskRef `json:"task,omitempty" db:"-"`
	Intern *UserRef `json:"intern,omitempty" db:"-"`
}

// Feedback is an admin's rated review of a task
type Feedback struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	TaskID    uuid.UUID        `json:"task_id" db:"task_id"`
	InternID  uuid.UUID        `json:"intern_id" db:"intern_id"`
	GivenByID uuid.UUID        `json:"given_by_id" db:"given_by"`
	Rating    int              `json:"rating" db:"rating"`
	Comment   string           `json:"comment" db:"comment"`
	Category  FeedbackCategory `json:"category" db:"category"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`

	Task    *TaskRef `json:"task,omitempty" db:"-"`
	Intern  *UserRef `json:"intern,omitempty" db:"-"`
	GivenBy *UserRef `json:"given_by,omitempty" db:"-"`
}

// IsOrphaned reports whether the feedback's task reference failed to resolve.
// Only meaningful on populated records.
func (f *Feedback) IsOrphaned() bool {
	return f.Task == nil
}

// NotificationData is a free-form JSON payload.
type NotificationData map[string]interface{}

func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return jsonValue(d)
}

func (d *NotificationData) Scan(src interface{}) error {
	return jsonScan(src, d)
}

// Notification is a persisted message for a user
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	RecipientID uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	SenderID    *uuid.UUID       `json:"sender_id,omitempty" db:"sender_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	Link        string           `json:"link" db:"link"`
	Read        bool             `json:"read" db:"is_read"`
	Data        NotificationData `json:"data" db:"data"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// Business logic methods for User
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) IsIntern() bool {
	return u.Role == UserRoleIntern
}

// Reactivate flips an inactive intern back to active. It reports whether
// anything changed.
func (u *User) Reactivate() bool {
	if u.Status != UserStatusInactive {
		return false
	}
	u.Status = UserStatusActive
	return true
}

// Business logic methods for Task
func (t *Task) IsOverdue(now time.Time) bool {
	return now.After(t.Deadline) && t.Status != TaskStatusCompleted && t.Status != TaskStatusReviewed
}

func (t *Task) Ref() *TaskRef {
	return &TaskRef{ID: t.ID, Title: t.Title, Status: t.Status, Deadline: t.Deadline}
}

// Business logic methods for Progress

// Append adds a history entry; an empty message falls back to the default
// text for the record's lifecycle stage.
func (p *Progress) Append(message string, percentage int, now time.Time) {
	if message == "" {
		if len(p.Updates) == 0 {
			message = "Progress created"
		} else {
			message = fmt.Sprintf("Progress updated to %d%%", percentage)
		}
	}
	p.Updates = append(p.Updates, ProgressUpdate{
		Message:    message,
		Percentage: percentage,
		Timestamp:  now,
	})
}

// AverageRating returns the mean rating rounded to two decimals, or zero for
// an empty set.
func AverageRating(feedback []*Feedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	sum := 0
	for _, f := range feedback {
		sum += f.Rating
	}
	avg := float64(sum) / float64(len(feedback))
	return math.Round(avg*100) / 100
}

// Utility methods
func (ur UserRole) IsValid() bool {
	switch ur {
	case UserRoleAdmin, UserRoleIntern:
		return true
	default:
		return false
	}
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusReviewed:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

func (ps ProgressStatus) IsValid() bool {
	switch ps {
	case ProgressStatusNotStarted, ProgressStatusInProgress, ProgressStatusCompleted:
		return true
	default:
		return false
	}
}

func (fc FeedbackCategory) IsValid() bool {
	switch fc {
	case FeedbackCategoryQuality, FeedbackCategoryTimeliness, FeedbackCategoryCommunication, FeedbackCategoryOverall:
		return true
	default:
		return false
	}
}

// jsonValue encodes as a string so both lib/pq and sqlite treat it as text.
func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src interface{}, dest interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
