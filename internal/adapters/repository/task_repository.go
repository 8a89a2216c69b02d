package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/ports"
)

const taskColumns = `id, title, description, assigned_to, assigned_by, priority, status, deadline,
	submission_url, submitted_at, completed_at, category, attachments, created_at, updated_at`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = entities.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = entities.PriorityMedium
	}
	if task.Attachments == nil {
		task.Attachments = entities.Attachments{}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, q.Rebind(query),
		task.ID, task.Title, task.Description, task.AssignedTo, task.AssignedBy,
		task.Priority, task.Status, task.Deadline, task.SubmissionURL,
		task.SubmittedAt, task.CompletedAt, task.Category, task.Attachments,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	var task entities.Task
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &task, q.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

// Update writes every mutable column. UpdatedAt is taken from the entity so
// callers control the clock.
func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, assigned_to = ?, priority = ?, status = ?, deadline = ?,
			submission_url = ?, submitted_at = ?, completed_at = ?, category = ?, attachments = ?,
			updated_at = ?
		WHERE id = ?`

	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = time.Now().UTC()
	}

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query),
		task.Title, task.Description, task.AssignedTo, task.Priority, task.Status, task.Deadline,
		task.SubmissionURL, task.SubmittedAt, task.CompletedAt, task.Category, task.Attachments,
		task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	where, args := taskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY deadline ASC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	tasks := []*entities.Task{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &tasks, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Count(ctx context.Context, filter ports.TaskFilter) (int64, error) {
	where, args := taskWhere(filter)
	query := `SELECT COUNT(*) FROM tasks` + where

	var count int64
	q := conn(ctx, r.db)
	if err := q.GetContext(ctx, &count, q.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) ListIDsByAssignee(ctx context.Context, internID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM tasks WHERE assigned_to = ? ORDER BY created_at ASC`

	ids := []uuid.UUID{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &ids, q.Rebind(query), internID); err != nil {
		return nil, fmt.Errorf("list task ids by assignee: %w", err)
	}

	return ids, nil
}

// LatestReviewedByAssignee scans all of the intern's reviewed tasks and picks
// the newest in Go; sqlite stores timestamps as text, so ORDER BY is not relied on.
func (r *TaskRepositoryImpl) LatestReviewedByAssignee(ctx context.Context, internID uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = ? AND status = ?`

	tasks := []*entities.Task{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &tasks, q.Rebind(query), internID, entities.TaskStatusReviewed); err != nil {
		return nil, fmt.Errorf("latest reviewed task: %w", err)
	}

	var latest *entities.Task
	for _, t := range tasks {
		if latest == nil || t.UpdatedAt.After(latest.UpdatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, entities.ErrTaskNotFound
	}

	return latest, nil
}

func taskWhere(filter ports.TaskFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.AssigneeID != nil {
		clauses = append(clauses, "assigned_to = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		clauses = append(clauses, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
