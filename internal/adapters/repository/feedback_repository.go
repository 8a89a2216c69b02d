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

const feedbackSelect = `
	SELECT f.id, f.task_id, f.intern_id, f.given_by, f.rating, f.comment, f.category,
		f.created_at, f.updated_at,
		t.id AS ref_task_id, t.title AS ref_task_title, t.status AS ref_task_status, t.deadline AS ref_task_deadline,
		i.id AS ref_intern_id, i.name AS ref_intern_name, i.email AS ref_intern_email,
		g.id AS ref_given_by_id, g.name AS ref_given_by_name, g.email AS ref_given_by_email
	FROM feedback f
	LEFT JOIN tasks t ON t.id = f.task_id
	LEFT JOIN users i ON i.id = f.intern_id
	LEFT JOIN users g ON g.id = f.given_by`

type feedbackRow struct {
	entities.Feedback
	taskRefColumns
	internRefColumns
	givenByRefColumns
}

func (row *feedbackRow) toEntity() *entities.Feedback {
	f := row.Feedback
	f.Task = row.taskRef()
	f.Intern = row.internRef()
	f.GivenBy = row.givenByRef()
	return &f
}

// FeedbackRepositoryImpl implements the FeedbackRepository interface
type FeedbackRepositoryImpl struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *sqlx.DB) ports.FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (r *FeedbackRepositoryImpl) Create(ctx context.Context, feedback *entities.Feedback) error {
	query := `
		INSERT INTO feedback (id, task_id, intern_id, given_by, rating, comment, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	if feedback.Category == "" {
		feedback.Category = entities.FeedbackCategoryOverall
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	if feedback.UpdatedAt.IsZero() {
		feedback.UpdatedAt = feedback.CreatedAt
	}

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, q.Rebind(query),
		feedback.ID, feedback.TaskID, feedback.InternID, feedback.GivenByID, feedback.Rating,
		feedback.Comment, feedback.Category, feedback.CreatedAt, feedback.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}

	return nil
}

func (r *FeedbackRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Feedback, error) {
	query := feedbackSelect + ` WHERE f.id = ?`

	var row feedbackRow
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &row, q.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("get feedback by id: %w", err)
	}

	return row.toEntity(), nil
}

func (r *FeedbackRepositoryImpl) Update(ctx context.Context, feedback *entities.Feedback) error {
	query := `UPDATE feedback SET rating = ?, comment = ?, category = ?, updated_at = ? WHERE id = ?`

	if feedback.UpdatedAt.IsZero() {
		feedback.UpdatedAt = time.Now().UTC()
	}

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query),
		feedback.Rating, feedback.Comment, feedback.Category, feedback.UpdatedAt, feedback.ID,
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrFeedbackNotFound
	}

	return nil
}

func (r *FeedbackRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM feedback WHERE id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrFeedbackNotFound
	}

	return nil
}

func (r *FeedbackRepositoryImpl) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM feedback WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build delete feedback query: %w", err)
	}

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete feedback by ids: %w", err)
	}

	return result.RowsAffected()
}

func (r *FeedbackRepositoryImpl) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	query := `DELETE FROM feedback WHERE task_id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), taskID)
	if err != nil {
		return 0, fmt.Errorf("delete feedback by task: %w", err)
	}

	return result.RowsAffected()
}

func (r *FeedbackRepositoryImpl) CountByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM feedback WHERE task_id = ?`

	var count int64
	q := conn(ctx, r.db)
	if err := q.GetContext(ctx, &count, q.Rebind(query), taskID); err != nil {
		return 0, fmt.Errorf("count feedback by task: %w", err)
	}

	return count, nil
}

func (r *FeedbackRepositoryImpl) List(ctx context.Context, filter ports.FeedbackFilter) ([]*entities.Feedback, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.ID != nil {
		clauses = append(clauses, "f.id = ?")
		args = append(args, *filter.ID)
	}
	if filter.InternID != nil {
		clauses = append(clauses, "f.intern_id = ?")
		args = append(args, *filter.InternID)
	}
	if filter.TaskID != nil {
		clauses = append(clauses, "f.task_id = ?")
		args = append(args, *filter.TaskID)
	}

	query := feedbackSelect
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY f.created_at DESC`

	rows := []feedbackRow{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}

	out := make([]*entities.Feedback, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
