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

const progressSelect = `
	SELECT p.id, p.intern_id, p.task_id, p.percentage, p.status, p.notes, p.updates,
		p.created_at, p.updated_at,
		t.id AS ref_task_id, t.title AS ref_task_title, t.status AS ref_task_status, t.deadline AS ref_task_deadline,
		u.id AS ref_intern_id, u.name AS ref_intern_name, u.email AS ref_intern_email
	FROM progress p
	LEFT JOIN tasks t ON t.id = p.task_id
	LEFT JOIN users u ON u.id = p.intern_id`

type progressRow struct {
	entities.Progress
	taskRefColumns
	internRefColumns
}

func (row *progressRow) toEntity() *entities.Progress {
	p := row.Progress
	p.Task = row.taskRef()
	p.Intern = row.internRef()
	return &p
}

// ProgressRepositoryImpl implements the ProgressRepository interface
type ProgressRepositoryImpl struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *sqlx.DB) ports.ProgressRepository {
	return &ProgressRepositoryImpl{db: db}
}

func (r *ProgressRepositoryImpl) Create(ctx context.Context, progress *entities.Progress) error {
	query := `
		INSERT INTO progress (id, intern_id, task_id, percentage, status, notes, updates, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	if progress.Status == "" {
		progress.Status = entities.ProgressStatusNotStarted
	}
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = time.Now().UTC()
	}
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = progress.CreatedAt
	}

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, q.Rebind(query),
		progress.ID, progress.InternID, progress.TaskID, progress.Percentage, progress.Status,
		progress.Notes, progress.Updates, progress.CreatedAt, progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}

	return nil
}

func (r *ProgressRepositoryImpl) Update(ctx context.Context, progress *entities.Progress) error {
	query := `
		UPDATE progress
		SET percentage = ?, status = ?, notes = ?, updates = ?, updated_at = ?
		WHERE id = ?`

	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now().UTC()
	}

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query),
		progress.Percentage, progress.Status, progress.Notes, progress.Updates,
		progress.UpdatedAt, progress.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrProgressNotFound
	}

	return nil
}

func (r *ProgressRepositoryImpl) FindByInternAndTask(ctx context.Context, internID, taskID uuid.UUID) (*entities.Progress, error) {
	query := progressSelect + ` WHERE p.intern_id = ? AND p.task_id = ?`

	var row progressRow
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &row, q.Rebind(query), internID, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrProgressNotFound
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}

	return row.toEntity(), nil
}

func (r *ProgressRepositoryImpl) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entities.Progress, error) {
	return r.list(ctx, progressSelect+` WHERE p.task_id = ? ORDER BY p.created_at DESC`, taskID)
}

func (r *ProgressRepositoryImpl) ListByIntern(ctx context.Context, internID uuid.UUID) ([]*entities.Progress, error) {
	return r.list(ctx, progressSelect+` WHERE p.intern_id = ? ORDER BY p.created_at DESC`, internID)
}

func (r *ProgressRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]*entities.Progress, error) {
	rows := []progressRow{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	out := make([]*entities.Progress, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
