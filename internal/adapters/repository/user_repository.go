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

const userColumns = `id, name, email, password_hash, role, status, department, created_at, updated_at`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, status, department, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Status == "" {
		user.Status = entities.UserStatusActive
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, q.Rebind(query),
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.Status, user.Department, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	var user entities.User
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &user, q.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	var user entities.User
	q := conn(ctx, r.db)
	err := q.GetContext(ctx, &user, q.Rebind(query), strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.UserStatus) error {
	query := `UPDATE users SET status = ?, updated_at = ? WHERE id = ?`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, q.Rebind(query), status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrUserNotFound
	}

	return nil
}

func (r *UserRepositoryImpl) List(ctx context.Context, filter ports.UserFilter) ([]*entities.User, error) {
	where, args := userWhere(filter)
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	users := []*entities.User{}
	q := conn(ctx, r.db)
	if err := q.SelectContext(ctx, &users, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context, filter ports.UserFilter) (int64, error) {
	where, args := userWhere(filter)
	query := `SELECT COUNT(*) FROM users` + where

	var count int64
	q := conn(ctx, r.db)
	if err := q.GetContext(ctx, &count, q.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

func userWhere(filter ports.UserFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Role != nil {
		clauses = append(clauses, "role = ?")
		args = append(args, *filter.Role)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Search != nil && *filter.Search != "" {
		clauses = append(clauses, "(LOWER(name) LIKE ? OR email LIKE ?)")
		pattern := "%" + strings.ToLower(*filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
