package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/ports"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	f.auth.now = time.Now
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, ports.RegisterRequest{
		Name:     "New Intern",
		Email:    "New@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleIntern, resp.User.Role)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := f.auth.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
	assert.Equal(t, entities.UserRoleIntern, claims.Role)

	_, err = f.auth.Register(ctx, ports.RegisterRequest{Name: "Dup", Email: "new@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, entities.ErrEmailTaken)

	login, err := f.auth.Login(ctx, ports.LoginRequest{Email: "new@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)

	_, err = f.auth.Login(ctx, ports.LoginRequest{Email: "new@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, ports.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
}

func TestAuthService_ValidateToken(t *testing.T) {
	f := newFixture(t)
	f.auth.now = time.Now

	user, err := f.auth.CreateUser(context.Background(), ports.CreateUserRequest{
		Name: "Admin", Email: "root@example.com", Password: "password1", Role: entities.UserRoleAdmin,
	})
	require.NoError(t, err)

	resp, err := f.auth.issue(user)
	require.NoError(t, err)

	_, err = f.auth.ValidateToken(resp.AccessToken + "x")
	assert.Error(t, err)

	other := NewAuthService(f.userRepo, f.auth.jwtConfig, f.auth.logger)
	other.jwtConfig.Secret = "different"
	_, err = other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)

	f.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.auth.ValidateToken(resp.AccessToken)
	assert.Error(t, err, "expired")
}

func TestNotificationService_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createTask(t)
	f.createTask(t)

	notes, err := f.notifications.List(ctx, f.internActor(), ports.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2)

	err = f.notifications.MarkRead(ctx, f.adminActor(), notes[0].ID)
	assert.ErrorIs(t, err, entities.ErrForbidden)
	err = f.notifications.Delete(ctx, f.adminActor(), notes[0].ID)
	assert.ErrorIs(t, err, entities.ErrForbidden)
	err = f.notifications.MarkRead(ctx, f.internActor(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrNotificationNotFound)

	require.NoError(t, f.notifications.MarkRead(ctx, f.internActor(), notes[0].ID))
	unread, err := f.notifications.UnreadCount(ctx, f.internActor())
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := f.notifications.MarkAllRead(ctx, f.internActor())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, f.notifications.Delete(ctx, f.internActor(), notes[1].ID))
	notes, err = f.notifications.List(ctx, f.internActor(), ports.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestUserService_ListInternsCarriesAssignedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTask(t)
	b := f.createTask(t)

	interns, total, err := f.users.ListInterns(ctx, f.adminActor(), ports.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, interns, 1)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, interns[0].AssignedTasks)

	all, total, err := f.users.ListUsers(ctx, f.adminActor(), ports.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(2), total)
}
