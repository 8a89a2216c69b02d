package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/ports"
)

func TestInactivitySweeper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idle := f.createUser(t, "idle@example.com", entities.UserRoleIntern)
	task := f.createTask(t)
	f.giveFeedback(t, task, 4)
	reviewedAt := f.clock

	n, err := f.sweeper.Sweep(ctx, reviewedAt.Add(3*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the intern without reviewed work")
	assert.Equal(t, entities.UserStatusActive, f.userStatus(t, f.intern))
	assert.Equal(t, entities.UserStatusInactive, f.userStatus(t, idle))
	assert.Equal(t, entities.UserStatusActive, f.userStatus(t, f.admin))

	n, err = f.sweeper.Sweep(ctx, reviewedAt.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, entities.UserStatusInactive, f.userStatus(t, f.intern))

	// Already inactive interns are not counted again.
	n, err = f.sweeper.Sweep(ctx, reviewedAt.Add(9*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInactivitySweeper_ReviewedTaskMustBeRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A pending task updated today does not count as activity.
	f.createTask(t)

	n, err := f.sweeper.Sweep(ctx, f.clock)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, entities.UserStatusInactive, f.userStatus(t, f.intern))
}

func TestUserService_SweepOnList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users := NewUserService(f.userRepo, f.taskRepo, f.sweeper, true, f.users.logger)
	interns, total, err := users.ListInterns(ctx, f.adminActor(), ports.UserFilter{})
	require.NoError(t, err)
	require.Len(t, interns, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.UserStatusInactive, interns[0].Status)

	_, _, err = users.ListUsers(ctx, f.internActor(), ports.UserFilter{})
	assert.ErrorIs(t, err, entities.ErrForbidden)
}

func TestReconciler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withFeedback := f.createTask(t)
	f.giveFeedback(t, withFeedback, 5)

	staleReview := f.createTask(t)
	behind := f.createTask(t)
	ahead := f.createTask(t)
	clean := f.createTask(t)

	_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: behind.ID, Percentage: ptr(100)})
	require.NoError(t, err)
	_, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: ahead.ID, Percentage: ptr(20)})
	require.NoError(t, err)

	// Corrupt statuses directly in the store.
	drift := map[*entities.Task]entities.TaskStatus{
		withFeedback: entities.TaskStatusCompleted,
		staleReview:  entities.TaskStatusReviewed,
		behind:       entities.TaskStatusPending,
		ahead:        entities.TaskStatusCompleted,
	}
	for task, status := range drift {
		stored, err := f.taskRepo.GetByID(ctx, task.ID)
		require.NoError(t, err)
		stored.Status = status
		require.NoError(t, f.taskRepo.Update(ctx, stored))
	}

	repaired, err := f.reconciler.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired)

	assert.Equal(t, entities.TaskStatusReviewed, f.taskStatus(t, withFeedback))
	assert.Equal(t, entities.TaskStatusCompleted, f.taskStatus(t, staleReview))
	assert.Equal(t, entities.TaskStatusCompleted, f.taskStatus(t, behind))
	assert.Equal(t, entities.TaskStatusCompleted, f.taskStatus(t, ahead), "progress never moves a task backwards")
	assert.Equal(t, entities.TaskStatusPending, f.taskStatus(t, clean))

	repaired, err = f.reconciler.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
