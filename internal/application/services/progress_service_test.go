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

func TestRecordProgress_HundredPercentCompletes(t *testing.T) {
	ctx := context.Background()

	t.Run("first report", func(t *testing.T) {
		f := newFixture(t)
		task := f.createTask(t)

		_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(100)})
		require.NoError(t, err)
		assert.Equal(t, entities.TaskStatusCompleted, f.taskStatus(t, task))
	})

	t.Run("later report", func(t *testing.T) {
		f := newFixture(t)
		task := f.createTask(t)

		_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(40)})
		require.NoError(t, err)
		_, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(100)})
		require.NoError(t, err)
		assert.Equal(t, entities.TaskStatusCompleted, f.taskStatus(t, task))
	})
}

func TestRecordProgress_NeverLeavesReviewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)
	f.giveFeedback(t, task, 4)

	_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{
		TaskID:     task.ID,
		Percentage: ptr(30),
		Status:     entities.ProgressStatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusReviewed, f.taskStatus(t, task))
}

func TestRecordProgress_HistoryIsAppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	var last *entities.Progress
	for i, pct := range []int{0, 10, 10, 60, 90} {
		f.clock = f.clock.Add(time.Minute)
		p, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(pct)})
		require.NoError(t, err)
		require.Len(t, p.Updates, i+1)
		if last != nil {
			assert.Equal(t, last.Updates, p.Updates[:len(last.Updates)], "earlier entries are kept in order")
		}
		last = p
	}

	for i := 1; i < len(last.Updates); i++ {
		assert.False(t, last.Updates[i].Timestamp.Before(last.Updates[i-1].Timestamp))
	}
	assert.Equal(t, "Progress created", last.Updates[0].Message)
	assert.Equal(t, "Progress updated to 90%", last.Updates[4].Message)

	stored, err := f.progressRepo.FindByInternAndTask(ctx, f.intern.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, stored.Percentage)
	assert.Equal(t, entities.ProgressStatusInProgress, stored.Status)
	assert.Len(t, stored.Updates, 5)
}

func TestRecordProgress_MergesOntoExistingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{
		TaskID:     task.ID,
		Percentage: ptr(60),
		Notes:      ptr("keep me"),
	})
	require.NoError(t, err)

	p, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{
		TaskID: task.ID,
		Status: entities.ProgressStatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, p.Percentage)
	assert.Equal(t, "keep me", p.Notes)
	require.Len(t, p.Updates, 2)
	assert.Equal(t, "Progress updated to 60%", p.Updates[1].Message)

	stored, err := f.progressRepo.FindByInternAndTask(ctx, f.intern.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, stored.Percentage)
	assert.Equal(t, "keep me", stored.Notes)
	assert.Equal(t, entities.ProgressStatusInProgress, stored.Status)
	assert.Equal(t, entities.TaskStatusInProgress, f.taskStatus(t, task))

	p, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{
		TaskID: task.ID,
		Notes:  ptr("wrapping up"),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, p.Percentage)
	assert.Equal(t, "wrapping up", p.Notes)
	assert.Equal(t, entities.ProgressStatusInProgress, p.Status)
}

func TestRecordProgress_ReactivatesIntern(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	f.setUserStatus(t, f.intern, entities.UserStatusInactive)
	_, err := f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusActive, f.userStatus(t, f.intern))

	f.setUserStatus(t, f.intern, entities.UserStatusInactive)
	_, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(15)})
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusActive, f.userStatus(t, f.intern))
}

func TestRecordProgress_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	other := f.createUser(t, "other@example.com", entities.UserRoleIntern)
	otherActor := ports.Actor{ID: other.ID, Role: entities.UserRoleIntern}

	_, err := f.progress.RecordProgress(ctx, otherActor, ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(10)})
	assert.ErrorIs(t, err, entities.ErrNotAssignee)

	_, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: uuid.New(), Percentage: ptr(10)})
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	_, err = f.progress.RecordProgress(ctx, f.adminActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(10)})
	assert.ErrorIs(t, err, entities.ErrValidation, "admins must name the intern")

	_, err = f.progress.RecordProgress(ctx, f.internActor(), ports.RecordProgressRequest{TaskID: task.ID, Percentage: ptr(101)})
	assert.ErrorIs(t, err, entities.ErrValidation)

	p, err := f.progress.RecordProgress(ctx, f.adminActor(), ports.RecordProgressRequest{InternID: &f.intern.ID, TaskID: task.ID, Percentage: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, f.intern.ID, p.InternID)

	_, err = f.progress.ListByIntern(ctx, otherActor, f.intern.ID)
	assert.ErrorIs(t, err, entities.ErrForbidden)

	records, err := f.progress.ListByTask(ctx, otherActor, task.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = f.progress.ListByIntern(ctx, f.internActor(), f.intern.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Task)
	assert.Equal(t, task.Title, records[0].Task.Title)
}
