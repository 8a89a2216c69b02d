package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTaskEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    TaskStatus
		event   TaskEvent
		want    TaskStatus
		changed bool
		wantErr error
	}{
		{"edit to reviewed is rejected", TaskStatusCompleted, EditedEvent(TaskStatusReviewed), TaskStatusCompleted, false, ErrInvalidTransition},
		{"edit to reviewed is rejected from pending", TaskStatusPending, EditedEvent(TaskStatusReviewed), TaskStatusPending, false, ErrInvalidTransition},
		{"edit to reviewed is rejected on a reviewed task", TaskStatusReviewed, EditedEvent(TaskStatusReviewed), TaskStatusReviewed, false, ErrInvalidTransition},
		{"edit to completed", TaskStatusInProgress, EditedEvent(TaskStatusCompleted), TaskStatusCompleted, true, nil},
		{"edit to same status is a no-op", TaskStatusCompleted, EditedEvent(TaskStatusCompleted), TaskStatusCompleted, false, nil},
		{"edit without status is a no-op", TaskStatusPending, EditedEvent(""), TaskStatusPending, false, nil},
		{"edit to unknown status", TaskStatusPending, EditedEvent("archived"), TaskStatusPending, false, ErrValidation},
		{"edit back to pending", TaskStatusInProgress, EditedEvent(TaskStatusPending), TaskStatusPending, true, nil},
		{"submit", TaskStatusInProgress, SubmittedEvent("https://github.com/x/y"), TaskStatusCompleted, true, nil},
		{"submit reviewed task", TaskStatusReviewed, SubmittedEvent("https://github.com/x/y"), TaskStatusReviewed, false, ErrInvalidTransition},
		{"progress halfway", TaskStatusPending, ProgressRecordedEvent(50, ProgressStatusInProgress), TaskStatusInProgress, true, nil},
		{"progress status only", TaskStatusPending, ProgressRecordedEvent(0, ProgressStatusInProgress), TaskStatusInProgress, true, nil},
		{"progress percentage only", TaskStatusPending, ProgressRecordedEvent(10, ProgressStatusNotStarted), TaskStatusInProgress, true, nil},
		{"progress full", TaskStatusInProgress, ProgressRecordedEvent(100, ProgressStatusInProgress), TaskStatusCompleted, true, nil},
		{"progress completed status", TaskStatusPending, ProgressRecordedEvent(80, ProgressStatusCompleted), TaskStatusCompleted, true, nil},
		{"progress not started", TaskStatusPending, ProgressRecordedEvent(0, ProgressStatusNotStarted), TaskStatusPending, false, nil},
		{"progress never leaves reviewed", TaskStatusReviewed, ProgressRecordedEvent(40, ProgressStatusInProgress), TaskStatusReviewed, false, nil},
		{"progress full on reviewed", TaskStatusReviewed, ProgressRecordedEvent(100, ProgressStatusCompleted), TaskStatusReviewed, false, nil},
		{"feedback created", TaskStatusCompleted, FeedbackCreatedEvent(), TaskStatusReviewed, true, nil},
		{"feedback created on pending task", TaskStatusPending, FeedbackCreatedEvent(), TaskStatusReviewed, true, nil},
		{"feedback created twice", TaskStatusReviewed, FeedbackCreatedEvent(), TaskStatusReviewed, false, nil},
		{"last feedback deleted", TaskStatusReviewed, FeedbackDeletedEvent(0), TaskStatusCompleted, true, nil},
		{"feedback deleted with others left", TaskStatusReviewed, FeedbackDeletedEvent(2), TaskStatusReviewed, false, nil},
		{"unknown event", TaskStatusPending, TaskEvent{Kind: "archived"}, TaskStatusPending, false, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Status: tt.from}

			changed, err := ApplyTaskEvent(task, tt.event, now)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, task.Status)
		})
	}
}

func TestApplyTaskEventTimestamps(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("submit sets submission fields", func(t *testing.T) {
		task := &Task{Status: TaskStatusInProgress}
		_, err := ApplyTaskEvent(task, SubmittedEvent("https://github.com/x/y"), now)
		require.NoError(t, err)

		assert.Equal(t, "https://github.com/x/y", task.SubmissionURL)
		require.NotNil(t, task.SubmittedAt)
		assert.Equal(t, now, *task.SubmittedAt)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("edit to completed stamps completedAt", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		_, err := ApplyTaskEvent(task, EditedEvent(TaskStatusCompleted), now)
		require.NoError(t, err)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("rejected edit leaves the task untouched", func(t *testing.T) {
		task := &Task{Status: TaskStatusCompleted}
		_, err := ApplyTaskEvent(task, EditedEvent(TaskStatusReviewed), now)
		require.Error(t, err)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("full progress keeps an earlier completion time", func(t *testing.T) {
		earlier := now.Add(-time.Hour)
		task := &Task{Status: TaskStatusInProgress, CompletedAt: &earlier}
		_, err := ApplyTaskEvent(task, ProgressRecordedEvent(100, ProgressStatusCompleted), now)
		require.NoError(t, err)
		assert.Equal(t, earlier, *task.CompletedAt)
	})
}

func TestProgressAppend(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Progress{}

	p.Append("", 10, now)
	p.Append("", 40, now.Add(time.Minute))
	p.Append("halfway", 50, now.Add(2*time.Minute))

	require.Len(t, p.Updates, 3)
	assert.Equal(t, "Progress created", p.Updates[0].Message)
	assert.Equal(t, "Progress updated to 40%", p.Updates[1].Message)
	assert.Equal(t, "halfway", p.Updates[2].Message)
	assert.Equal(t, 50, p.Updates[2].Percentage)
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 5.0, AverageRating([]*Feedback{{Rating: 5}}))
	assert.Equal(t, 3.67, AverageRating([]*Feedback{{Rating: 5}, {Rating: 3}, {Rating: 3}}))
	assert.Equal(t, 4.5, AverageRating([]*Feedback{{Rating: 4}, {Rating: 5}}))
}

func TestUserReactivate(t *testing.T) {
	u := &User{Role: UserRoleIntern, Status: UserStatusInactive}
	assert.True(t, u.Reactivate())
	assert.Equal(t, UserStatusActive, u.Status)
	assert.False(t, u.Reactivate())
}

func TestJSONColumns(t *testing.T) {
	var empty Attachments
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var updates ProgressUpdates
	require.NoError(t, updates.Scan(`[{"message":"Progress created","percentage":10,"timestamp":"2024-03-01T12:00:00Z"}]`))
	require.Len(t, updates, 1)
	assert.Equal(t, 10, updates[0].Percentage)

	var data NotificationData
	require.NoError(t, data.Scan([]byte(`{"rating":5}`)))
	assert.Equal(t, float64(5), data["rating"])

	require.Error(t, data.Scan(42))
}
