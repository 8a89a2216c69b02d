package entities

import (
	"fmt"
	"time"
)

// TaskEventKind names what happened to a task.
type TaskEventKind string

const (
	TaskEventEdited           TaskEventKind = "task_edited"
	TaskEventSubmitted        TaskEventKind = "task_submitted"
	TaskEventProgressRecorded TaskEventKind = "progress_recorded"
	TaskEventFeedbackCreated  TaskEventKind = "feedback_created"
	TaskEventFeedbackDeleted  TaskEventKind = "feedback_deleted"
)

// TaskEvent is the input of the task status state machine. Only the fields
// relevant to Kind are read.
type TaskEvent struct {
	Kind TaskEventKind

	// TaskEdited
	RequestedStatus TaskStatus

	// TaskSubmitted
	SubmissionURL string

	// ProgressRecorded
	Percentage     int
	ProgressStatus ProgressStatus

	// FeedbackDeleted: feedback records left on the task after the delete.
	RemainingFeedback int
}

func EditedEvent(status TaskStatus) TaskEvent {
	return TaskEvent{Kind: TaskEventEdited, RequestedStatus: status}
}

func SubmittedEvent(url string) TaskEvent {
	return TaskEvent{Kind: TaskEventSubmitted, SubmissionURL: url}
}

func ProgressRecordedEvent(percentage int, status ProgressStatus) TaskEvent {
	return TaskEvent{Kind: TaskEventProgressRecorded, Percentage: percentage, ProgressStatus: status}
}

func FeedbackCreatedEvent() TaskEvent {
	return TaskEvent{Kind: TaskEventFeedbackCreated}
}

func FeedbackDeletedEvent(remaining int) TaskEvent {
	return TaskEvent{Kind: TaskEventFeedbackDeleted, RemainingFeedback: remaining}
}

// ApplyTaskEvent runs the task status state machine. It mutates the task in
// place and reports whether any persisted field changed. On error the task
// is left untouched.
//
// reviewed is entered only by FeedbackCreated and left only by
// FeedbackDeleted (once no feedback remains) or an explicit admin edit.
func ApplyTaskEvent(t *Task, ev TaskEvent, now time.Time) (bool, error) {
	switch ev.Kind {
	case TaskEventEdited:
		return applyEdit(t, ev.RequestedStatus, now)

	case TaskEventSubmitted:
		if t.Status == TaskStatusReviewed {
			return false, fmt.Errorf("%w: task has already been reviewed", ErrInvalidTransition)
		}
		t.Status = TaskStatusCompleted
		t.SubmissionURL = ev.SubmissionURL
		t.SubmittedAt = &now
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return true, nil

	case TaskEventProgressRecorded:
		next, ok := StatusFromProgress(ev.Percentage, ev.ProgressStatus)
		if !ok || t.Status == TaskStatusReviewed || t.Status == next {
			return false, nil
		}
		t.Status = next
		if next == TaskStatusCompleted && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return true, nil

	case TaskEventFeedbackCreated:
		if t.Status == TaskStatusReviewed {
			return false, nil
		}
		t.Status = TaskStatusReviewed
		return true, nil

	case TaskEventFeedbackDeleted:
		if ev.RemainingFeedback > 0 || t.Status == TaskStatusCompleted {
			return false, nil
		}
		t.Status = TaskStatusCompleted
		return true, nil
	}

	return false, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev.Kind)
}

func applyEdit(t *Task, requested TaskStatus, now time.Time) (bool, error) {
	if requested == "" {
		return false, nil
	}
	if requested == TaskStatusReviewed {
		return false, fmt.Errorf("%w: reviewed can only be set by creating feedback", ErrInvalidTransition)
	}
	if !requested.IsValid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrValidation, requested)
	}
	if requested == t.Status {
		return false, nil
	}

	t.Status = requested
	if requested == TaskStatusCompleted {
		t.CompletedAt = &now
	}
	return true, nil
}

// StatusFromProgress maps a progress report onto a task status. A full or
// completed report means the work is done and awaits review.
func StatusFromProgress(percentage int, status ProgressStatus) (TaskStatus, bool) {
	switch {
	case percentage >= 100 || status == ProgressStatusCompleted:
		return TaskStatusCompleted, true
	case status == ProgressStatusInProgress || percentage > 0:
		return TaskStatusInProgress, true
	default:
		return "", false
	}
}
