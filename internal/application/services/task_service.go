package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo     ports.TaskRepository
	userRepo     ports.UserRepository
	feedbackRepo ports.FeedbackRepository
	tx           ports.Transactor
	engine       *StatusEngine
	notifier     *NotificationService
	logger       *logger.Logger
	now          func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo ports.TaskRepository,
	userRepo ports.UserRepository,
	feedbackRepo ports.FeedbackRepository,
	tx ports.Transactor,
	engine *StatusEngine,
	notifier *NotificationService,
	logger *logger.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		feedbackRepo: feedbackRepo,
		tx:           tx,
		engine:       engine,
		notifier:     notifier,
		logger:       logger.WithComponent("tasks"),
		now:          utcNow,
	}
}

// CreateTask creates a task and notifies the assigned intern
func (s *TaskService) CreateTask(ctx context.Context, actor ports.Actor, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, req.AssignedTo); err != nil {
		return nil, err
	}

	now := s.now()
	task := &entities.Task{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		AssignedBy:  actor.ID,
		Priority:    req.Priority,
		Status:      entities.TaskStatusPending,
		Deadline:    req.Deadline.UTC(),
		Category:    req.Category,
		Attachments: req.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = entities.PriorityMedium
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", task.ID, "assigned_to", task.AssignedTo)

	s.notifier.Notify(ctx, ports.EmitNotificationRequest{
		RecipientID: task.AssignedTo,
		SenderID:    &actor.ID,
		Type:        entities.NotificationTaskAssigned,
		Title:       "New task assigned",
		Message:     fmt.Sprintf("You have been assigned %q", task.Title),
		Link:        "/tasks/" + task.ID.String(),
		Data: entities.NotificationData{
			"task_id":  task.ID.String(),
			"priority": string(task.Priority),
			"deadline": task.Deadline.Format(time.RFC3339),
		},
	})

	return task, nil
}

// GetTask retrieves a task; interns only see their own tasks
func (s *TaskService) GetTask(ctx context.Context, actor ports.Actor, id uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if !actor.IsAdmin() && task.AssignedTo != actor.ID {
		return nil, entities.ErrForbidden
	}
	return task, nil
}

// ListTasks lists tasks with pagination. Interns are restricted to their own.
func (s *TaskService) ListTasks(ctx context.Context, actor ports.Actor, filter ports.TaskFilter) ([]*entities.Task, int64, error) {
	if !actor.IsAdmin() {
		filter.AssigneeID = &actor.ID
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	total, err := s.taskRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return tasks, total, nil
}

// UpdateTask edits a task. A status change goes through the status engine as
// a TaskEdited event.
func (s *TaskService) UpdateTask(ctx context.Context, actor ports.Actor, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var task *entities.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.taskRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		if req.AssignedTo != nil && *req.AssignedTo != task.AssignedTo {
			if err := s.checkAssignee(ctx, *req.AssignedTo); err != nil {
				return err
			}
			task.AssignedTo = *req.AssignedTo
		}
		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}
		if req.Deadline != nil {
			task.Deadline = req.Deadline.UTC()
		}
		if req.Category != nil {
			task.Category = req.Category
		}
		if req.Attachments != nil {
			task.Attachments = *req.Attachments
		}
		if req.Status != nil {
			if _, err := s.engine.Transition(task, entities.EditedEvent(*req.Status)); err != nil {
				return err
			}
		}

		task.UpdatedAt = s.now()
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task updated", "task_id", task.ID, "status", task.Status)
	return task, nil
}

// SubmitTask records the intern's submission, marks the task completed and
// reactivates the intern. The assigning admin is notified.
func (s *TaskService) SubmitTask(ctx context.Context, actor ports.Actor, id uuid.UUID, req ports.SubmitTaskRequest) (*entities.Task, error) {
	var task *entities.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.taskRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		if !actor.IsAdmin() && task.AssignedTo != actor.ID {
			return entities.ErrNotAssignee
		}

		if err := reactivateIntern(ctx, s.userRepo, task.AssignedTo); err != nil {
			return err
		}

		if _, err := s.engine.Transition(task, entities.SubmittedEvent(req.SubmissionURL)); err != nil {
			return err
		}
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to submit task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogUserAction(actor.ID.String(), "task_submitted", map[string]interface{}{
		"task_id": task.ID,
	})

	s.notifier.Notify(ctx, ports.EmitNotificationRequest{
		RecipientID: task.AssignedBy,
		SenderID:    &task.AssignedTo,
		Type:        entities.NotificationTaskSubmitted,
		Title:       "Task submitted",
		Message:     fmt.Sprintf("%q has been submitted for review", task.Title),
		Link:        "/tasks/" + task.ID.String(),
		Data: entities.NotificationData{
			"task_id":        task.ID.String(),
			"submission_url": task.SubmissionURL,
		},
	})

	return task, nil
}

// DeleteTask deletes a task together with its feedback. Progress records are
// left in place.
func (s *TaskService) DeleteTask(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	var removed int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.taskRepo.GetByID(ctx, id); err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		var err error
		removed, err = s.feedbackRepo.DeleteByTask(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete task feedback: %w", err)
		}

		if err := s.taskRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Task deleted", "task_id", id, "feedback_removed", removed)
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, internID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, internID)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return entities.ErrInvalidAssignee
		}
		return fmt.Errorf("failed to get assignee: %w", err)
	}
	if !user.IsIntern() {
		return entities.ErrInvalidAssignee
	}
	return nil
}

// reactivateIntern flips an inactive intern back to active.
func reactivateIntern(ctx context.Context, userRepo ports.UserRepository, internID uuid.UUID) error {
	user, err := userRepo.GetByID(ctx, internID)
	if err != nil {
		return fmt.Errorf("failed to get intern: %w", err)
	}
	if !user.Reactivate() {
		return nil
	}
	if err := userRepo.UpdateStatus(ctx, user.ID, user.Status); err != nil {
		return fmt.Errorf("failed to reactivate intern: %w", err)
	}
	return nil
}
