package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask godoc
// @Summary Create and assign a task
// @Description Admin only. The assignee must be an intern and is notified.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	actor := actorFromContext(c)

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(h.logger, c, "Create task failed", err)
	}

	h.logger.LogUserAction(actor.ID.String(), "task_created", map[string]interface{}{
		"task_id":     task.ID,
		"assigned_to": task.AssignedTo,
	})

	return c.JSON(http.StatusCreated, task)
}

// GetTask godoc
// @Summary Get task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), actorFromContext(c), taskID)
	if err != nil {
		return respondError(h.logger, c, "Get task failed", err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks godoc
// @Summary List tasks
// @Description Interns only see tasks assigned to them.
// @Tags tasks
// @Produce json
// @Param status query string false "Task status"
// @Param priority query string false "Task priority"
// @Param assigned_to query string false "Assignee ID (admin only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ports.PaginatedResponse[entities.Task]
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := ports.TaskFilter{Limit: limit, Offset: offset}
	if status := c.QueryParam("status"); status != "" {
		taskStatus := entities.TaskStatus(status)
		filter.Status = &taskStatus
	}
	if priority := c.QueryParam("priority"); priority != "" {
		p := entities.Priority(priority)
		filter.Priority = &p
	}
	if filter.AssigneeID, err = optionalUUIDQuery(c, "assigned_to"); err != nil {
		return err
	}

	tasks, total, err := h.taskService.ListTasks(c.Request().Context(), actorFromContext(c), filter)
	if err != nil {
		return respondError(h.logger, c, "List tasks failed", err)
	}

	return c.JSON(http.StatusOK, ports.PaginatedResponse[*entities.Task]{
		Data:   tasks,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateTask godoc
// @Summary Edit a task
// @Description Admin only. Status may be set to anything but reviewed.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), actorFromContext(c), taskID, req)
	if err != nil {
		return respondError(h.logger, c, "Update task failed", err)
	}

	return c.JSON(http.StatusOK, task)
}

// SubmitTask godoc
// @Summary Submit work for a task
// @Description The assignee submits a URL; the task becomes completed.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.SubmitTaskRequest true "Submission"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/submit [post]
func (h *TaskHandler) SubmitTask(c echo.Context) error {
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.SubmitTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.SubmitTask(c.Request().Context(), actorFromContext(c), taskID, req)
	if err != nil {
		return respondError(h.logger, c, "Submit task failed", err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task and its feedback
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	actor := actorFromContext(c)
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), actor, taskID); err != nil {
		return respondError(h.logger, c, "Delete task failed", err)
	}

	h.logger.LogUserAction(actor.ID.String(), "task_deleted", map[string]interface{}{"task_id": taskID})

	return c.NoContent(http.StatusNoContent)
}
