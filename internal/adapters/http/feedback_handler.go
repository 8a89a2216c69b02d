package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// FeedbackHandler handles feedback requests
type FeedbackHandler struct {
	feedbackService *services.FeedbackService
	logger          *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackService *services.FeedbackService, logger *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		logger:          logger,
	}
}

// ListFeedback godoc
// @Summary List feedback
// @Description Admin only. Feedback whose task no longer exists is omitted and cleaned up.
// @Tags feedback
// @Produce json
// @Param intern_id query string false "Restrict to one intern"
// @Success 200 {array} entities.Feedback
// @Security BearerAuth
// @Router /feedback [get]
func (h *FeedbackHandler) ListFeedback(c echo.Context) error {
	internID, err := optionalUUIDQuery(c, "intern_id")
	if err != nil {
		return err
	}

	list, err := h.feedbackService.ListFeedback(c.Request().Context(), actorFromContext(c), internID)
	if err != nil {
		return respondError(h.logger, c, "List feedback failed", err)
	}

	return c.JSON(http.StatusOK, list)
}

// GetFeedback godoc
// @Summary Get feedback by ID
// @Tags feedback
// @Produce json
// @Param id path string true "Feedback ID"
// @Success 200 {object} entities.Feedback
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) GetFeedback(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	fb, err := h.feedbackService.GetFeedback(c.Request().Context(), actorFromContext(c), id)
	if err != nil {
		return respondError(h.logger, c, "Get feedback failed", err)
	}

	return c.JSON(http.StatusOK, fb)
}

// ListByTask godoc
// @Summary Feedback for a task
// @Tags feedback
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {array} entities.Feedback
// @Security BearerAuth
// @Router /feedback/task/{taskId} [get]
func (h *FeedbackHandler) ListByTask(c echo.Context) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	list, err := h.feedbackService.ListByTask(c.Request().Context(), actorFromContext(c), taskID)
	if err != nil {
		return respondError(h.logger, c, "List task feedback failed", err)
	}

	return c.JSON(http.StatusOK, list)
}

// InternSummary godoc
// @Summary Feedback summary of an intern
// @Description All feedback for the intern with the average rating rounded to two decimals.
// @Tags feedback
// @Produce json
// @Param internId path string true "Intern ID"
// @Success 200 {object} ports.InternFeedbackSummary
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /feedback/intern/{internId} [get]
func (h *FeedbackHandler) InternSummary(c echo.Context) error {
	internID, err := uuidParam(c, "internId")
	if err != nil {
		return err
	}

	summary, err := h.feedbackService.InternSummary(c.Request().Context(), actorFromContext(c), internID)
	if err != nil {
		return respondError(h.logger, c, "Intern feedback summary failed", err)
	}

	return c.JSON(http.StatusOK, summary)
}

// CreateFeedback godoc
// @Summary Review a task
// @Description Admin only. The task becomes reviewed and the intern is notified.
// @Tags feedback
// @Accept json
// @Produce json
// @Param request body ports.CreateFeedbackRequest true "Feedback"
// @Success 201 {object} entities.Feedback
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /feedback [post]
func (h *FeedbackHandler) CreateFeedback(c echo.Context) error {
	actor := actorFromContext(c)

	var req ports.CreateFeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fb, err := h.feedbackService.CreateFeedback(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(h.logger, c, "Create feedback failed", err)
	}

	h.logger.LogUserAction(actor.ID.String(), "feedback_created", map[string]interface{}{
		"feedback_id": fb.ID,
		"task_id":     fb.TaskID,
	})

	return c.JSON(http.StatusCreated, fb)
}

// UpdateFeedback godoc
// @Summary Edit feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param request body ports.UpdateFeedbackRequest true "Fields to change"
// @Success 200 {object} entities.Feedback
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /feedback/{id} [put]
func (h *FeedbackHandler) UpdateFeedback(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateFeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fb, err := h.feedbackService.UpdateFeedback(c.Request().Context(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(h.logger, c, "Update feedback failed", err)
	}

	return c.JSON(http.StatusOK, fb)
}

// DeleteFeedback godoc
// @Summary Delete feedback
// @Description Reverts the task to completed once no feedback remains.
// @Tags feedback
// @Param id path string true "Feedback ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /feedback/{id} [delete]
func (h *FeedbackHandler) DeleteFeedback(c echo.Context) error {
	actor := actorFromContext(c)
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.feedbackService.DeleteFeedback(c.Request().Context(), actor, id); err != nil {
		return respondError(h.logger, c, "Delete feedback failed", err)
	}

	h.logger.LogUserAction(actor.ID.String(), "feedback_deleted", map[string]interface{}{"feedback_id": id})

	return c.NoContent(http.StatusNoContent)
}
