package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// ProgressHandler handles progress reporting requests
type ProgressHandler struct {
	progressService *services.ProgressService
	logger          *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *services.ProgressService, logger *logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		logger:          logger,
	}
}

// RecordProgress godoc
// @Summary Report progress on a task
// @Description Creates or updates the caller's progress record and appends a history entry.
// @Tags progress
// @Accept json
// @Produce json
// @Param request body ports.RecordProgressRequest true "Progress report"
// @Success 200 {object} entities.Progress
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /progress [post]
func (h *ProgressHandler) RecordProgress(c echo.Context) error {
	var req ports.RecordProgressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	progress, err := h.progressService.RecordProgress(c.Request().Context(), actorFromContext(c), req)
	if err != nil {
		return respondError(h.logger, c, "Record progress failed", err)
	}

	return c.JSON(http.StatusOK, progress)
}

// ListByTask godoc
// @Summary Progress records for a task
// @Tags progress
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {array} entities.Progress
// @Security BearerAuth
// @Router /progress/task/{taskId} [get]
func (h *ProgressHandler) ListByTask(c echo.Context) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	records, err := h.progressService.ListByTask(c.Request().Context(), actorFromContext(c), taskID)
	if err != nil {
		return respondError(h.logger, c, "List task progress failed", err)
	}

	return c.JSON(http.StatusOK, records)
}

// ListByIntern godoc
// @Summary Progress records of an intern
// @Tags progress
// @Produce json
// @Param internId path string true "Intern ID"
// @Success 200 {array} entities.Progress
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /progress/intern/{internId} [get]
func (h *ProgressHandler) ListByIntern(c echo.Context) error {
	internID, err := uuidParam(c, "internId")
	if err != nil {
		return err
	}

	records, err := h.progressService.ListByIntern(c.Request().Context(), actorFromContext(c), internID)
	if err != nil {
		return respondError(h.logger, c, "List intern progress failed", err)
	}

	return c.JSON(http.StatusOK, records)
}
