package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// NotificationHandler serves the caller's notification inbox
type NotificationHandler struct {
	notificationService *services.NotificationService
	logger              *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

type markedResponse struct {
	Updated int64 `json:"updated"`
}

// List godoc
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} entities.Notification
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := ports.NotificationFilter{Limit: limit, Offset: offset}
	if raw := c.QueryParam("unread"); raw != "" {
		if filter.UnreadOnly, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid unread parameter")
		}
	}

	notes, err := h.notificationService.List(c.Request().Context(), actorFromContext(c), filter)
	if err != nil {
		return respondError(h.logger, c, "List notifications failed", err)
	}

	return c.JSON(http.StatusOK, notes)
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} unreadCountResponse
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	n, err := h.notificationService.UnreadCount(c.Request().Context(), actorFromContext(c))
	if err != nil {
		return respondError(h.logger, c, "Unread count failed", err)
	}

	return c.JSON(http.StatusOK, unreadCountResponse{Count: n})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.notificationService.MarkRead(c.Request().Context(), actorFromContext(c), id); err != nil {
		return respondError(h.logger, c, "Mark notification read failed", err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Notification marked as read"})
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags notifications
// @Produce json
// @Success 200 {object} markedResponse
// @Security BearerAuth
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	n, err := h.notificationService.MarkAllRead(c.Request().Context(), actorFromContext(c))
	if err != nil {
		return respondError(h.logger, c, "Mark all notifications read failed", err)
	}

	return c.JSON(http.StatusOK, markedResponse{Updated: n})
}

// Delete godoc
// @Summary Delete a notification
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.notificationService.Delete(c.Request().Context(), actorFromContext(c), id); err != nil {
		return respondError(h.logger, c, "Delete notification failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}
