package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/ports"
)

// Context keys set by the auth middleware.
const (
	ContextKeyUserID    = "user"
	ContextKeyUserRole  = "user_role"
	ContextKeyUserEmail = "user_email"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register an intern account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Registration data"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(h.logger, c, "Register failed", err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidCredentials) {
			h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
				"email": req.Email,
			})
		}
		return respondError(h.logger, c, "Login failed", err)
	}

	return c.JSON(http.StatusOK, resp)
}

// UserHandler handles user-related requests
type UserHandler struct {
	userService *services.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetCurrentUser godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Success 200 {object} entities.User
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	actor := actorFromContext(c)

	user, err := h.userService.GetUser(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(h.logger, c, "Get current user failed", err)
	}

	return c.JSON(http.StatusOK, user)
}

// GetUser godoc
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} entities.User
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(h.logger, c, "Get user failed", err)
	}

	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param role query string false "admin or intern"
// @Param status query string false "active or inactive"
// @Param search query string false "Name or email fragment"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ports.PaginatedResponse[entities.User]
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	filter, err := userFilter(c)
	if err != nil {
		return err
	}

	users, total, err := h.userService.ListUsers(c.Request().Context(), actorFromContext(c), filter)
	if err != nil {
		return respondError(h.logger, c, "List users failed", err)
	}

	return c.JSON(http.StatusOK, ports.PaginatedResponse[*entities.User]{
		Data:   users,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// ListInterns godoc
// @Summary List interns with their assigned tasks
// @Tags users
// @Produce json
// @Param status query string false "active or inactive"
// @Param search query string false "Name or email fragment"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ports.PaginatedResponse[entities.User]
// @Security BearerAuth
// @Router /users/interns [get]
func (h *UserHandler) ListInterns(c echo.Context) error {
	filter, err := userFilter(c)
	if err != nil {
		return err
	}

	interns, total, err := h.userService.ListInterns(c.Request().Context(), actorFromContext(c), filter)
	if err != nil {
		return respondError(h.logger, c, "List interns failed", err)
	}

	return c.JSON(http.StatusOK, ports.PaginatedResponse[*entities.User]{
		Data:   interns,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func userFilter(c echo.Context) (ports.UserFilter, error) {
	limit, offset, err := pagination(c)
	if err != nil {
		return ports.UserFilter{}, err
	}

	filter := ports.UserFilter{Limit: limit, Offset: offset}
	if role := c.QueryParam("role"); role != "" {
		userRole := entities.UserRole(role)
		filter.Role = &userRole
	}
	if status := c.QueryParam("status"); status != "" {
		userStatus := entities.UserStatus(status)
		filter.Status = &userStatus
	}
	if search := c.QueryParam("search"); search != "" {
		filter.Search = &search
	}
	return filter, nil
}

// Utility functions

func actorFromContext(c echo.Context) ports.Actor {
	actor := ports.Actor{}
	if id, ok := c.Get(ContextKeyUserID).(string); ok {
		actor.ID, _ = uuid.Parse(id)
	}
	if role, ok := c.Get(ContextKeyUserRole).(entities.UserRole); ok {
		actor.Role = role
	}
	return actor
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func optionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return &id, nil
}

func pagination(c echo.Context) (int, int, error) {
	limit := defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter")
		}
		limit = min(v, maxPageSize)
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid offset parameter")
		}
		offset = v
	}

	return limit, offset, nil
}

var errorStatuses = []struct {
	err  error
	code int
}{
	{entities.ErrValidation, http.StatusBadRequest},
	{entities.ErrInvalidTransition, http.StatusBadRequest},
	{entities.ErrInvalidAssignee, http.StatusBadRequest},
	{entities.ErrInvalidCredentials, http.StatusUnauthorized},
	{entities.ErrForbidden, http.StatusForbidden},
	{entities.ErrNotAssignee, http.StatusForbidden},
	{entities.ErrTaskNotFound, http.StatusNotFound},
	{entities.ErrUserNotFound, http.StatusNotFound},
	{entities.ErrProgressNotFound, http.StatusNotFound},
	{entities.ErrFeedbackNotFound, http.StatusNotFound},
	{entities.ErrNotificationNotFound, http.StatusNotFound},
	{entities.ErrEmailTaken, http.StatusConflict},
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			msg := err.Error()
			// Drop the call-site prefixes added while wrapping.
			if i := strings.Index(msg, e.err.Error()); i > 0 {
				msg = msg[i:]
			}
			return e.code, msg
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func respondError(log *logger.Logger, c echo.Context, msg string, err error) error {
	code, public := StatusFor(err)
	if actor := actorFromContext(c); actor.ID != uuid.Nil {
		log = log.WithUserID(actor.ID.String())
	}
	if code >= http.StatusInternalServerError {
		log.Errorw(msg, "error", err, "path", c.Request().URL.Path)
	} else {
		log.Debugw(msg, "error", err, "status", code, "path", c.Request().URL.Path)
	}
	return echo.NewHTTPError(code, public).SetInternal(err)
}
