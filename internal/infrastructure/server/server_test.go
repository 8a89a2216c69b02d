package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/config"
	"github.com/internhub/core/internal/infrastructure/database"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/server"
	"github.com/internhub/core/internal/ports"
	"github.com/internhub/core/internal/testutil"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *server.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:      config.AppConfig{Name: "InternHub", Version: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite},
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			ExpiresIn: time.Hour,
			Issuer:    "internhub-test",
		},
		Security:   config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:    config.MetricsConfig{Enabled: true},
		Inactivity: config.InactivityConfig{Threshold: 7 * 24 * time.Hour},
	}

	return newTestServerWithConfig(t, cfg)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	db := database.Wrap(testutil.NewTestDB(t), config.DriverSQLite)
	log := logger.NewNop()
	app := server.NewApp(cfg, db, log)

	srv, err := server.New(cfg, db, app, nil, log)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &testServer{t: t, handler: srv.Handler(), app: app}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	_, err := s.app.Auth.CreateUser(context.Background(), ports.CreateUserRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "admin-password",
		Role:     entities.UserRoleAdmin,
	})
	require.NoError(s.t, err)

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", ports.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[ports.AuthResponse](s.t, rec).AccessToken
}

func (s *testServer) registerIntern(email string) (*entities.User, string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/register", "", ports.RegisterRequest{
		Name:     "Intern " + email,
		Email:    email,
		Password: "intern-password",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[ports.AuthResponse](s.t, rec)
	return resp.User, resp.AccessToken
}

func (s *testServer) createTask(adminToken string, internID string) entities.Task {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/tasks", adminToken, map[string]interface{}{
		"title":       "Build landing page",
		"description": "Static page with signup form",
		"assigned_to": internID,
		"priority":    "high",
		"deadline":    time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[entities.Task](s.t, rec)
}

func (s *testServer) taskStatus(token, id string) entities.TaskStatus {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/v1/tasks/"+id, token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[entities.Task](s.t, rec).Status
}

func TestAPI_TaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	intern, internToken := s.registerIntern("ana@example.com")

	task := s.createTask(admin, intern.ID.String())
	assert.Equal(t, entities.TaskStatusPending, task.Status)
	taskID := task.ID.String()

	rec := s.do(http.MethodPost, "/api/v1/progress", internToken, map[string]interface{}{
		"task_id":    taskID,
		"percentage": 40,
		"notes":      "layout done",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progress := decode[entities.Progress](t, rec)
	assert.Equal(t, 40, progress.Percentage)
	assert.Equal(t, entities.TaskStatusInProgress, s.taskStatus(internToken, taskID))

	rec = s.do(http.MethodPost, "/api/v1/tasks/"+taskID+"/submit", internToken, ports.SubmitTaskRequest{
		SubmissionURL: "https://github.com/ana/landing",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entities.TaskStatusCompleted, decode[entities.Task](t, rec).Status)

	rec = s.do(http.MethodPost, "/api/v1/feedback", admin, map[string]interface{}{
		"task_id":   taskID,
		"intern_id": intern.ID.String(),
		"rating":    5,
		"comment":   "Clean work",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fb := decode[entities.Feedback](t, rec)
	assert.Equal(t, entities.TaskStatusReviewed, s.taskStatus(admin, taskID))

	rec = s.do(http.MethodGet, "/api/v1/feedback/intern/"+intern.ID.String(), internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[ports.InternFeedbackSummary](t, rec)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 5.0, summary.AverageRating)

	rec = s.do(http.MethodGet, "/api/v1/notifications/unread-count", internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/v1/feedback/"+fb.ID.String(), admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, entities.TaskStatusCompleted, s.taskStatus(admin, taskID))

	rec = s.do(http.MethodDelete, "/api/v1/tasks/"+taskID, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/tasks/"+taskID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ListingInternsSweepsWithDefaultConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.Inactivity.SweepOnList)

	s := newTestServerWithConfig(t, cfg)
	admin := s.adminToken()
	intern, _ := s.registerIntern("stale@example.com")
	assert.Equal(t, entities.UserStatusActive, intern.Status)

	rec := s.do(http.MethodGet, "/api/v1/users/interns", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[ports.PaginatedResponse[entities.User]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, entities.UserStatusInactive, page.Data[0].Status, "no reviewed work within the threshold")

	rec = s.do(http.MethodGet, "/api/v1/users/"+intern.ID.String(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entities.UserStatusInactive, decode[entities.User](t, rec).Status)
}

func TestAPI_AccessControl(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	intern, internToken := s.registerIntern("ben@example.com")
	task := s.createTask(admin, intern.ID.String())

	rec := s.do(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/tasks", internToken, map[string]interface{}{
		"title": "x", "description": "y", "assigned_to": intern.ID.String(), "deadline": time.Now().UTC().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/feedback", internToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users/interns", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[ports.PaginatedResponse[entities.User]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Contains(t, page.Data[0].AssignedTasks, task.ID)

	_, otherToken := s.registerIntern("cara@example.com")
	rec = s.do(http.MethodGet, "/api/v1/tasks/"+task.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users/me", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cara@example.com", decode[entities.User](t, rec).Email)
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	intern, internToken := s.registerIntern("dan@example.com")
	task := s.createTask(admin, intern.ID.String())

	t.Run("validation details", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"name": "Bad", "email": "not-an-email", "password": "short",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[ports.ErrorResponse](t, rec)
		assert.Equal(t, "validation failed", resp.Message)
		assert.Contains(t, resp.Details, "Email")
		assert.Contains(t, resp.Details, "Password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/auth/register", "", ports.RegisterRequest{
			Name: "Dan again", Email: "dan@example.com", Password: "another-password",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/auth/login", "", ports.LoginRequest{Email: "dan@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("reviewed is set by feedback only", func(t *testing.T) {
		rec := s.do(http.MethodPut, "/api/v1/tasks/"+task.ID.String(), admin, map[string]string{"status": "reviewed"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.HasPrefix(decode[ports.ErrorResponse](t, rec).Message, "invalid status transition"))
	})

	t.Run("unknown task", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/tasks/3f1b8e1e-8d2c-4b7e-9a51-1d2f3c4b5a69", admin, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/tasks/42", admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("percentage out of range", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/progress", internToken, map[string]interface{}{
			"task_id": task.ID.String(), "percentage": 120,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad pagination", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/tasks?limit=0", admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_Notifications(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	intern, internToken := s.registerIntern("eve@example.com")
	s.createTask(admin, intern.ID.String())
	s.createTask(admin, intern.ID.String())

	rec := s.do(http.MethodGet, "/api/v1/notifications?unread=true", internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]entities.Notification](t, rec)
	require.Len(t, notes, 2)
	assert.Equal(t, entities.NotificationTaskAssigned, notes[0].Type)

	rec = s.do(http.MethodPut, "/api/v1/notifications/"+notes[0].ID.String()+"/read", admin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/notifications/"+notes[0].ID.String()+"/read", internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/notifications/read-all", internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/v1/notifications/"+notes[1].ID.String(), internToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/notifications", internToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Notification](t, rec), 1)
}

func TestAPI_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"database"`)

	rec = s.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec = s.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tasks/{id}/submit")
}
