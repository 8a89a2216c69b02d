package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/internhub/core/docs"
	"github.com/internhub/core/internal/adapters/cache"
	httpHandlers "github.com/internhub/core/internal/adapters/http"
	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/config"
	"github.com/internhub/core/internal/infrastructure/database"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/scheduler"
	"github.com/internhub/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo      *echo.Echo
	config    *config.Config
	logger    *logger.Logger
	db        *database.DB
	redis     *redis.Client
	app       *App
	scheduler *scheduler.Scheduler
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance. rdb may be nil, in which case jobs are
// guarded by an in-process lock only.
func New(cfg *config.Config, db *database.DB, app *App, rdb *redis.Client, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	var locker ports.JobLocker = cache.NewMemoryLocker()
	if rdb != nil {
		locker = cache.NewRedisLocker(rdb)
	}

	jobs := scheduler.New(locker, app.Metrics, appLogger)
	for _, job := range app.Jobs() {
		if err := jobs.Register(job); err != nil {
			return nil, err
		}
	}

	server := &Server{
		echo:      e,
		config:    cfg,
		logger:    appLogger,
		db:        db,
		redis:     rdb,
		app:       app,
		scheduler: jobs,
	}

	server.setupMiddleware()
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}
	server.setupRoutes()

	return server, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil && values.Status >= http.StatusInternalServerError {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds()),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: 3 * window,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusForbidden, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Path(), "/swagger")
			},
			ErrorMessage: "request timed out",
			Timeout:      s.config.Server.RequestTimeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	authHandler := httpHandlers.NewAuthHandler(s.app.Auth, s.logger)
	userHandler := httpHandlers.NewUserHandler(s.app.Users, s.logger)
	taskHandler := httpHandlers.NewTaskHandler(s.app.Tasks, s.logger)
	progressHandler := httpHandlers.NewProgressHandler(s.app.Progress, s.logger)
	feedbackHandler := httpHandlers.NewFeedbackHandler(s.app.Feedback, s.logger)
	notificationHandler := httpHandlers.NewNotificationHandler(s.app.Notifications, s.logger)

	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := s.echo.Group("/api/v1")
	auth := s.authMiddleware()
	adminOnly := s.requireRole(entities.UserRoleAdmin)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	userGroup := v1.Group("/users", auth)
	userGroup.GET("/me", userHandler.GetCurrentUser)
	userGroup.GET("", userHandler.ListUsers, adminOnly)
	userGroup.GET("/interns", userHandler.ListInterns, adminOnly)
	userGroup.GET("/:id", userHandler.GetUser, adminOnly)

	taskGroup := v1.Group("/tasks", auth)
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask, adminOnly)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask, adminOnly)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask, adminOnly)
	taskGroup.POST("/:id/submit", taskHandler.SubmitTask)

	progressGroup := v1.Group("/progress", auth)
	progressGroup.POST("", progressHandler.RecordProgress)
	progressGroup.GET("/task/:taskId", progressHandler.ListByTask)
	progressGroup.GET("/intern/:internId", progressHandler.ListByIntern)

	feedbackGroup := v1.Group("/feedback", auth)
	feedbackGroup.GET("", feedbackHandler.ListFeedback, adminOnly)
	feedbackGroup.POST("", feedbackHandler.CreateFeedback, adminOnly)
	feedbackGroup.GET("/task/:taskId", feedbackHandler.ListByTask)
	feedbackGroup.GET("/intern/:internId", feedbackHandler.InternSummary)
	feedbackGroup.GET("/:id", feedbackHandler.GetFeedback)
	feedbackGroup.PUT("/:id", feedbackHandler.UpdateFeedback, adminOnly)
	feedbackGroup.DELETE("/:id", feedbackHandler.DeleteFeedback, adminOnly)

	notificationGroup := v1.Group("/notifications", auth)
	notificationGroup.GET("", notificationHandler.List)
	notificationGroup.GET("/unread-count", notificationHandler.UnreadCount)
	notificationGroup.PUT("/read-all", notificationHandler.MarkAllRead)
	notificationGroup.PUT("/:id/read", notificationHandler.MarkRead)
	notificationGroup.DELETE("/:id", notificationHandler.Delete)
}

// setupMetrics records request metrics and exposes /metrics
func (s *Server) setupMetrics() {
	m := s.app.Metrics

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			m.RequestsTotal.WithLabelValues(c.Request().Method, c.Path(), fmt.Sprintf("%d", status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status = "error"
			checks["redis"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			checks["redis"] = map[string]interface{}{"status": "ok"}
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the background jobs and the HTTP server. It blocks until the
// server stops; http.ErrServerClosed is not reported as an error.
func (s *Server) Start(address string) error {
	s.scheduler.Start()
	s.logger.Infow("Starting server", "address", address)

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")

	if err := s.scheduler.Stop(ctx); err != nil {
		s.logger.Warnw("Scheduler did not stop in time", "error", err)
	}
	err := s.echo.Shutdown(ctx)
	s.app.Close()
	return err
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			resp = ports.ErrorResponse{Message: http.StatusText(http.StatusInternalServerError)}
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			resp.Message = fmt.Sprint(he.Message)
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			resp.Message = "validation failed"
			details := make(map[string]interface{}, len(ve))
			for _, fe := range ve {
				details[fe.Field()] = fe.Tag()
			}
			resp.Details = details
		default:
			if status, msg := httpHandlers.StatusFor(err); status != http.StatusInternalServerError {
				code, resp.Message = status, msg
			}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
