package server

import (
	"context"
	"time"

	"github.com/internhub/core/internal/adapters/repository"
	"github.com/internhub/core/internal/application/services"
	"github.com/internhub/core/internal/infrastructure/config"
	"github.com/internhub/core/internal/infrastructure/database"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/infrastructure/scheduler"
)

// App holds the wired application services. The HTTP server and the CLI
// job commands share it.
type App struct {
	Metrics       *metrics.Metrics
	Auth          *services.AuthService
	Users         *services.UserService
	Tasks         *services.TaskService
	Progress      *services.ProgressService
	Feedback      *services.FeedbackService
	Notifications *services.NotificationService
	Sweeper       *services.InactivitySweeper
	Reconciler    *services.Reconciler

	config *config.Config
	logger *logger.Logger
}

// NewApp builds repositories and services on top of db
func NewApp(cfg *config.Config, db *database.DB, appLogger *logger.Logger) *App {
	m := metrics.New()

	userRepo := repository.NewUserRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	progressRepo := repository.NewProgressRepository(db.DB)
	feedbackRepo := repository.NewFeedbackRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	tx := repository.NewTransactor(db.DB)

	engine := services.NewStatusEngine(taskRepo, m, appLogger)
	notifications := services.NewNotificationService(notificationRepo, appLogger)
	sweeper := services.NewInactivitySweeper(userRepo, taskRepo, cfg.Inactivity.Threshold, m, appLogger)

	return &App{
		Metrics:       m,
		Auth:          services.NewAuthService(userRepo, cfg.JWT, appLogger),
		Users:         services.NewUserService(userRepo, taskRepo, sweeper, cfg.Inactivity.SweepOnList, appLogger),
		Tasks:         services.NewTaskService(taskRepo, userRepo, feedbackRepo, tx, engine, notifications, appLogger),
		Progress:      services.NewProgressService(progressRepo, taskRepo, userRepo, tx, engine, appLogger),
		Feedback:      services.NewFeedbackService(feedbackRepo, taskRepo, userRepo, tx, engine, notifications, m, appLogger),
		Notifications: notifications,
		Sweeper:       sweeper,
		Reconciler:    services.NewReconciler(taskRepo, feedbackRepo, progressRepo, tx, engine, appLogger),
		config:        cfg,
		logger:        appLogger,
	}
}

// Jobs returns the background jobs enabled by configuration.
func (a *App) Jobs() []scheduler.Job {
	var jobs []scheduler.Job

	if a.config.Inactivity.Schedule != "" {
		jobs = append(jobs, scheduler.Job{
			Name:     "inactivity-sweep",
			Schedule: a.config.Inactivity.Schedule,
			Timeout:  5 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := a.Sweeper.Sweep(ctx, time.Now().UTC())
				return err
			},
		})
	}

	if a.config.Reconcile.Enabled && a.config.Reconcile.Schedule != "" {
		jobs = append(jobs, scheduler.Job{
			Name:     "status-reconcile",
			Schedule: a.config.Reconcile.Schedule,
			Timeout:  15 * time.Minute,
			Run: func(ctx context.Context) error {
				n, err := a.Reconciler.Reconcile(ctx)
				if n > 0 {
					a.logger.Infow("Task statuses repaired", "count", n)
				}
				return err
			},
		})
	}

	return jobs
}

// Close waits for background cleanups started by request handlers.
func (a *App) Close() {
	a.Feedback.Wait()
}
