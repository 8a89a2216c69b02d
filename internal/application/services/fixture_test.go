package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/internhub/core/internal/adapters/repository"
	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/config"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/ports"
	"github.com/internhub/core/internal/testutil"
)

type fixture struct {
	clock time.Time

	userRepo         ports.UserRepository
	taskRepo         ports.TaskRepository
	progressRepo     ports.ProgressRepository
	feedbackRepo     ports.FeedbackRepository
	notificationRepo ports.NotificationRepository

	engine        *StatusEngine
	notifications *NotificationService
	tasks         *TaskService
	progress      *ProgressService
	feedback      *FeedbackService
	sweeper       *InactivitySweeper
	reconciler    *Reconciler
	users         *UserService
	auth          *AuthService

	admin  *entities.User
	intern *entities.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	log := logger.NewNop()
	m := metrics.New()
	tx := repository.NewTransactor(db)

	f := &fixture{
		clock:            time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		userRepo:         repository.NewUserRepository(db),
		taskRepo:         repository.NewTaskRepository(db),
		progressRepo:     repository.NewProgressRepository(db),
		feedbackRepo:     repository.NewFeedbackRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
	}
	now := func() time.Time { return f.clock }

	f.engine = NewStatusEngine(f.taskRepo, m, log)
	f.engine.now = now
	f.notifications = NewNotificationService(f.notificationRepo, log)
	f.tasks = NewTaskService(f.taskRepo, f.userRepo, f.feedbackRepo, tx, f.engine, f.notifications, log)
	f.tasks.now = now
	f.progress = NewProgressService(f.progressRepo, f.taskRepo, f.userRepo, tx, f.engine, log)
	f.progress.now = now
	f.feedback = NewFeedbackService(f.feedbackRepo, f.taskRepo, f.userRepo, tx, f.engine, f.notifications, m, log)
	f.feedback.now = now
	f.sweeper = NewInactivitySweeper(f.userRepo, f.taskRepo, 7*24*time.Hour, m, log)
	f.reconciler = NewReconciler(f.taskRepo, f.feedbackRepo, f.progressRepo, tx, f.engine, log)
	f.users = NewUserService(f.userRepo, f.taskRepo, f.sweeper, false, log)
	f.auth = NewAuthService(f.userRepo, config.JWTConfig{
		Secret:    "test-secret",
		ExpiresIn: time.Hour,
		Issuer:    "internhub-test",
	}, log)

	f.admin = f.createUser(t, "admin@example.com", entities.UserRoleAdmin)
	f.intern = f.createUser(t, "intern@example.com", entities.UserRoleIntern)

	return f
}

func (f *fixture) createUser(t *testing.T, email string, role entities.UserRole) *entities.User {
	t.Helper()
	u := &entities.User{Name: email, Email: email, PasswordHash: "x", Role: role, CreatedAt: f.clock}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func (f *fixture) adminActor() ports.Actor {
	return ports.Actor{ID: f.admin.ID, Role: entities.UserRoleAdmin}
}

func (f *fixture) internActor() ports.Actor {
	return ports.Actor{ID: f.intern.ID, Role: entities.UserRoleIntern}
}

func (f *fixture) createTask(t *testing.T) *entities.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), f.adminActor(), ports.CreateTaskRequest{
		Title:       "Write report",
		Description: "Quarterly report",
		AssignedTo:  f.intern.ID,
		Priority:    entities.PriorityHigh,
		Deadline:    f.clock.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) taskStatus(t *testing.T, task *entities.Task) entities.TaskStatus {
	t.Helper()
	got, err := f.taskRepo.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	return got.Status
}

func (f *fixture) giveFeedback(t *testing.T, task *entities.Task, rating int) *entities.Feedback {
	t.Helper()
	fb, err := f.feedback.CreateFeedback(context.Background(), f.adminActor(), ports.CreateFeedbackRequest{
		TaskID:   task.ID,
		InternID: f.intern.ID,
		Rating:   rating,
		Comment:  "Great work",
	})
	require.NoError(t, err)
	return fb
}

func (f *fixture) setUserStatus(t *testing.T, u *entities.User, status entities.UserStatus) {
	t.Helper()
	require.NoError(t, f.userRepo.UpdateStatus(context.Background(), u.ID, status))
}

func (f *fixture) userStatus(t *testing.T, u *entities.User) entities.UserStatus {
	t.Helper()
	got, err := f.userRepo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.Status
}

func ptr[T any](v T) *T {
	return &v
}
