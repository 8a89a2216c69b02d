package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
	"github.com/internhub/core/internal/ports"
)

// Job is a named background task run on a cron schedule
type Job struct {
	Name     string
	Schedule string
	// Timeout bounds one run and doubles as the lock TTL.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs registered jobs on their schedules. Each run takes a named
// lock first, so only one replica executes a given job at a time.
type Scheduler struct {
	cron    *cron.Cron
	locker  ports.JobLocker
	metrics *metrics.Metrics
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler
func New(locker ports.JobLocker, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	log = log.WithComponent("scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		locker:  locker,
		metrics: m,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a job. Schedules use cron syntax or descriptors such as
// "@every 1h".
func (s *Scheduler) Register(job Job) error {
	if job.Timeout <= 0 {
		job.Timeout = 10 * time.Minute
	}

	_, err := s.cron.AddFunc(job.Schedule, func() {
		s.RunOnce(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}

	s.logger.Infow("Job registered", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// RunOnce executes job immediately under its lock. It reports whether the job
// actually ran.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) bool {
	release, ok, err := s.locker.Acquire(ctx, job.Name, job.Timeout)
	if err != nil {
		s.metrics.JobRun(job.Name, "error")
		s.logger.Errorw("Failed to acquire job lock", "job", job.Name, "error", err)
		return false
	}
	if !ok {
		s.metrics.JobRun(job.Name, "skipped")
		s.logger.Debugw("Job lock held elsewhere, skipping", "job", job.Name)
		return false
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.metrics.JobRun(job.Name, "error")
		s.logger.Errorw("Job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return true
	}

	s.metrics.JobRun(job.Name, "ok")
	s.logger.Infow("Job finished", "job", job.Name, "duration", time.Since(start))
	return true
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infow("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Infow("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
