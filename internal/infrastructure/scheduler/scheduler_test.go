package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/metrics"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Acquire(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released++
	}, true, nil
}

func TestRunOnce(t *testing.T) {
	locker := newFakeLocker()
	s := New(locker, metrics.New(), logger.NewNop())

	var runs int32
	job := Job{Name: "sweep", Timeout: time.Second, Run: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		atomic.AddInt32(&runs, 1)
		return nil
	}}

	assert.True(t, s.RunOnce(context.Background(), job))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.Equal(t, 1, locker.released)
}

func TestRunOnce_SkipsWhenLockHeld(t *testing.T) {
	locker := newFakeLocker()
	locker.held["sweep"] = true
	s := New(locker, metrics.New(), logger.NewNop())

	ran := false
	ok := s.RunOnce(context.Background(), Job{Name: "sweep", Timeout: time.Second, Run: func(context.Context) error {
		ran = true
		return nil
	}})
	assert.False(t, ok)
	assert.False(t, ran)
}

func TestRunOnce_LockError(t *testing.T) {
	locker := newFakeLocker()
	locker.err = errors.New("redis down")
	s := New(locker, metrics.New(), logger.NewNop())

	ran := false
	ok := s.RunOnce(context.Background(), Job{Name: "sweep", Timeout: time.Second, Run: func(context.Context) error {
		ran = true
		return nil
	}})
	assert.False(t, ok)
	assert.False(t, ran)
}

func TestRunOnce_JobErrorReleasesLock(t *testing.T) {
	locker := newFakeLocker()
	s := New(locker, metrics.New(), logger.NewNop())

	ok := s.RunOnce(context.Background(), Job{Name: "reconcile", Timeout: time.Second, Run: func(context.Context) error {
		return errors.New("boom")
	}})
	assert.True(t, ok)
	assert.Equal(t, 1, locker.released)
}

func TestRegister(t *testing.T) {
	s := New(newFakeLocker(), metrics.New(), logger.NewNop())

	err := s.Register(Job{Name: "bad", Schedule: "not a schedule", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	fired := make(chan struct{}, 1)
	err = s.Register(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}})
	require.NoError(t, err)

	s.Start()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
