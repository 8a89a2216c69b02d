package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	release, ok, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	_, ok, err = l.Acquire(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "locks are per name")

	release()
	_, ok, err = l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }

	staleRelease, ok, _ := l.Acquire(ctx, "sweep", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.Acquire(ctx, "sweep", time.Minute)
	require.True(t, ok, "expired lock can be taken over")

	// The stale holder must not release the new holder's lock.
	staleRelease()
	_, ok, _ = l.Acquire(ctx, "sweep", time.Minute)
	assert.False(t, ok)
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, ok, err := NewRedisLocker(client).Acquire(context.Background(), "sweep", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
