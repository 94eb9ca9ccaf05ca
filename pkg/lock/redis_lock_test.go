package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server only: REDIS_URL=redis://localhost:6379/0
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisLockExclusive(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, key) })

	first := NewRedisLock(rdb, key, time.Minute)
	second := NewRedisLock(rdb, key, time.Minute)

	lease, err := first.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = second.TryAcquire(ctx)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))

	again, err := second.TryAcquire(ctx)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestReleaseOnlyDeletesOwnToken(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, key) })

	l := NewRedisLock(rdb, key, time.Minute)
	lease, err := l.TryAcquire(ctx)
	require.NoError(t, err)

	// Simulate expiry followed by another owner taking the key.
	require.NoError(t, rdb.Set(ctx, key, "someone-else", time.Minute).Err())
	require.NoError(t, lease.Release(ctx))

	val, err := rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestNilLeaseRelease(t *testing.T) {
	var lease *Lease
	assert.NoError(t, lease.Release(context.Background()))
}
