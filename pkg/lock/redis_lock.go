// Package lock provides a cross-instance mutual exclusion lease on Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("lock held by another owner")

// Only the owner that set the key may delete it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// Lease is a held lock. Release it exactly once.
type Lease struct {
	lock  *RedisLock
	token string
}

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLock{rdb: rdb, key: key, ttl: ttl}
}

// TryAcquire does not wait: it returns ErrNotAcquired when the key is held.
func (l *RedisLock) TryAcquire(ctx context.Context) (*Lease, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lease{lock: l, token: token}, nil
}

func (le *Lease) Release(ctx context.Context) error {
	if le == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, le.lock.rdb, []string{le.lock.key}, le.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", le.lock.key, err)
	}
	return nil
}
