package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// userLockPrefix is the Redis key prefix for per-user upsert locks.
	userLockPrefix = "lock:user:"
	// lockRetryInterval is the pause between acquisition attempts.
	lockRetryInterval = 25 * time.Millisecond
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// wait limit.
var ErrLockTimeout = errors.New("lock wait exceeded")

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// UserLocker serializes upserts for the same user id across processes.
type UserLocker struct {
	cache *Cache
	ttl   time.Duration
	wait  time.Duration
}

// NewUserLocker creates a UserLocker. ttl bounds how long a crashed holder
// keeps the lock; wait bounds how long Lock retries.
func NewUserLocker(c *Cache, ttl, wait time.Duration) *UserLocker {
	return &UserLocker{
		cache: c,
		ttl:   ttl,
		wait:  wait,
	}
}

// Lock acquires the lock for id and returns its release function.
func (l *UserLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := userLockPrefix + id
	token := ulid.Make().String()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.cache.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire user lock: %w", err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *UserLocker) releaser(key, token string) func() {
	return func() {
		// Released on a fresh context so a finished request still frees the key.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.cache.client, []string{key}, token).Err()
	}
}
