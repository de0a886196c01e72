// Package lock provides a Redis mutex used to serialise the two
// read-modify-write operations of the claims core (asset replacement and
// settlement) across service instances. The database row lock remains the
// source of truth; this only keeps competing instances from queueing on it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insurledger-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock held")

const keyPrefix = "insurledger:lock:"

// release deletes the key only if it still carries our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is satisfied by RedisLocker and by no-op implementations.
type Locker interface {
	Acquire(ctx context.Context, key string) (unlock func(), err error)
}

// RedisLocker holds keys with SET NX PX.
type RedisLocker struct {
	Rdb *redis.Client
	TTL time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{Rdb: rdb, TTL: ttl}
}

// Acquire takes key or fails with ErrHeld. The returned func releases it.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.Rdb.SetNX(ctx, keyPrefix+key, token, l.TTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return func() {
		// Background: the caller's ctx may already be done when we unlock.
		_ = release.Run(context.Background(), l.Rdb, []string{keyPrefix + key}, token).Err()
	}, nil
}

// Noop never blocks; used when REDIS_URL is not configured.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// Hold acquires key on l, treating a nil Locker as Noop. Contention is
// reported as a Conflict so callers can retry.
func Hold(ctx context.Context, l Locker, key string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	unlock, err := l.Acquire(ctx, key)
	if errors.Is(err, ErrHeld) {
		return nil, domain.Conflict("%s is being modified by another request", key)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return unlock, nil
}
