package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking write guard not acquired")
)

// Guard serializes interactive writes to a single booking so a double-submitted
// form cannot race itself. The reconciliation engine does not use it: its
// writes are idempotent by construction and rely on transaction isolation.
type Guard interface {
	WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisBookingGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookingGuard creates a guard that uses a per-booking Redis key.
func NewRedisBookingGuard(client *redis.Client, ttl time.Duration) Guard {
	return &redisBookingGuard{
		client: client,
		ttl:    ttl,
	}
}

func (g *redisBookingGuard) WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("guard:booking:%s", bookingID.String())
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire booking guard: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = g.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (g *redisBookingGuard) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, g.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking guard: %w", err)
	}
	return nil
}
