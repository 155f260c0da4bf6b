package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("schedule lock not acquired")

// Locker guards the check-then-create sequence for one booking scope: a
// therapist's calendar, or the clinic-wide (room) calendar when therapistID
// is nil. The database exclusion constraint remains the final arbiter; the
// lock keeps the common case from ever reaching it.
type Locker interface {
	WithScheduleLock(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleLocker creates a locker keyed per booking scope.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func scopeKey(clinicID uuid.UUID, therapistID *uuid.UUID) string {
	if therapistID == nil {
		return fmt.Sprintf("lock:schedule:%s:clinic", clinicID)
	}
	return fmt.Sprintf("lock:schedule:%s:%s", clinicID, therapistID)
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, fn func(ctx context.Context) error) error {
	key := scopeKey(clinicID, therapistID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
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

// release only deletes the key when it still holds our token, so an expired
// lock taken over by another caller is never clobbered.
func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
