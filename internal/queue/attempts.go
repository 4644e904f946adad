package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptsTracker counts delivery attempts per job id out-of-band,
// rather than rewriting the stream entry on every retry.
type AttemptsTracker interface {
	Increment(ctx context.Context, jobID string) (int64, error)
	Reset(ctx context.Context, jobID string) error
}

type redisAttemptsTracker struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

// NewAttemptsTracker builds a Redis-backed AttemptsTracker. Counters expire
// after ttl so abandoned jobs don't leak keys forever.
func NewAttemptsTracker(rdb *redis.Client, namespace string, ttl time.Duration) AttemptsTracker {
	return &redisAttemptsTracker{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (t *redisAttemptsTracker) key(jobID string) string {
	return fmt.Sprintf("%s:attempts:%s", t.namespace, jobID)
}

// Increment atomically bumps and returns the new attempt count for jobID,
// refreshing its TTL.
func (t *redisAttemptsTracker) Increment(ctx context.Context, jobID string) (int64, error) {
	key := t.key(jobID)
	n, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: incr attempts for %s: %w", jobID, err)
	}
	if t.ttl > 0 {
		t.rdb.Expire(ctx, key, t.ttl)
	}
	return n, nil
}

// Reset clears the attempt counter for jobID, e.g. after a successful run.
func (t *redisAttemptsTracker) Reset(ctx context.Context, jobID string) error {
	if err := t.rdb.Del(ctx, t.key(jobID)).Err(); err != nil {
		return fmt.Errorf("queue: reset attempts for %s: %w", jobID, err)
	}
	return nil
}
