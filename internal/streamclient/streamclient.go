// Package streamclient wraps the Redis Streams primitives the worker loop
// and producer need, the way the source ecosystem's queue package wraps
// XADD/XREADGROUP/XACK behind a narrower, mockable interface.
package streamclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
)

// StartID is the special XREADGROUP cursor meaning "only messages never
// delivered to any consumer of the group".
const StartID = ">"

// Message is one entry read from a stream, with its delivery metadata.
type Message struct {
	ID     string
	Stream string
	Values map[string]interface{}
}

// PendingEntry describes one still-unacknowledged delivery, as reported by
// XPENDING ... IDLE.
type PendingEntry struct {
	ID         string
	Consumer   string
	IdleTime   time.Duration
	RetryCount int64
}

// Client is the narrow surface the producer, consumer, and worker loop need
// from Redis Streams.
type Client interface {
	EnsureGroup(ctx context.Context, stream, group string) error
	Append(ctx context.Context, stream string, values map[string]interface{}, maxLen int64, approx bool) (string, error)
	ReadGroup(ctx context.Context, stream, group, consumer, start string, count int64, block time.Duration) ([]Message, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	PendingIdle(ctx context.Context, stream, group string, minIdle time.Duration, count int64) ([]PendingEntry, error)
	Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids []string) ([]Message, error)
	Len(ctx context.Context, stream string) (int64, error)
	PendingSummary(ctx context.Context, stream, group string) (total int64, perConsumer map[string]int64, err error)
	GroupExists(ctx context.Context, stream, group string) (bool, error)
	Ping(ctx context.Context) error
}

type redisClient struct {
	rdb *redis.Client
}

// New wraps an existing *redis.Client.
func New(rdb *redis.Client) Client {
	return &redisClient{rdb: rdb}
}

// EnsureGroup creates the consumer group and backing stream if they don't
// already exist, anchored at $ so only messages added after group creation
// are delivered, tolerating the BUSYGROUP error the way repeated worker
// restarts require.
func (c *redisClient) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("streamclient: create group %s on %s: %w", group, stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return strings.Contains(err.Error(), "BUSYGROUP")
}

// Append adds an entry to stream and optionally trims it to maxLen.
func (c *redisClient) Append(ctx context.Context, stream string, values map[string]interface{}, maxLen int64, approx bool) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = approx
	}
	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", apperrors.New(apperrors.KindBrokerUnavailable, fmt.Errorf("streamclient: xadd %s: %w", stream, err))
	}
	return id, nil
}

// ReadGroup reads up to count entries for consumer, blocking for up to
// block when start is StartID and nothing is immediately available.
func (c *redisClient) ReadGroup(ctx context.Context, stream, group, consumer, start string, count int64, block time.Duration) ([]Message, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, start},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamclient: xreadgroup %s: %w", stream, err)
	}

	var out []Message
	for _, s := range res {
		for _, m := range s.Messages {
			out = append(out, Message{ID: m.ID, Stream: s.Stream, Values: m.Values})
		}
	}
	return out, nil
}

// Ack acknowledges one or more message IDs.
func (c *redisClient) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("streamclient: xack %s: %w", stream, err)
	}
	return nil
}

// PendingIdle lists deliveries idle for at least minIdle, for reclaim.
func (c *redisClient) PendingIdle(ctx context.Context, stream, group string, minIdle time.Duration, count int64) ([]PendingEntry, error) {
	res, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamclient: xpending %s: %w", stream, err)
	}

	out := make([]PendingEntry, 0, len(res))
	for _, p := range res {
		out = append(out, PendingEntry{
			ID:         p.ID,
			Consumer:   p.Consumer,
			IdleTime:   p.Idle,
			RetryCount: p.RetryCount,
		})
	}
	return out, nil
}

// Claim transfers ownership of ids to consumer via XCLAIM.
func (c *redisClient) Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids []string) ([]Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	res, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamclient: xclaim %s: %w", stream, err)
	}

	out := make([]Message, 0, len(res))
	for _, m := range res {
		out = append(out, Message{ID: m.ID, Stream: stream, Values: m.Values})
	}
	return out, nil
}

// Len reports the current stream length.
func (c *redisClient) Len(ctx context.Context, stream string) (int64, error) {
	n, err := c.rdb.XLen(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("streamclient: xlen %s: %w", stream, err)
	}
	return n, nil
}

// PendingSummary reports the group's total unacknowledged delivery count
// and a breakdown per consumer, via the cheap XPENDING summary form rather
// than paging through entries.
func (c *redisClient) PendingSummary(ctx context.Context, stream, group string) (int64, map[string]int64, error) {
	res, err := c.rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("streamclient: xpending summary %s: %w", stream, err)
	}

	perConsumer := make(map[string]int64, len(res.Consumers))
	for consumer, count := range res.Consumers {
		perConsumer[consumer] = count
	}
	return res.Count, perConsumer, nil
}

// GroupExists reports whether group is registered on stream, via XINFO
// GROUPS. A missing stream counts as a missing group, not an error.
func (c *redisClient) GroupExists(ctx context.Context, stream, group string) (bool, error) {
	groups, err := c.rdb.XInfoGroups(ctx, stream).Result()
	if err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return false, nil
		}
		return false, fmt.Errorf("streamclient: xinfo groups %s: %w", stream, err)
	}
	for _, g := range groups {
		if g.Name == group {
			return true, nil
		}
	}
	return false, nil
}

// Ping verifies the underlying connection is reachable.
func (c *redisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
