package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// Consumer reads and reclaims messages for one worker consumer name within
// a shared consumer group.
type Consumer struct {
	client    streamclient.Client
	attempts  AttemptsTracker
	stream    string
	group     string
	consumer  string
	readCount int64
	readBlock time.Duration
	retryIdle time.Duration
}

// Config configures a Consumer.
type Config struct {
	Stream    string
	Group     string
	Consumer  string
	ReadCount int64
	ReadBlock time.Duration
	RetryIdle time.Duration
}

// NewConsumer builds a Consumer and ensures its consumer group exists.
func NewConsumer(ctx context.Context, client streamclient.Client, attempts AttemptsTracker, cfg Config) (*Consumer, error) {
	if err := client.EnsureGroup(ctx, cfg.Stream, cfg.Group); err != nil {
		return nil, err
	}
	return &Consumer{
		client:    client,
		attempts:  attempts,
		stream:    cfg.Stream,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
		readCount: cfg.ReadCount,
		readBlock: cfg.ReadBlock,
		retryIdle: cfg.RetryIdle,
	}, nil
}

// ReadNew blocks for up to the configured read timeout for newly delivered
// messages, decoding each into a ConsumedJob. A first-time delivery's
// attempt count is never incremented; only a reclaim bumps it.
func (c *Consumer) ReadNew(ctx context.Context) ([]ConsumedJob, error) {
	msgs, err := c.client.ReadGroup(ctx, c.stream, c.group, c.consumer, streamclient.StartID, c.readCount, c.readBlock)
	if err != nil {
		return nil, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: read new: %w", err))
	}
	return c.toConsumedJobs(ctx, msgs, false)
}

// ReclaimIdle claims up to count deliveries idle for at least the
// configured retry interval, attributing them to this consumer and
// incrementing each reclaimed job's attempt count.
func (c *Consumer) ReclaimIdle(ctx context.Context, count int64) ([]ConsumedJob, error) {
	pending, err := c.client.PendingIdle(ctx, c.stream, c.group, c.retryIdle, count)
	if err != nil {
		return nil, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: list pending: %w", err))
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}

	msgs, err := c.client.Claim(ctx, c.stream, c.group, c.consumer, c.retryIdle, ids)
	if err != nil {
		return nil, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: claim: %w", err))
	}
	return c.toConsumedJobs(ctx, msgs, true)
}

func (c *Consumer) toConsumedJobs(ctx context.Context, msgs []streamclient.Message, reclaimed bool) ([]ConsumedJob, error) {
	out := make([]ConsumedJob, 0, len(msgs))
	for _, msg := range msgs {
		job, err := decode(msg)
		if err != nil {
			out = append(out, ConsumedJob{MessageID: msg.ID, Stream: msg.Stream, Attempts: 0, Job: job})
			continue
		}

		if !reclaimed {
			out = append(out, ConsumedJob{MessageID: msg.ID, Stream: msg.Stream, Job: job, Attempts: 0})
			continue
		}

		n, incErr := c.attempts.Increment(ctx, job.JobID)
		if incErr != nil {
			return nil, apperrors.New(apperrors.KindBrokerTransient, incErr)
		}

		out = append(out, ConsumedJob{MessageID: msg.ID, Stream: msg.Stream, Job: job, Attempts: n})
	}
	return out, nil
}

// PendingCount reports this consumer's current unacknowledged delivery
// count, for the worker pool's backpressure gate.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	_, perConsumer, err := c.client.PendingSummary(ctx, c.stream, c.group)
	if err != nil {
		return 0, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: pending summary: %w", err))
	}
	return perConsumer[c.consumer], nil
}

// Ack acknowledges successfully processed messages and clears their
// attempt counters.
func (c *Consumer) Ack(ctx context.Context, job ConsumedJob) error {
	if err := c.client.Ack(ctx, c.stream, c.group, job.MessageID); err != nil {
		return apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: ack %s: %w", job.MessageID, err))
	}
	if job.Job.JobID != "" {
		_ = c.attempts.Reset(ctx, job.Job.JobID)
	}
	return nil
}

// DeadLetter appends job to deadLetterStream, acknowledges the original
// delivery so it stops being retried, and clears its attempt counter.
func (c *Consumer) DeadLetter(ctx context.Context, deadLetterStream string, job ConsumedJob, reason string) error {
	values := map[string]interface{}{
		"original_message_id": job.MessageID,
		"reason":              reason,
		"attempts":            job.Attempts,
	}
	if job.Job.JobID != "" {
		encoded, err := encode(job.Job)
		if err == nil {
			for k, v := range encoded {
				values[k] = v
			}
		}
	}

	if _, err := c.client.Append(ctx, deadLetterStream, values, 0, false); err != nil {
		return apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: dead-letter %s: %w", job.MessageID, err))
	}
	if err := c.client.Ack(ctx, c.stream, c.group, job.MessageID); err != nil {
		return apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("queue: ack dead-lettered %s: %w", job.MessageID, err))
	}
	if job.Job.JobID != "" {
		_ = c.attempts.Reset(ctx, job.Job.JobID)
	}
	return nil
}
