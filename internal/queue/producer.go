package queue

import (
	"context"
	"fmt"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// Producer enqueues clustering jobs onto the primary stream.
type Producer struct {
	client streamclient.Client
	stream string
	maxLen int64
	approx bool
}

// NewProducer builds a Producer writing to stream, trimmed to maxLen
// entries (0 disables trimming).
func NewProducer(client streamclient.Client, stream string, maxLen int64, approx bool) *Producer {
	return &Producer{client: client, stream: stream, maxLen: maxLen, approx: approx}
}

// Enqueue appends job to the stream and returns its assigned message ID.
func (p *Producer) Enqueue(ctx context.Context, job domain.Job) (string, error) {
	values, err := encode(job)
	if err != nil {
		return "", err
	}
	id, err := p.client.Append(ctx, p.stream, values, p.maxLen, p.approx)
	if err != nil {
		if _, ok := apperrors.KindOf(err); ok {
			return "", fmt.Errorf("queue: enqueue job %s: %w", job.JobID, err)
		}
		return "", apperrors.New(apperrors.KindBrokerUnavailable, fmt.Errorf("queue: enqueue job %s: %w", job.JobID, err))
	}
	return id, nil
}
