// Package queue encodes domain.Job onto Redis Streams and decodes it back,
// tracking delivery attempts out-of-band so retries never require
// rewriting a stream entry.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

// payloadField is the single stream field holding the job's JSON encoding.
const payloadField = "payload"

// ConsumedJob pairs a decoded Job with the delivery metadata needed to
// acknowledge, reclaim, or dead-letter it.
type ConsumedJob struct {
	MessageID string
	Stream    string
	Job       domain.Job
	Attempts  int64
}

func encode(job domain.Job) (map[string]interface{}, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, apperrors.New(apperrors.KindFatal, fmt.Errorf("queue: marshal job %s: %w", job.JobID, err))
	}
	return map[string]interface{}{payloadField: data}, nil
}

func decode(msg streamclient.Message) (domain.Job, error) {
	raw, ok := msg.Values[payloadField]
	if !ok {
		return domain.Job{}, apperrors.Newf(apperrors.KindDecode, "message %s missing %q field", msg.ID, payloadField)
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return domain.Job{}, apperrors.Newf(apperrors.KindDecode, "message %s field %q has unexpected type %T", msg.ID, payloadField, raw)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.Job{}, apperrors.New(apperrors.KindDecode, fmt.Errorf("queue: unmarshal message %s: %w", msg.ID, err))
	}
	job.Payload.Normalize()
	return job, nil
}
