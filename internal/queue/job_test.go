package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
)

func TestEncodeDecode_RoundTrips(t *testing.T) {
	job := domain.Job{
		JobID: "job-1",
		PetID: "pet-1",
		Payload: domain.JobPayload{
			ImageIDs:     []string{"a", "b", "a"},
			QualityScore: 0.75,
		},
	}

	values, err := encode(job)
	require.NoError(t, err)

	got, err := decode(streamclient.Message{ID: "1-0", Values: values})
	require.NoError(t, err)

	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, job.PetID, got.PetID)
	assert.Equal(t, []string{"a", "b"}, got.Payload.ImageIDs, "decode normalizes duplicate image ids")
}

func TestDecode_MissingPayloadFieldIsClassified(t *testing.T) {
	_, err := decode(streamclient.Message{ID: "1-0", Values: map[string]interface{}{}})
	require.Error(t, err)

	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindDecode, kind)
}
