package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/logger"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
	"github.com/rclong1221/sploot-media-clustering/internal/queue"
	"github.com/rclong1221/sploot-media-clustering/internal/strategy"
	"github.com/rclong1221/sploot-media-clustering/internal/streamclient"
	"github.com/rclong1221/sploot-media-clustering/internal/worker"
)

// fakeStreamClient is an in-memory stand-in for streamclient.Client, just
// enough to drive the Consumer -> Worker pipeline without a real Redis.
type fakeStreamClient struct {
	acked []string
}

func (f *fakeStreamClient) EnsureGroup(context.Context, string, string) error { return nil }
func (f *fakeStreamClient) Append(context.Context, string, map[string]interface{}, int64, bool) (string, error) {
	return "1-0", nil
}
func (f *fakeStreamClient) ReadGroup(context.Context, string, string, string, string, int64, time.Duration) ([]streamclient.Message, error) {
	return nil, nil
}
func (f *fakeStreamClient) Ack(_ context.Context, _, _ string, ids ...string) error {
	f.acked = append(f.acked, ids...)
	return nil
}
func (f *fakeStreamClient) PendingIdle(context.Context, string, string, time.Duration, int64) ([]streamclient.PendingEntry, error) {
	return nil, nil
}
func (f *fakeStreamClient) Claim(context.Context, string, string, string, time.Duration, []string) ([]streamclient.Message, error) {
	return nil, nil
}
func (f *fakeStreamClient) Len(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeStreamClient) PendingSummary(context.Context, string, string) (int64, map[string]int64, error) {
	return 0, nil, nil
}
func (f *fakeStreamClient) GroupExists(context.Context, string, string) (bool, error) {
	return true, nil
}
func (f *fakeStreamClient) Ping(context.Context) error { return nil }

type fakeAttempts struct{ n int64 }

func (f *fakeAttempts) Increment(context.Context, string) (int64, error) {
	f.n++
	return f.n, nil
}
func (f *fakeAttempts) Reset(context.Context, string) error { return nil }

type memCache struct {
	descriptors map[string]domain.ClusterDescriptor
}

func newMemCache() *memCache { return &memCache{descriptors: map[string]domain.ClusterDescriptor{}} }

func (m *memCache) Put(_ context.Context, petID string, d domain.ClusterDescriptor, _ time.Duration) error {
	m.descriptors[petID] = d
	return nil
}
func (m *memCache) Get(_ context.Context, petID string) (domain.ClusterDescriptor, error) {
	return m.descriptors[petID], nil
}
func (m *memCache) Delete(_ context.Context, petID string) (bool, error) {
	_, existed := m.descriptors[petID]
	delete(m.descriptors, petID)
	return existed, nil
}

var _ cachestore.Store = (*memCache)(nil)

func newTestWorker(t *testing.T, cache cachestore.Store) (*worker.Worker, *fakeStreamClient) {
	t.Helper()

	fsc := &fakeStreamClient{}
	consumer, err := queue.NewConsumer(context.Background(), fsc, &fakeAttempts{}, queue.Config{
		Stream:    "streams:test",
		Group:     "g",
		Consumer:  "c-0",
		ReadCount: 10,
		ReadBlock: time.Second,
		RetryIdle: time.Minute,
	})
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	w := worker.NewWorker("w-0", consumer, cache, strategy.New(), "streams:test.deadletter", 3, 10, time.Hour, 5*time.Second, logger.NewNop(), m)
	return w, fsc
}

func TestWorker_ProcessOne_CachesAndAcks(t *testing.T) {
	cache := newMemCache()
	w, fsc := newTestWorker(t, cache)

	job := queue.ConsumedJob{
		MessageID: "1-0",
		Job: domain.Job{
			JobID: "job-1",
			PetID: "pet-1",
			Payload: domain.JobPayload{
				ImageIDs:     []string{"a", "b", "c"},
				QualityScore: 0.7,
			},
		},
		Attempts: 1,
	}

	w.ProcessOne(context.Background(), job)

	descriptor, err := cache.Get(context.Background(), "pet-1")
	require.NoError(t, err)
	assert.NotEmpty(t, descriptor.Clusters)
	assert.Contains(t, fsc.acked, "1-0")
}

func TestWorker_ProcessOne_ReplayOverwritesWithIdenticalClusters(t *testing.T) {
	cache := newMemCache()
	w, fsc := newTestWorker(t, cache)

	job := queue.ConsumedJob{
		MessageID: "1-0",
		Job: domain.Job{
			JobID: "job-1",
			PetID: "pet-1",
			Payload: domain.JobPayload{
				ImageIDs:     []string{"a", "b", "c"},
				Labels:       []string{"portrait"},
				QualityScore: 0.9,
			},
		},
	}

	w.ProcessOne(context.Background(), job)
	first, err := cache.Get(context.Background(), "pet-1")
	require.NoError(t, err)

	w.ProcessOne(context.Background(), job)
	second, err := cache.Get(context.Background(), "pet-1")
	require.NoError(t, err)

	assert.Equal(t, first.Clusters, second.Clusters, "replaying the same job must rebuild identical clusters")
	assert.Equal(t, first.Metrics.QualityScore, second.Metrics.QualityScore)
	assert.Len(t, fsc.acked, 2, "each successful delivery acks exactly once")
}

func TestWorker_ProcessOne_DeadLettersOnAttemptsExhausted(t *testing.T) {
	cache := newMemCache()
	w, fsc := newTestWorker(t, cache)

	job := queue.ConsumedJob{
		MessageID: "1-0",
		Job: domain.Job{
			JobID: "job-1",
			PetID: "pet-1",
			Payload: domain.JobPayload{ImageIDs: []string{"a"}, QualityScore: 0.5},
		},
		Attempts: 4, // exceeds maxAttempts of 3
	}

	w.ProcessOne(context.Background(), job)

	_, err := cache.Get(context.Background(), "pet-1")
	require.NoError(t, err) // memCache.Get never errors; absence means zero value
	assert.Contains(t, fsc.acked, "1-0", "dead-lettering still acks the original delivery")
}
