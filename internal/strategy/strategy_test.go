package strategy_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/strategy"
)

const testPetID = "pet-1"

func samplePayload() domain.JobPayload {
	return domain.JobPayload{
		ImageIDs:     []string{"img-1", "img-2", "img-3", "img-4", "img-5"},
		Labels:       []string{"portrait", "play"},
		QualityScore: 0.8,
	}
}

func TestCluster_Deterministic(t *testing.T) {
	s := strategy.New()
	payload := samplePayload()

	clustersA, metricsA, errA := s.Cluster(testPetID, payload, 10)
	clustersB, metricsB, errB := s.Cluster(testPetID, payload, 10)

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, clustersA, clustersB)
	assert.Equal(t, metricsA, metricsB)
}

func TestCluster_MemberBound(t *testing.T) {
	s := strategy.New()
	payload := domain.JobPayload{
		ImageIDs:     []string{"a", "b", "c", "d", "e", "f"},
		QualityScore: 0.5,
	}

	clusters, _, err := s.Cluster(testPetID, payload, 2)
	require.NoError(t, err)

	for _, c := range clusters {
		assert.LessOrEqual(t, len(c.Members), 2)
	}
}

func TestCluster_HeroIsFirstMember(t *testing.T) {
	s := strategy.New()
	clusters, _, err := s.Cluster(testPetID, samplePayload(), 10)
	require.NoError(t, err)

	for _, c := range clusters {
		require.NotEmpty(t, c.Members)
		assert.Equal(t, c.Members[0].ImageID, c.HeroImageID)
	}
}

func TestCluster_IDIncludesPetID(t *testing.T) {
	s := strategy.New()
	clusters, _, err := s.Cluster(testPetID, samplePayload(), 10)
	require.NoError(t, err)

	for i, c := range clusters {
		assert.Equal(t, fmt.Sprintf("%s-cluster-%d", testPetID, i), c.ID)
	}
}

func TestCluster_ScoreMonotonicWithinCluster(t *testing.T) {
	s := strategy.New()
	clusters, _, err := s.Cluster(testPetID, samplePayload(), 10)
	require.NoError(t, err)

	for _, c := range clusters {
		for i := 1; i < len(c.Members); i++ {
			assert.GreaterOrEqual(t, c.Members[i-1].Score, c.Members[i].Score)
		}
	}
}

func TestCluster_EmptyImageIDsYieldsZeroClustersNotError(t *testing.T) {
	s := strategy.New()
	payload := domain.JobPayload{QualityScore: 0.5}

	clusters, metrics, err := s.Cluster(testPetID, payload, 10)

	require.NoError(t, err)
	assert.Empty(t, clusters)
	assert.Equal(t, payload.QualityScore, metrics.QualityScore)
	assert.Equal(t, strategy.Version, metrics.StrategyVersion)
}

func TestCluster_RejectsNonPositiveMaxClusterSize(t *testing.T) {
	s := strategy.New()
	_, _, err := s.Cluster(testPetID, samplePayload(), 0)

	require.Error(t, err)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindStrategyInput, kind)
}

func TestCluster_SynthesizesAllGroupWhenUnlabeled(t *testing.T) {
	s := strategy.New()
	payload := domain.JobPayload{
		ImageIDs:     []string{"a", "b"},
		QualityScore: 0.5,
	}

	clusters, _, err := s.Cluster(testPetID, payload, 10)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "All", clusters[0].Label)
	assert.Len(t, clusters[0].Members, 2)
}

func TestCluster_ScoreBlendsQualityAndPosition(t *testing.T) {
	s := strategy.New()
	payload := domain.JobPayload{
		ImageIDs:     []string{"a", "b", "c"},
		QualityScore: 1.0,
	}

	clusters, _, err := s.Cluster(testPetID, payload, 10)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	members := clusters[0].Members
	require.Len(t, members, 3)
	assert.Equal(t, "a", clusters[0].HeroImageID)
	assert.InDelta(t, 1.0, members[0].Score, 1e-9)
	assert.InDelta(t, 0.7+(1-1.0/3)*0.3, members[1].Score, 1e-9)
	assert.InDelta(t, 0.7+(1-2.0/3)*0.3, members[2].Score, 1e-9)
}

func TestCluster_ScoresStayInUnitRange(t *testing.T) {
	s := strategy.New()
	payload := samplePayload()
	payload.QualityScore = 5.0 // out-of-range input must still clamp

	clusters, _, err := s.Cluster(testPetID, payload, 10)
	require.NoError(t, err)

	for _, c := range clusters {
		for _, m := range c.Members {
			assert.GreaterOrEqual(t, m.Score, 0.0)
			assert.LessOrEqual(t, m.Score, 1.0)
		}
	}
}
