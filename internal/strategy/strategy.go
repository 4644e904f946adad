// Package strategy implements the pure clustering function: image ids and
// quality signals in, grouped clusters out, with no I/O and no wall-clock
// reads so results are byte-for-byte reproducible for the same input.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
)

// Version identifies the scoring and grouping rules below. Bump it whenever
// the formula changes, so cached descriptors can be told apart from ones
// produced by a prior version.
const Version = "heuristic-v1"

// Strategy clusters a job's image ids into groups with a selected hero.
type Strategy interface {
	Cluster(petID string, payload domain.JobPayload, maxClusterSize int) ([]domain.Cluster, domain.Metrics, error)
}

// Heuristic is the default strategy: round-robin group assignment over the
// job's labels (or a single group when none are given), a linear score
// blending quality and input order, stable ordering, and per-group
// truncation to maxClusterSize.
type Heuristic struct{}

// New returns the default heuristic strategy.
func New() Strategy {
	return Heuristic{}
}

// Cluster implements Strategy. A payload with no image ids is not an
// error: it normalizes to zero clusters, with metrics still echoing the
// input quality and coverage signals.
func (Heuristic) Cluster(petID string, payload domain.JobPayload, maxClusterSize int) ([]domain.Cluster, domain.Metrics, error) {
	if maxClusterSize <= 0 {
		return nil, domain.Metrics{}, apperrors.Newf(apperrors.KindStrategyInput, "maxClusterSize must be positive, got %d", maxClusterSize)
	}
	if len(payload.ImageIDs) == 0 {
		return nil, metricsFor(payload), nil
	}

	numGroups := len(payload.Labels)
	if numGroups == 0 {
		numGroups = 1
	}

	n := len(payload.ImageIDs)
	scored := make([]scoredMember, n)
	for i, imageID := range payload.ImageIDs {
		scored[i] = scoredMember{
			imageID:  imageID,
			index:    i,
			score:    score(payload.QualityScore, i, n),
			groupIdx: i % numGroups,
		}
	}

	groups := make([][]scoredMember, numGroups)
	for _, m := range scored {
		groups[m.groupIdx] = append(groups[m.groupIdx], m)
	}

	clusters := make([]domain.Cluster, 0, numGroups)

	for g, members := range groups {
		if len(members) == 0 {
			continue
		}

		sort.SliceStable(members, func(i, j int) bool {
			if members[i].score != members[j].score {
				return members[i].score > members[j].score
			}
			return members[i].index < members[j].index
		})

		if len(members) > maxClusterSize {
			members = members[:maxClusterSize]
		}

		out := make([]domain.Member, len(members))
		for pos, m := range members {
			out[pos] = domain.Member{ImageID: m.imageID, Score: m.score, Position: pos}
		}

		label := "All"
		if len(payload.Labels) > 0 {
			label = payload.Labels[g]
		}

		clusters = append(clusters, domain.Cluster{
			ID:          fmt.Sprintf("%s-cluster-%d", petID, g),
			Label:       label,
			HeroImageID: out[0].ImageID,
			Members:     out,
		})
	}

	return clusters, metricsFor(payload), nil
}

// metricsFor echoes the input quality and coverage signals into a Metrics
// value, independent of whether any clusters were produced.
func metricsFor(payload domain.JobPayload) domain.Metrics {
	return domain.Metrics{
		Coverage:        payload.Coverage,
		QualityScore:    payload.QualityScore,
		StrategyVersion: Version,
	}
}

type scoredMember struct {
	imageID  string
	index    int
	score    float64
	groupIdx int
}

// score blends the job's overall quality signal with a mild recency-like
// bias toward earlier positions in the input, then clamps to [0, 1].
func score(quality float64, index, total int) float64 {
	positional := 1 - float64(index)/float64(total)
	return clamp01(quality*0.7 + positional*0.3)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
