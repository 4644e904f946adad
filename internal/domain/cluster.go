package domain

import "time"

// ClusterDescriptor is the cached per-pet artifact produced by one
// successful job.
type ClusterDescriptor struct {
	PetID     string    `json:"pet_id"`
	Clusters  []Cluster `json:"clusters"`
	Metrics   Metrics   `json:"metrics"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metrics carries the aggregate signals surfaced alongside a descriptor.
type Metrics struct {
	Coverage        map[string]float64 `json:"coverage,omitempty"`
	QualityScore    float64            `json:"quality_score"`
	ProcessedAt     time.Time          `json:"processed_at"`
	StrategyVersion string             `json:"strategy_version"`
}

// Cluster is one group of images sharing a hero image.
type Cluster struct {
	ID          string   `json:"id"`
	Label       string   `json:"label,omitempty"`
	HeroImageID string   `json:"hero_image_id"`
	Members     []Member `json:"members"`
}

// Member is a single image within a Cluster.
type Member struct {
	ImageID  string  `json:"image_id"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}
