package domain

import "time"

// Summary describes one completed pipeline run.
type Summary struct {
	Account              string    `json:"account"`
	Repositories         int       `json:"repositories"`
	Degraded             int       `json:"degraded"`
	Partial              bool      `json:"partial"`
	ExpectedRepositories int       `json:"expected_repositories,omitempty"`
	TotalStars           int       `json:"total_stars"`
	MedianStars          float64   `json:"median_stars"`
	MeanSizeMB           float64   `json:"mean_size_mb"`
	TotalSizeMB          float64   `json:"total_size_mb"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
}
