package storage

import "time"

// RunRow is a lightweight listing row for /runs.
type RunRow struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`
	Valid     bool      `json:"valid"`
	Files     int       `json:"files"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	Cycles    int       `json:"cycles"`
	Findings  int       `json:"findings"`
}
