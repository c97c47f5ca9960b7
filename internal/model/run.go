package model

import "time"

// RunStatus is the persistence-level state of a stored run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted scrape job with its outcome.
type Run struct {
	ID        string    `json:"id"`
	Job       Job       `json:"job"`
	Status    RunStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
