package models

import "time"

// RunStatus is the coarse four-state view of a pipeline run. The engine
// tracks a finer-grained native vocabulary internally; everything a caller of
// this subsystem sees collapses to one of these four values.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PipelineRun is a transient handle for one asynchronous execution. The
// engine owns and tracks runs; this side only ever reads them, keyed by the
// opaque run id handed out at submission.
type PipelineRun struct {
	ID          string     `json:"run_id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}
