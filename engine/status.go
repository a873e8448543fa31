// Package engine implements the asynchronous execution side of the
// prediction platform: a run registry, a worker pool that drives queued runs
// through the clean/store/encode/predict/persist stages, the HTTP surface
// the API talks to, and the client adapter the API uses to talk back.
package engine

import "github.com/j-soro/housing-ml-pipeline/models"

// NativeStatus is the engine's own run vocabulary. It is deliberately finer
// grained than the coarse four-state view callers see; only CoarseStatus
// leaves this package's API surface in client-facing form.
type NativeStatus string

const (
	NativeQueued     NativeStatus = "QUEUED"
	NativeNotStarted NativeStatus = "NOT_STARTED"
	NativeStarting   NativeStatus = "STARTING"
	NativeStarted    NativeStatus = "STARTED"
	NativeSuccess    NativeStatus = "SUCCESS"
	NativeFailure    NativeStatus = "FAILURE"
	NativeCanceling  NativeStatus = "CANCELING"
	NativeCanceled   NativeStatus = "CANCELED"
)

// Terminal reports whether a run in this status can still change.
func (s NativeStatus) Terminal() bool {
	return s == NativeSuccess || s == NativeFailure || s == NativeCanceled
}

// CoarseStatus collapses the native vocabulary onto the four-state model the
// prediction API exposes. The mapping is total: SUCCESS is the only way to
// completed, FAILURE and CANCELED both read as failed, STARTED means
// running, and everything else, unrecognized values included, is pending.
func CoarseStatus(s NativeStatus) models.RunStatus {
	switch s {
	case NativeSuccess:
		return models.StatusCompleted
	case NativeFailure, NativeCanceled:
		return models.StatusFailed
	case NativeStarted:
		return models.StatusRunning
	default:
		return models.StatusPending
	}
}
