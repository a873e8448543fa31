package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned for run ids the engine never issued.
var ErrRunNotFound = errors.New("run not found")

// RunConfig is the job configuration a submission carries: the record fields
// to score plus the resource bindings the submitter wants the run executed
// against. Resources are recorded for provenance; execution uses the
// resources the engine process was started with.
type RunConfig struct {
	Data      map[string]any `json:"data"`
	Resources RunResources   `json:"resources"`
}

// RunResources names the storage target and the model artifact for a run.
type RunResources struct {
	Postgres struct {
		ConnectionURL string `json:"connection_url"`
	} `json:"postgres"`
	Model struct {
		ModelPath string `json:"model_path"`
	} `json:"model"`
}

// Run is one accepted execution.
type Run struct {
	ID          string       `json:"run_id"`
	Status      NativeStatus `json:"status"`
	Config      RunConfig    `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Legal status moves. Terminal states have no exits. A late cancel can lose
// the race against a finishing run, so CANCELING may still end in SUCCESS or
// FAILURE.
var transitions = map[NativeStatus][]NativeStatus{
	NativeQueued:    {NativeStarting, NativeCanceled},
	NativeStarting:  {NativeStarted, NativeFailure, NativeCanceling, NativeCanceled},
	NativeStarted:   {NativeSuccess, NativeFailure, NativeCanceling, NativeCanceled},
	NativeCanceling: {NativeSuccess, NativeFailure, NativeCanceled},
}

func allowed(from, to NativeStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Registry tracks every run the engine has accepted, in memory. Run ids are
// only meaningful for the lifetime of the engine process, which is exactly
// the lifetime of this registry.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Create registers a new queued run and returns a snapshot of it.
func (r *Registry) Create(cfg RunConfig) Run {
	run := &Run{
		ID:        uuid.NewString(),
		Status:    NativeQueued,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
	return *run
}

// Get returns a snapshot of a run.
func (r *Registry) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Remove forgets a run. Only used to back out a submission the work queue
// refused, before the id was ever returned to the caller.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()
}

// Len reports how many runs the registry is tracking.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// Transition moves a run to a new status, refusing moves the lifecycle does
// not allow. Reaching STARTED stamps the start time; reaching a terminal
// status stamps the completion time.
func (r *Registry) Transition(id string, to NativeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	return r.move(run, to)
}

// Fail marks a run failed and records why.
func (r *Registry) Fail(id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	if err := r.move(run, NativeFailure); err != nil {
		return err
	}
	run.Error = msg
	return nil
}

// Cancel requests cancellation. A queued run cancels immediately; a running
// run is marked CANCELING and stops at its next stage boundary. Terminal
// runs cannot be canceled. The status after the request is returned.
func (r *Registry) Cancel(id string) (NativeStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return "", ErrRunNotFound
	}
	switch run.Status {
	case NativeQueued:
		if err := r.move(run, NativeCanceled); err != nil {
			return run.Status, err
		}
	case NativeStarting, NativeStarted:
		if err := r.move(run, NativeCanceling); err != nil {
			return run.Status, err
		}
	case NativeCanceling:
		// Already requested.
	default:
		return run.Status, fmt.Errorf("run %s is already %s", id, run.Status)
	}
	return run.Status, nil
}

// Canceling reports whether a cancel has been requested and not yet honored.
func (r *Registry) Canceling(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return ok && run.Status == NativeCanceling
}

// move applies a validated transition. Callers hold the write lock.
func (r *Registry) move(run *Run, to NativeStatus) error {
	if !allowed(run.Status, to) {
		return fmt.Errorf("run %s cannot go from %s to %s", run.ID, run.Status, to)
	}
	run.Status = to
	now := time.Now().UTC()
	if to == NativeStarted {
		run.StartedAt = &now
	}
	if to.Terminal() {
		run.CompletedAt = &now
	}
	return nil
}
