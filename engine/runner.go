package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/j-soro/housing-ml-pipeline/models"
	"github.com/j-soro/housing-ml-pipeline/pipeline"
	"github.com/j-soro/housing-ml-pipeline/predictor"
)

// EventsChannel is the pub/sub channel terminal run events are broadcast on.
const EventsChannel = "housing:runs"

var (
	runsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_engine_runs_accepted_total",
		Help: "Total number of runs accepted onto the work queue.",
	})
	runsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_engine_runs_rejected_total",
		Help: "Total number of submissions rejected because the queue was full.",
	})
	runsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_engine_runs_succeeded_total",
		Help: "Total number of runs that reached SUCCESS.",
	})
	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_engine_runs_failed_total",
		Help: "Total number of runs that reached FAILURE.",
	})
	runsCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_engine_runs_canceled_total",
		Help: "Total number of runs canceled before finishing.",
	})
	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housing_engine_stage_failures_total",
		Help: "Run failures by pipeline stage.",
	}, []string{"stage"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "housing_engine_run_duration_seconds",
		Help:    "Wall time of a run from dequeue to terminal status.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
	})
)

// EventPublisher broadcasts run lifecycle events to subscribers. The redis
// cache service satisfies it; a nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// RunEvent is the payload published on EventsChannel when a run reaches a
// terminal status.
type RunEvent struct {
	RunID      string           `json:"run_id"`
	Status     models.RunStatus `json:"status"`
	RecordID   string           `json:"record_id,omitempty"`
	Prediction *float64         `json:"prediction,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Runner drives queued runs through the pipeline stages on a fixed pool of
// workers. The model is loaded once for the runner's lifetime; every run
// scores against the same artifact.
type Runner struct {
	registry *Registry
	store    RunStore
	model    *predictor.Model
	events   EventPublisher
	jobs     chan string
	workers  int
}

func NewRunner(registry *Registry, store RunStore, model *predictor.Model, events EventPublisher, queueSize, workers int) *Runner {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		registry: registry,
		store:    store,
		model:    model,
		events:   events,
		jobs:     make(chan string, queueSize),
		workers:  workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		go r.worker(ctx, i)
	}
	log.Printf("runner started: workers=%d queue=%d", r.workers, cap(r.jobs))
}

// Enqueue offers a run to the pool without blocking. False means the queue
// is full and the submission must be rejected.
func (r *Runner) Enqueue(runID string) bool {
	select {
	case r.jobs <- runID:
		runsAccepted.Inc()
		return true
	default:
		runsRejected.Inc()
		return false
	}
}

// QueueDepth reports how many runs are waiting for a worker.
func (r *Runner) QueueDepth() int {
	return len(r.jobs)
}

func (r *Runner) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %d stopping", id)
			return
		case runID := <-r.jobs:
			r.execute(ctx, runID)
		}
	}
}

// execute drives one run through clean, store record, encode, predict and
// store prediction, honoring cancel requests at stage boundaries.
func (r *Runner) execute(ctx context.Context, runID string) {
	run, ok := r.registry.Get(runID)
	if !ok {
		return
	}
	if run.Status.Terminal() {
		// Canceled while still queued.
		return
	}

	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	if err := r.registry.Transition(runID, NativeStarting); err != nil {
		log.Printf("run %s not started: %v", runID, err)
		return
	}
	if err := r.registry.Transition(runID, NativeStarted); err != nil {
		// A cancel raced the dequeue.
		r.finishCancel(ctx, runID)
		return
	}
	log.Printf("run %s started", runID)

	rec, err := cleanRecord(run.Config.Data)
	if err != nil {
		r.fail(ctx, runID, "clean", err)
		return
	}
	if r.honorCancel(ctx, runID) {
		return
	}

	if err := r.store.SaveRecord(ctx, rec); err != nil {
		r.fail(ctx, runID, "store_record", err)
		return
	}
	if r.honorCancel(ctx, runID) {
		return
	}

	features := pipeline.Encode(rec)

	value, err := r.model.Predict(features)
	if err != nil {
		r.fail(ctx, runID, "predict", err)
		return
	}
	if r.honorCancel(ctx, runID) {
		return
	}

	pred, err := models.NewPrediction(rec.ID, value, runID)
	if err != nil {
		r.fail(ctx, runID, "store_prediction", err)
		return
	}
	if err := r.store.SavePrediction(ctx, pred); err != nil {
		r.fail(ctx, runID, "store_prediction", err)
		return
	}

	if err := r.registry.Transition(runID, NativeSuccess); err != nil {
		log.Printf("run %s: %v", runID, err)
		return
	}
	runsSucceeded.Inc()
	log.Printf("run %s completed: record=%s value=%.2f", runID, rec.ID, value)
	r.publish(ctx, RunEvent{
		RunID:      runID,
		Status:     models.StatusCompleted,
		RecordID:   rec.ID,
		Prediction: &value,
	})
}

// cleanRecord is the cleaning stage: the same validation the API applies at
// submission, repeated here because the engine accepts jobs from any client.
// Validation failures keep their kind; anything unexpected is a cleaning
// error.
func cleanRecord(data map[string]any) (models.HousingRecord, error) {
	rec, err := pipeline.ValidateRecord(data)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return models.HousingRecord{}, err
		}
		return models.HousingRecord{}, models.Wrap(models.ErrCleaning, "cleaning record", err)
	}
	return rec, nil
}

// honorCancel stops the run at a stage boundary when a cancel is pending.
func (r *Runner) honorCancel(ctx context.Context, runID string) bool {
	if !r.registry.Canceling(runID) {
		return false
	}
	r.finishCancel(ctx, runID)
	return true
}

func (r *Runner) finishCancel(ctx context.Context, runID string) {
	if err := r.registry.Transition(runID, NativeCanceled); err != nil {
		log.Printf("run %s: finishing cancel: %v", runID, err)
		return
	}
	runsCanceled.Inc()
	log.Printf("run %s canceled", runID)
	r.publish(ctx, RunEvent{RunID: runID, Status: models.StatusFailed, Error: "run canceled"})
}

func (r *Runner) fail(ctx context.Context, runID, stage string, err error) {
	stageFailures.WithLabelValues(stage).Inc()
	runsFailed.Inc()
	if ferr := r.registry.Fail(runID, err.Error()); ferr != nil {
		log.Printf("run %s: recording failure: %v", runID, ferr)
		return
	}
	log.Printf("run %s failed at %s: %v", runID, stage, err)
	r.publish(ctx, RunEvent{RunID: runID, Status: models.StatusFailed, Error: err.Error()})
}

func (r *Runner) publish(ctx context.Context, ev RunEvent) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, EventsChannel, ev); err != nil {
		log.Printf("publishing run event for %s: %v", ev.RunID, err)
	}
}
