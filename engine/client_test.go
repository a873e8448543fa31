package engine

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/j-soro/housing-ml-pipeline/models"
)

func sampleRecord() models.HousingRecord {
	return models.HousingRecord{
		ID:               "rec-1",
		Longitude:        -122.64,
		Latitude:         38.01,
		HousingMedianAge: 36,
		TotalRooms:       1336,
		TotalBedrooms:    258,
		Population:       678,
		Households:       249,
		MedianIncome:     5.5789,
		OceanProximity:   models.OceanNearOcean,
	}
}

func TestClientStartRun(t *testing.T) {
	srv, reg, _ := newTestServer(4)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "postgres://housing:pw@db:5432/housing", "/models/housing.json")

	runID, err := client.StartRun(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	run, ok := reg.Get(runID)
	if !ok {
		t.Fatal("run should exist on the engine")
	}
	if _, hasID := run.Config.Data["record_id"]; hasID {
		t.Error("record id must be stripped from job data")
	}
	if run.Config.Data["ocean_proximity"] != models.OceanNearOcean {
		t.Errorf("job data = %v", run.Config.Data)
	}
	if run.Config.Resources.Postgres.ConnectionURL != "postgres://housing:pw@db:5432/housing" {
		t.Errorf("resources = %+v", run.Config.Resources)
	}
	if run.Config.Resources.Model.ModelPath != "/models/housing.json" {
		t.Errorf("resources = %+v", run.Config.Resources)
	}
}

func TestClientStartRunQueueFull(t *testing.T) {
	srv, _, _ := newTestServer(1)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "dsn", "model.json")

	if _, err := client.StartRun(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := client.StartRun(context.Background(), sampleRecord())
	if !errors.Is(err, models.ErrPipeline) {
		t.Errorf("expected pipeline error, got %v", err)
	}
}

func TestClientTransportFailure(t *testing.T) {
	srv, _, _ := newTestServer(1)
	ts := httptest.NewServer(srv.Handler())
	ts.Close() // connection refused from here on

	client := NewClient(ts.URL, "dsn", "model.json")

	if _, err := client.StartRun(context.Background(), sampleRecord()); !errors.Is(err, models.ErrPipeline) {
		t.Errorf("StartRun: expected pipeline error, got %v", err)
	}
	if _, err := client.GetStatus(context.Background(), "some-run"); !errors.Is(err, models.ErrPipeline) {
		t.Errorf("GetStatus: expected pipeline error, got %v", err)
	}
}

func TestClientGetStatusMapsNativeStatuses(t *testing.T) {
	srv, reg, _ := newTestServer(4)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "dsn", "model.json")

	tests := []struct {
		name string
		path []NativeStatus
		want models.RunStatus
	}{
		{"queued", nil, models.StatusPending},
		{"starting", []NativeStatus{NativeStarting}, models.StatusPending},
		{"started", []NativeStatus{NativeStarting, NativeStarted}, models.StatusRunning},
		{"success", []NativeStatus{NativeStarting, NativeStarted, NativeSuccess}, models.StatusCompleted},
		{"failure", []NativeStatus{NativeStarting, NativeStarted, NativeFailure}, models.StatusFailed},
		{"canceling", []NativeStatus{NativeStarting, NativeStarted, NativeCanceling}, models.StatusPending},
		{"canceled", []NativeStatus{NativeCanceled}, models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := reg.Create(RunConfig{Data: runData()})
			for _, s := range tt.path {
				if err := reg.Transition(run.ID, s); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}
			got, err := client.GetStatus(context.Background(), run.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClientGetStatusUnknownRun(t *testing.T) {
	srv, _, _ := newTestServer(4)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "dsn", "model.json")
	_, err := client.GetStatus(context.Background(), "missing")
	if !errors.Is(err, models.ErrPipeline) {
		t.Errorf("expected pipeline error, got %v", err)
	}
}

func TestClientGetRun(t *testing.T) {
	srv, reg, _ := newTestServer(4)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "dsn", "model.json")

	run := reg.Create(RunConfig{Data: runData()})
	reg.Transition(run.ID, NativeStarting)
	reg.Transition(run.ID, NativeStarted)
	reg.Fail(run.ID, "prediction error: boom")

	got, err := client.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != run.ID {
		t.Errorf("id = %q, want %q", got.ID, run.ID)
	}
	if got.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error != "prediction error: boom" {
		t.Errorf("error = %q", got.Error)
	}
	if got.StartedAt.IsZero() {
		t.Error("expected a start time")
	}
	if got.CompletedAt == nil {
		t.Error("expected a completion time")
	}

	if _, err := client.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// Full round trip: submit through the client, let a worker execute the run,
// observe completion through the client.
func TestClientEngineRoundTrip(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}
	runner := NewRunner(reg, store, flatModel(320201.59), nil, 4, 2)
	srv := NewServer(reg, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "dsn", "model.json")

	runID, err := client.StartRun(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		status, err := client.GetStatus(ctx, runID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if status == models.StatusCompleted {
			break
		}
		if status == models.StatusFailed {
			run, _ := reg.Get(runID)
			t.Fatalf("run failed: %s", run.Error)
		}
		select {
		case <-deadline:
			t.Fatalf("run did not complete, last status %s", status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.predictions) != 1 {
		t.Fatalf("stored %d predictions, want 1", len(store.predictions))
	}
	if store.predictions[0].RunID != runID {
		t.Errorf("prediction run id = %q, want %q", store.predictions[0].RunID, runID)
	}
	if store.predictions[0].Value != 320201.59 {
		t.Errorf("prediction value = %v", store.predictions[0].Value)
	}
}
