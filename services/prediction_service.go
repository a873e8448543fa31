// Package services holds the application services behind the HTTP handlers:
// prediction coordination, caching, and authentication.
package services

import (
	"context"
	"log"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// Orchestrator is the port to the asynchronous execution engine. StartRun
// hands over a cleaned record and returns the engine's run id; GetStatus
// reports that run's progress in coarse terms (pending, running, completed
// or failed).
type Orchestrator interface {
	StartRun(ctx context.Context, rec models.HousingRecord) (string, error)
	GetStatus(ctx context.Context, runID string) (models.RunStatus, error)
}

// StorageGateway is the slice of durable storage the service depends on: it
// saves the submitted record and reads predictions back by run id when
// reconciling. A missing prediction is (nil, nil), not an error.
type StorageGateway interface {
	SaveHousingRecord(ctx context.Context, rec models.HousingRecord) error
	GetPredictionByRunID(ctx context.Context, runID string) (*models.Prediction, error)
}

// Result is the outcome of one poll. Status is always one of the four
// coarse values; Prediction is non-nil exactly when Status is completed.
type Result struct {
	Status     models.RunStatus
	Prediction *models.Prediction
}

// PredictionService coordinates a prediction run end to end: it submits
// validated records to the execution engine and reconciles engine status
// with stored predictions into a single client-facing answer.
type PredictionService struct {
	orchestrator Orchestrator
	storage      StorageGateway
}

func NewPredictionService(orchestrator Orchestrator, storage StorageGateway) *PredictionService {
	return &PredictionService{orchestrator: orchestrator, storage: storage}
}

// Submit starts a run for the record and persists the record alongside it.
// The engine is told first; if it refuses, nothing is stored and the error
// propagates. A storage failure after a successful start also propagates:
// the run is already live on the engine and is not retracted.
func (s *PredictionService) Submit(ctx context.Context, rec models.HousingRecord) (string, error) {
	runID, err := s.orchestrator.StartRun(ctx, rec)
	if err != nil {
		return "", err
	}

	if err := s.storage.SaveHousingRecord(ctx, rec); err != nil {
		log.Printf("run %s started but record %s was not stored: %v", runID, rec.ID, err)
		return "", err
	}

	log.Printf("submitted prediction run %s for record %s", runID, rec.ID)
	return runID, nil
}

// GetResult answers "what happened to this run" without ever returning an
// error: every operational failure collapses to the failed status with the
// cause logged here. A completed run must have a stored prediction; when the
// engine says completed but storage has nothing, the run is reported failed
// rather than leaving the caller to poll forever.
func (s *PredictionService) GetResult(ctx context.Context, runID string) Result {
	status, err := s.orchestrator.GetStatus(ctx, runID)
	if err != nil {
		log.Printf("run %s: status lookup failed: %v", runID, err)
		return Result{Status: models.StatusFailed}
	}

	switch status {
	case models.StatusFailed:
		return Result{Status: models.StatusFailed}
	case models.StatusCompleted:
		pred, err := s.storage.GetPredictionByRunID(ctx, runID)
		if err != nil {
			log.Printf("run %s: fetching prediction: %v", runID, err)
			return Result{Status: models.StatusFailed}
		}
		if pred == nil {
			log.Printf("run %s: completed but no prediction in storage", runID)
			return Result{Status: models.StatusFailed}
		}
		return Result{Status: models.StatusCompleted, Prediction: pred}
	default:
		return Result{Status: status}
	}
}
