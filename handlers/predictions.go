// Package handlers wires the HTTP surface: prediction submission and
// polling, run and record lookups, auth, and the live run feed.
package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/j-soro/housing-ml-pipeline/models"
	"github.com/j-soro/housing-ml-pipeline/pipeline"
	"github.com/j-soro/housing-ml-pipeline/services"
)

// Completed results never change, so they can sit in the cache until the
// polling clients move on.
const resultCacheTTL = 5 * time.Minute

// SubmitResponse acknowledges an accepted record. Prediction is always null
// at submission; polling carries the value once the run completes.
type SubmitResponse struct {
	RunID      string           `json:"run_id"`
	Status     models.RunStatus `json:"status"`
	Prediction *float64         `json:"prediction"`
}

// StatusResponse is the poll answer for one run. Prediction and CompletedAt
// appear only on terminal statuses.
type StatusResponse struct {
	RunID       string           `json:"run_id"`
	Status      models.RunStatus `json:"status"`
	Prediction  *float64         `json:"prediction,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type PredictionHandler struct {
	service *services.PredictionService
	cache   *services.CacheService
}

func NewPredictionHandler(service *services.PredictionService, cache *services.CacheService) *PredictionHandler {
	return &PredictionHandler{service: service, cache: cache}
}

// SubmitPrediction accepts a raw housing record, validates it and starts an
// asynchronous run. Validation problems come back as 400 with the cause;
// engine or storage trouble is a 500 with the cause kept in the logs.
func (h *PredictionHandler) SubmitPrediction(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	rec, err := pipeline.ValidateRecord(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.service.Submit(c.Request.Context(), rec)
	if err != nil {
		log.Printf("submitting record %s: %v", rec.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit prediction request"})
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{RunID: runID, Status: models.StatusPending})
}

// GetPrediction reports the current state of a run. The answer is always
// 200 with one of the four coarse statuses; completed responses are served
// from the cache when possible and written back to it asynchronously.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	runID := c.Param("run_id")
	cacheKey := fmt.Sprintf("housing:result:%s", runID)

	var cached StatusResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.RunID != "" {
		c.JSON(http.StatusOK, cached)
		return
	}

	result := h.service.GetResult(c.Request.Context(), runID)

	resp := StatusResponse{RunID: runID, Status: result.Status}
	switch result.Status {
	case models.StatusCompleted:
		value := result.Prediction.Value
		completedAt := result.Prediction.CreatedAt
		resp.Prediction = &value
		resp.CompletedAt = &completedAt
		go h.cache.Set(context.Background(), cacheKey, resp, resultCacheTTL)
	case models.StatusFailed:
		now := time.Now().UTC()
		resp.CompletedAt = &now
	}

	c.JSON(http.StatusOK, resp)
}
