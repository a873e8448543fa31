package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/j-soro/housing-ml-pipeline/engine"
	"github.com/j-soro/housing-ml-pipeline/models"
)

// RunFetcher reports full run detail from the execution engine.
type RunFetcher interface {
	GetRun(ctx context.Context, runID string) (models.PipelineRun, error)
}

type RunHandler struct {
	engine RunFetcher
}

func NewRunHandler(engine RunFetcher) *RunHandler {
	return &RunHandler{engine: engine}
}

// GetRun exposes the engine's view of a run: native timestamps and the
// failure message, unlike the polling endpoint's coarse answer.
func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := h.engine.GetRun(c.Request.Context(), runID)
	if errors.Is(err, engine.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		log.Printf("fetching run %s: %v", runID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "execution engine unavailable"})
		return
	}

	c.JSON(http.StatusOK, run)
}
