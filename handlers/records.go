package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// RecordStore looks up stored cleaned records.
type RecordStore interface {
	GetHousingRecord(ctx context.Context, id string) (*models.HousingRecord, error)
}

type RecordHandler struct {
	storage RecordStore
}

func NewRecordHandler(storage RecordStore) *RecordHandler {
	return &RecordHandler{storage: storage}
}

// GetRecord returns a cleaned record by id, exactly as persisted at
// submission time.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.storage.GetHousingRecord(c.Request.Context(), id)
	if err != nil {
		log.Printf("fetching record %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	c.JSON(http.StatusOK, rec)
}
