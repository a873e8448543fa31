// Package storage implements durable persistence for cleaned records and
// predictions on postgres via gorm.
package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// Gateway reads and writes the record and prediction tables for the API
// side. Lookups that find nothing return (nil, nil); only operational
// failures are errors.
type Gateway struct {
	db *gorm.DB
}

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// AutoMigrate creates or updates the tables the API owns. The engine writes
// the same record and prediction tables through its own connection, so the
// schemas must stay in lockstep with its DDL.
func (g *Gateway) AutoMigrate() error {
	return g.db.AutoMigrate(&models.User{}, &models.HousingRecord{}, &models.PredictionRecord{})
}

func (g *Gateway) SaveHousingRecord(ctx context.Context, rec models.HousingRecord) error {
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Wrap(models.ErrStorage, "saving housing record", err)
	}
	return nil
}

func (g *Gateway) GetHousingRecord(ctx context.Context, id string) (*models.HousingRecord, error) {
	var rec models.HousingRecord
	err := g.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Wrap(models.ErrStorage, "fetching housing record", err)
	}
	return &rec, nil
}

func (g *Gateway) SavePrediction(ctx context.Context, p models.Prediction) error {
	row := models.PredictionRecord{
		ID:              p.ID,
		CleanedRecordID: p.RecordID,
		PredictionValue: p.Value,
		RunID:           p.RunID,
		CreatedAt:       p.CreatedAt,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Wrap(models.ErrStorage, "saving prediction", err)
	}
	return nil
}

// GetPredictionByRunID finds the prediction written by the run, with its
// cleaned record attached.
func (g *Gateway) GetPredictionByRunID(ctx context.Context, runID string) (*models.Prediction, error) {
	var row models.PredictionRecord
	err := g.db.WithContext(ctx).
		Preload("CleanedRecord").
		Where("run_id = ?", runID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Wrap(models.ErrStorage, "fetching prediction for run", err)
	}

	pred := predictionFromRow(row)
	return &pred, nil
}

func predictionFromRow(row models.PredictionRecord) models.Prediction {
	return models.Prediction{
		ID:        row.ID,
		RecordID:  row.CleanedRecordID,
		Value:     row.PredictionValue,
		RunID:     row.RunID,
		CreatedAt: row.CreatedAt,
		Status:    models.StatusCompleted,
		Record:    row.CleanedRecord,
	}
}
