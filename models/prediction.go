package models

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is the durable result of one pipeline run. It is written exactly
// once by the engine's final stage and never updated afterwards; the run id
// is the only key a caller can discover it by.
type Prediction struct {
	ID        string         `json:"id"`
	RecordID  string         `json:"record_id"`
	Value     float64        `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	Status    RunStatus      `json:"status"`
	Record    *HousingRecord `json:"record,omitempty"`
	Error     string         `json:"error,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
}

// NewPrediction builds a completed prediction, enforcing the result
// invariants: a completed value is never negative and every prediction
// references a record.
func NewPrediction(recordID string, value float64, runID string) (Prediction, error) {
	if recordID == "" {
		return Prediction{}, Errorf(ErrValidation, "prediction record id must not be empty")
	}
	if value < 0 {
		return Prediction{}, Errorf(ErrValidation, "prediction value must be non-negative, got %v", value)
	}
	return Prediction{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
		Status:    StatusCompleted,
		RunID:     runID,
	}, nil
}

// PredictionRecord is the persisted row shape for the predictions table,
// foreign-keyed to the cleaned record it scores and carrying the run id that
// produced it.
type PredictionRecord struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	CleanedRecordID string         `gorm:"column:cleaned_record_id;not null" json:"cleaned_record_id"`
	PredictionValue float64        `gorm:"column:prediction_value;not null" json:"prediction_value"`
	RunID           string         `gorm:"column:run_id;index" json:"run_id"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	CleanedRecord   *HousingRecord `gorm:"foreignKey:CleanedRecordID;references:ID" json:"-"`
}

func (PredictionRecord) TableName() string { return "predictions" }
