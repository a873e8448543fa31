package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/j-soro/housing-ml-pipeline/models"
	"github.com/j-soro/housing-ml-pipeline/services"
)

var _ services.StorageGateway = (*Gateway)(nil)

func TestPredictionFromRow(t *testing.T) {
	created := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
	rec := &models.HousingRecord{ID: "rec-1", OceanProximity: models.OceanInland}
	row := models.PredictionRecord{
		ID:              "pred-1",
		CleanedRecordID: "rec-1",
		PredictionValue: 320201.59,
		RunID:           "run-42",
		CreatedAt:       created,
		CleanedRecord:   rec,
	}

	pred := predictionFromRow(row)
	if pred.ID != "pred-1" {
		t.Errorf("ID = %q, want %q", pred.ID, "pred-1")
	}
	if pred.RecordID != "rec-1" {
		t.Errorf("RecordID = %q, want %q", pred.RecordID, "rec-1")
	}
	if pred.Value != 320201.59 {
		t.Errorf("Value = %v, want 320201.59", pred.Value)
	}
	if pred.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", pred.RunID, "run-42")
	}
	if !pred.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", pred.CreatedAt, created)
	}
	if pred.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want completed", pred.Status)
	}
	if pred.Record == nil || pred.Record.ID != "rec-1" {
		t.Errorf("Record = %+v, want the preloaded record", pred.Record)
	}
}

func TestPredictionFromRowWithoutRecord(t *testing.T) {
	pred := predictionFromRow(models.PredictionRecord{ID: "pred-1"})
	if pred.Record != nil {
		t.Errorf("Record = %+v, want nil when nothing was preloaded", pred.Record)
	}
}

// TestGatewayRoundTrip needs a live database; set TEST_DATABASE_DSN to run it.
func TestGatewayRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	gw := NewGateway(db)
	if err := gw.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	ctx := context.Background()
	rec := models.HousingRecord{
		ID:               "test-rec-roundtrip",
		Longitude:        -122.64,
		Latitude:         38.01,
		HousingMedianAge: 36,
		TotalRooms:       1336,
		TotalBedrooms:    258,
		Population:       678,
		Households:       249,
		MedianIncome:     5.5789,
		OceanProximity:   models.OceanNearOcean,
		CreatedAt:        time.Now().UTC(),
	}
	defer func() {
		db.Delete(&models.PredictionRecord{}, "cleaned_record_id = ?", rec.ID)
		db.Delete(&models.HousingRecord{}, "id = ?", rec.ID)
	}()

	if err := gw.SaveHousingRecord(ctx, rec); err != nil {
		t.Fatalf("SaveHousingRecord() error = %v", err)
	}

	got, err := gw.GetHousingRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetHousingRecord() error = %v", err)
	}
	if got == nil || got.OceanProximity != models.OceanNearOcean {
		t.Fatalf("GetHousingRecord() = %+v, want the stored record", got)
	}

	missing, err := gw.GetHousingRecord(ctx, "no-such-record")
	if err != nil {
		t.Fatalf("GetHousingRecord() miss error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetHousingRecord() miss = %+v, want nil", missing)
	}

	pred := models.Prediction{
		ID:        "test-pred-roundtrip",
		RecordID:  rec.ID,
		Value:     320201.59,
		RunID:     "test-run-roundtrip",
		CreatedAt: time.Now().UTC(),
	}
	if err := gw.SavePrediction(ctx, pred); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}

	fetched, err := gw.GetPredictionByRunID(ctx, "test-run-roundtrip")
	if err != nil {
		t.Fatalf("GetPredictionByRunID() error = %v", err)
	}
	if fetched == nil {
		t.Fatal("GetPredictionByRunID() = nil, want the stored prediction")
	}
	if fetched.Value != 320201.59 {
		t.Errorf("prediction value = %v, want 320201.59", fetched.Value)
	}
	if fetched.Record == nil || fetched.Record.ID != rec.ID {
		t.Errorf("prediction record = %+v, want the linked record", fetched.Record)
	}

	none, err := gw.GetPredictionByRunID(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("GetPredictionByRunID() miss error = %v", err)
	}
	if none != nil {
		t.Errorf("GetPredictionByRunID() miss = %+v, want nil", none)
	}
}
