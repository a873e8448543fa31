package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// RunStore persists the durable outputs of a run: the cleaned record after
// the cleaning stage and the prediction after the scoring stage.
type RunStore interface {
	SaveRecord(ctx context.Context, rec models.HousingRecord) error
	SavePrediction(ctx context.Context, p models.Prediction) error
}

// PostgresStore implements RunStore over a pgx connection pool. The engine
// writes rows the prediction API later reads back by run id, so the schema
// here and the API's mapped models describe the same two tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the result tables when they do not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS cleaned_housing_records (
			id TEXT PRIMARY KEY,
			longitude DOUBLE PRECISION NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			housing_median_age DOUBLE PRECISION NOT NULL,
			total_rooms DOUBLE PRECISION NOT NULL,
			total_bedrooms DOUBLE PRECISION NOT NULL,
			population DOUBLE PRECISION NOT NULL,
			households DOUBLE PRECISION NOT NULL,
			median_income DOUBLE PRECISION NOT NULL,
			ocean_proximity TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			cleaned_record_id TEXT NOT NULL REFERENCES cleaned_housing_records(id),
			prediction_value DOUBLE PRECISION NOT NULL,
			run_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_run_id ON predictions (run_id)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return models.Wrap(models.ErrStorage, "creating result tables", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, rec models.HousingRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cleaned_housing_records
			(id, longitude, latitude, housing_median_age, total_rooms, total_bedrooms,
			 population, households, median_income, ocean_proximity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.Longitude, rec.Latitude, rec.HousingMedianAge, rec.TotalRooms,
		rec.TotalBedrooms, rec.Population, rec.Households, rec.MedianIncome,
		rec.OceanProximity, time.Now().UTC())
	if err != nil {
		return models.Wrap(models.ErrStorage, "saving cleaned record", err)
	}
	return nil
}

func (s *PostgresStore) SavePrediction(ctx context.Context, p models.Prediction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO predictions (id, cleaned_record_id, prediction_value, run_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.RecordID, p.Value, p.RunID, p.CreatedAt)
	if err != nil {
		return models.Wrap(models.ErrStorage, "saving prediction", err)
	}
	return nil
}
