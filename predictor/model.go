// Package predictor loads the trained house-value model artifact and scores
// encoded feature vectors against it.
package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/j-soro/housing-ml-pipeline/models"
	"github.com/j-soro/housing-ml-pipeline/pipeline"
)

// Model is a trained linear regressor exported by the training pipeline as a
// JSON artifact. Scoring is intercept + coefficients · features.
type Model struct {
	Version      string    `json:"model_version"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Features     []string  `json:"features"`
}

// Load reads a model artifact from disk and verifies it against the
// encoder's feature layout. A missing artifact or a layout mismatch surfaces
// as a prediction error: no run can score without a usable model.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.Wrap(models.ErrPrediction, fmt.Sprintf("model file not found at %s", path), err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, models.Wrap(models.ErrPrediction, fmt.Sprintf("decoding model artifact %s", path), err)
	}

	want := pipeline.FeatureNames()
	if len(m.Coefficients) != len(want) {
		return nil, models.Errorf(models.ErrPrediction, "model has %d coefficients, expected %d", len(m.Coefficients), len(want))
	}
	if len(m.Features) != len(want) {
		return nil, models.Errorf(models.ErrPrediction, "model records %d feature names, expected %d", len(m.Features), len(want))
	}
	for i, name := range want {
		if m.Features[i] != name {
			return nil, models.Errorf(models.ErrPrediction, "model feature %d is %q, expected %q", i, m.Features[i], name)
		}
	}
	return &m, nil
}

// Predict scores one encoded record. A house value is never negative, so a
// negative or non-finite output means the model and the input disagree and
// the run must fail rather than persist garbage.
func (m *Model) Predict(features pipeline.FeatureVector) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, models.Errorf(models.ErrPrediction, "feature vector has %d values, model expects %d", len(features), len(m.Coefficients))
	}
	value := m.Intercept + floats.Dot(m.Coefficients, features)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, models.Errorf(models.ErrPrediction, "model produced a non-finite value")
	}
	if value < 0 {
		return 0, models.Errorf(models.ErrPrediction, "model produced a negative value %v", value)
	}
	return value, nil
}
