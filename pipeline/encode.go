// Package pipeline implements the in-process stages of a prediction run:
// cleaning raw submission payloads into validated records and encoding
// records into the fixed feature layout the trained model expects.
package pipeline

import "github.com/j-soro/housing-ml-pipeline/models"

// FeatureVector is the model input: the numeric fields in declared order
// followed by a one-hot block over the ocean proximity categories. It is
// derived and never persisted.
type FeatureVector []float64

var featureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := append([]string(nil), numericFields...)
	for _, cat := range models.OceanProximities {
		names = append(names, "ocean_proximity_"+cat)
	}
	return names
}

// FeatureNames returns the encoder's output layout. The trained model
// artifact records the same list; predictor.Load refuses artifacts that
// disagree with it.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// Encode maps a validated record onto the feature layout. The order is a
// contract with the model artifact: changing it is a breaking schema change.
// Records reaching this stage have already passed ValidateRecord, so exactly
// one category matches.
func Encode(rec models.HousingRecord) FeatureVector {
	v := make(FeatureVector, 0, len(featureNames))
	v = append(v,
		rec.Longitude,
		rec.Latitude,
		rec.HousingMedianAge,
		rec.TotalRooms,
		rec.TotalBedrooms,
		rec.Population,
		rec.Households,
		rec.MedianIncome,
	)
	for _, cat := range models.OceanProximities {
		if rec.OceanProximity == cat {
			v = append(v, 1)
		} else {
			v = append(v, 0)
		}
	}
	return v
}
