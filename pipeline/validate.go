package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// numericFields lists the required numeric keys of a submission payload in
// the order the feature encoding emits them.
var numericFields = []string{
	"longitude",
	"latitude",
	"housing_median_age",
	"total_rooms",
	"total_bedrooms",
	"population",
	"households",
	"median_income",
}

// ValidateRecord turns a raw submission payload into a validated
// HousingRecord. Numeric fields accept numbers or numeric strings; values
// must be finite, non-negative except the geographic coordinates, which are
// bounded to their valid ranges. A missing total_bedrooms is filled with
// zero. Unknown keys are ignored. All failures carry models.ErrValidation
// with the offending field named in the message.
func ValidateRecord(raw map[string]any) (models.HousingRecord, error) {
	id, err := recordID(raw)
	if err != nil {
		return models.HousingRecord{}, err
	}

	vals := make(map[string]float64, len(numericFields))
	for _, field := range numericFields {
		v, ok := raw[field]
		if !ok || v == nil {
			// Bedroom counts are routinely absent in census extracts, so
			// the cleaning policy fills them instead of rejecting.
			if field == "total_bedrooms" {
				vals[field] = 0
				continue
			}
			return models.HousingRecord{}, models.Errorf(models.ErrValidation, "%s is required", field)
		}
		n, err := toFloat(v)
		if err != nil {
			return models.HousingRecord{}, models.Errorf(models.ErrValidation, "%s must be a valid number", field)
		}
		vals[field] = n
	}

	if vals["longitude"] < -180 || vals["longitude"] > 180 {
		return models.HousingRecord{}, models.Errorf(models.ErrValidation, "longitude must be between -180 and 180")
	}
	if vals["latitude"] < -90 || vals["latitude"] > 90 {
		return models.HousingRecord{}, models.Errorf(models.ErrValidation, "latitude must be between -90 and 90")
	}
	for _, field := range numericFields[2:] {
		if vals[field] < 0 {
			return models.HousingRecord{}, models.Errorf(models.ErrValidation, "%s must be a non-negative number", field)
		}
	}

	proximity, err := oceanProximity(raw)
	if err != nil {
		return models.HousingRecord{}, err
	}

	return models.HousingRecord{
		ID:               id,
		Longitude:        vals["longitude"],
		Latitude:         vals["latitude"],
		HousingMedianAge: vals["housing_median_age"],
		TotalRooms:       vals["total_rooms"],
		TotalBedrooms:    vals["total_bedrooms"],
		Population:       vals["population"],
		Households:       vals["households"],
		MedianIncome:     vals["median_income"],
		OceanProximity:   proximity,
	}, nil
}

func recordID(raw map[string]any) (string, error) {
	v, ok := raw["record_id"]
	if !ok || v == nil {
		return uuid.NewString(), nil
	}
	s, ok := v.(string)
	if !ok {
		return "", models.Errorf(models.ErrValidation, "record_id must be a string")
	}
	if s == "" {
		return uuid.NewString(), nil
	}
	return s, nil
}

func oceanProximity(raw map[string]any) (string, error) {
	v, ok := raw["ocean_proximity"]
	if !ok || v == nil || v == "" {
		return "", models.Errorf(models.ErrValidation, "ocean_proximity is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", models.Errorf(models.ErrValidation, "invalid ocean_proximity: %v", v)
	}
	if !models.ValidOceanProximity(s) {
		return "", models.Errorf(models.ErrValidation, "invalid ocean_proximity: %s", s)
	}
	return s, nil
}

// toFloat coerces the JSON value shapes a payload can carry into a finite
// float64. Booleans and nulls are not numbers here.
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value must be finite")
	}
	return f, nil
}
