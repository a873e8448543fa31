package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/j-soro/housing-ml-pipeline/models"
)

func validPayload() map[string]any {
	return map[string]any{
		"longitude":          -122.64,
		"latitude":           38.01,
		"housing_median_age": 36.0,
		"total_rooms":        1336.0,
		"total_bedrooms":     258.0,
		"population":         678.0,
		"households":         249.0,
		"median_income":      5.5789,
		"ocean_proximity":    "NEAR OCEAN",
	}
}

func TestValidateRecord(t *testing.T) {
	rec, err := ValidateRecord(validPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID == "" {
		t.Error("expected a generated record id")
	}
	if math.Abs(rec.Longitude-(-122.64)) > 1e-9 {
		t.Errorf("longitude = %v, want -122.64", rec.Longitude)
	}
	if math.Abs(rec.Latitude-38.01) > 1e-9 {
		t.Errorf("latitude = %v, want 38.01", rec.Latitude)
	}
	if rec.HousingMedianAge != 36 || rec.TotalRooms != 1336 || rec.TotalBedrooms != 258 {
		t.Errorf("unexpected numeric fields: %+v", rec)
	}
	if rec.Population != 678 || rec.Households != 249 {
		t.Errorf("unexpected numeric fields: %+v", rec)
	}
	if math.Abs(rec.MedianIncome-5.5789) > 1e-9 {
		t.Errorf("median_income = %v, want 5.5789", rec.MedianIncome)
	}
	if rec.OceanProximity != models.OceanNearOcean {
		t.Errorf("ocean_proximity = %q, want %q", rec.OceanProximity, models.OceanNearOcean)
	}
}

func TestValidateRecordCoercion(t *testing.T) {
	payload := validPayload()
	payload["longitude"] = "-122.64"
	payload["housing_median_age"] = 36
	payload["total_rooms"] = int64(1336)
	payload["median_income"] = " 5.5789 "

	rec, err := ValidateRecord(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(rec.Longitude-(-122.64)) > 1e-9 {
		t.Errorf("longitude = %v, want -122.64", rec.Longitude)
	}
	if rec.HousingMedianAge != 36 {
		t.Errorf("housing_median_age = %v, want 36", rec.HousingMedianAge)
	}
	if rec.TotalRooms != 1336 {
		t.Errorf("total_rooms = %v, want 1336", rec.TotalRooms)
	}
	if math.Abs(rec.MedianIncome-5.5789) > 1e-9 {
		t.Errorf("median_income = %v, want 5.5789", rec.MedianIncome)
	}
}

func TestValidateRecordID(t *testing.T) {
	t.Run("supplied id is kept", func(t *testing.T) {
		payload := validPayload()
		payload["record_id"] = "my-record"
		rec, err := ValidateRecord(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID != "my-record" {
			t.Errorf("id = %q, want my-record", rec.ID)
		}
	})

	t.Run("empty id is replaced", func(t *testing.T) {
		payload := validPayload()
		payload["record_id"] = ""
		rec, err := ValidateRecord(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID == "" {
			t.Error("expected a generated record id")
		}
	})

	t.Run("non-string id rejected", func(t *testing.T) {
		payload := validPayload()
		payload["record_id"] = 123
		_, err := ValidateRecord(payload)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("generated ids are distinct", func(t *testing.T) {
		a, _ := ValidateRecord(validPayload())
		b, _ := ValidateRecord(validPayload())
		if a.ID == b.ID {
			t.Error("expected distinct generated ids")
		}
	})
}

func TestValidateRecordDeterministic(t *testing.T) {
	payload := validPayload()
	payload["record_id"] = "fixed"
	a, err := ValidateRecord(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ValidateRecord(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected identical records, got %+v vs %+v", a, b)
	}
}

func TestValidateRecordMissingBedroomsDefaultsToZero(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		payload := validPayload()
		delete(payload, "total_bedrooms")
		rec, err := ValidateRecord(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.TotalBedrooms != 0 {
			t.Errorf("total_bedrooms = %v, want 0", rec.TotalBedrooms)
		}
	})

	t.Run("null", func(t *testing.T) {
		payload := validPayload()
		payload["total_bedrooms"] = nil
		rec, err := ValidateRecord(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.TotalBedrooms != 0 {
			t.Errorf("total_bedrooms = %v, want 0", rec.TotalBedrooms)
		}
	})
}

func TestValidateRecordFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantMsg string
	}{
		{
			name:    "missing longitude",
			mutate:  func(p map[string]any) { delete(p, "longitude") },
			wantMsg: "longitude is required",
		},
		{
			name:    "null population",
			mutate:  func(p map[string]any) { p["population"] = nil },
			wantMsg: "population is required",
		},
		{
			name:    "non-numeric string",
			mutate:  func(p map[string]any) { p["median_income"] = "lots" },
			wantMsg: "median_income must be a valid number",
		},
		{
			name:    "boolean value",
			mutate:  func(p map[string]any) { p["households"] = true },
			wantMsg: "households must be a valid number",
		},
		{
			name:    "NaN string",
			mutate:  func(p map[string]any) { p["total_rooms"] = "NaN" },
			wantMsg: "total_rooms must be a valid number",
		},
		{
			name:    "infinite string",
			mutate:  func(p map[string]any) { p["population"] = "+Inf" },
			wantMsg: "population must be a valid number",
		},
		{
			name:    "non-finite float",
			mutate:  func(p map[string]any) { p["latitude"] = math.NaN() },
			wantMsg: "latitude must be a valid number",
		},
		{
			name:    "longitude too large",
			mutate:  func(p map[string]any) { p["longitude"] = 180.5 },
			wantMsg: "longitude must be between -180 and 180",
		},
		{
			name:    "longitude too small",
			mutate:  func(p map[string]any) { p["longitude"] = -181.0 },
			wantMsg: "longitude must be between -180 and 180",
		},
		{
			name:    "latitude out of range",
			mutate:  func(p map[string]any) { p["latitude"] = 91.0 },
			wantMsg: "latitude must be between -90 and 90",
		},
		{
			name:    "negative median income",
			mutate:  func(p map[string]any) { p["median_income"] = -0.5 },
			wantMsg: "median_income must be a non-negative number",
		},
		{
			name:    "negative total rooms",
			mutate:  func(p map[string]any) { p["total_rooms"] = -1.0 },
			wantMsg: "total_rooms must be a non-negative number",
		},
		{
			name:    "missing ocean proximity",
			mutate:  func(p map[string]any) { delete(p, "ocean_proximity") },
			wantMsg: "ocean_proximity is required",
		},
		{
			name:    "empty ocean proximity",
			mutate:  func(p map[string]any) { p["ocean_proximity"] = "" },
			wantMsg: "ocean_proximity is required",
		},
		{
			name:    "unknown ocean proximity",
			mutate:  func(p map[string]any) { p["ocean_proximity"] = "NEAR LAKE" },
			wantMsg: "invalid ocean_proximity: NEAR LAKE",
		},
		{
			name:    "lowercase ocean proximity",
			mutate:  func(p map[string]any) { p["ocean_proximity"] = "inland" },
			wantMsg: "invalid ocean_proximity",
		},
		{
			name:    "non-string ocean proximity",
			mutate:  func(p map[string]any) { p["ocean_proximity"] = 42 },
			wantMsg: "invalid ocean_proximity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)
			_, err := ValidateRecord(payload)
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateRecordBoundaries(t *testing.T) {
	payload := validPayload()
	payload["longitude"] = -180.0
	payload["latitude"] = 90.0
	payload["median_income"] = 0.0
	if _, err := ValidateRecord(payload); err != nil {
		t.Errorf("boundary values should pass: %v", err)
	}

	payload["longitude"] = 180.0
	payload["latitude"] = -90.0
	if _, err := ValidateRecord(payload); err != nil {
		t.Errorf("boundary values should pass: %v", err)
	}
}

func TestValidateRecordIgnoresUnknownKeys(t *testing.T) {
	payload := validPayload()
	payload["neighborhood"] = "Sunset"
	payload["rooms_per_household"] = 5.4
	if _, err := ValidateRecord(payload); err != nil {
		t.Errorf("unknown keys should be ignored: %v", err)
	}
}
