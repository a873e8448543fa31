package models

import "time"

// Ocean proximity categories. The set is closed: the feature encoding and the
// trained model artifact both depend on exactly these five values in this
// order, so adding or reordering members is a breaking schema change.
const (
	OceanLessThan1H = "<1H OCEAN"
	OceanInland     = "INLAND"
	OceanIsland     = "ISLAND"
	OceanNearBay    = "NEAR BAY"
	OceanNearOcean  = "NEAR OCEAN"
)

// OceanProximities lists the valid categories in encoding order.
var OceanProximities = []string{
	OceanLessThan1H,
	OceanInland,
	OceanIsland,
	OceanNearBay,
	OceanNearOcean,
}

// ValidOceanProximity reports whether v is a member of the category set.
func ValidOceanProximity(v string) bool {
	for _, p := range OceanProximities {
		if v == p {
			return true
		}
	}
	return false
}

// HousingRecord is a validated snapshot of one census block to be scored.
// Instances come out of pipeline.ValidateRecord and are never mutated
// afterwards. The same struct is the persisted row shape for the
// cleaned_housing_records table.
type HousingRecord struct {
	ID               string    `gorm:"column:id;primaryKey" json:"id"`
	Longitude        float64   `gorm:"column:longitude;not null" json:"longitude"`
	Latitude         float64   `gorm:"column:latitude;not null" json:"latitude"`
	HousingMedianAge float64   `gorm:"column:housing_median_age;not null" json:"housing_median_age"`
	TotalRooms       float64   `gorm:"column:total_rooms;not null" json:"total_rooms"`
	TotalBedrooms    float64   `gorm:"column:total_bedrooms;not null" json:"total_bedrooms"`
	Population       float64   `gorm:"column:population;not null" json:"population"`
	Households       float64   `gorm:"column:households;not null" json:"households"`
	MedianIncome     float64   `gorm:"column:median_income;not null" json:"median_income"`
	OceanProximity   string    `gorm:"column:ocean_proximity;not null" json:"ocean_proximity"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"-"`
}

func (HousingRecord) TableName() string { return "cleaned_housing_records" }
