// Package entities defines the domain types shared by the simulation,
// forecasting and storage layers.
package entities

import "time"

// Region is a named partition of the dataset. All generation, training and
// forecasting are scoped per (Medicine, Region) pair.
type Region string

const (
	RegionDelhi   Region = "delhi"
	RegionKolkata Region = "kolkata"
)

// Medicine is immutable reference data, created once at seeding time.
type Medicine struct {
	ID       uint   `gorm:"primaryKey" json:"medicine_id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Category string `gorm:"not null" json:"category"`
	Unit     string `gorm:"not null" json:"unit"`
}

// UsagePoint is one day of observed demand for a medicine in a region.
// Rows are append-only historical facts once generated.
// Invariant: QuantityUsed >= 1.
type UsagePoint struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	MedicineID   uint      `gorm:"index:idx_usage_pair_date,priority:1;not null" json:"medicine_id"`
	Region       Region    `gorm:"index:idx_usage_pair_date,priority:2;not null" json:"region"`
	Date         time.Time `gorm:"index:idx_usage_pair_date,priority:3;not null" json:"date"`
	QuantityUsed int       `gorm:"not null" json:"quantity_used"`
}

// Batch is a physical stock lot, statistically unrelated to usage.
// Invariant: QRCode is globally unique.
type Batch struct {
	ID         string    `gorm:"primaryKey" json:"batch_id"`
	MedicineID uint      `gorm:"index;not null" json:"medicine_id"`
	Region     Region    `gorm:"index;not null" json:"region"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	ExpiryDate time.Time `gorm:"not null" json:"expiry_date"`
	QRCode     string    `gorm:"uniqueIndex;not null" json:"qr_code"`
}

// ForecastPoint is derived, cached model output. Rows may be deleted and
// regenerated freely; regeneration always replaces the full horizon window.
type ForecastPoint struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	MedicineID      uint      `gorm:"index:idx_forecast_pair,priority:1;not null" json:"medicine_id"`
	Region          Region    `gorm:"index:idx_forecast_pair,priority:2;not null" json:"region"`
	Date            time.Time `gorm:"not null" json:"date"`
	PredictedDemand int       `gorm:"not null" json:"predicted_demand"`
	ConfidenceWidth float64   `gorm:"not null" json:"confidence_interval"`
	CreatedAt       time.Time `json:"created_at"`
}
