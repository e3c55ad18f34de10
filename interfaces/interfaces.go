// Package interfaces defines the core abstractions of the forecasting
// service to improve testability and separation of concerns.
package interfaces

import (
	"time"

	"github.com/medismart/forecast-api/entities"
)

// Pair identifies one (medicine, region) training and forecasting unit.
type Pair struct {
	MedicineID uint
	Region     entities.Region
}

// Catalog provides thread-safe access to the reference data: medicines and
// region configurations. It is loaded at startup and swapped atomically.
type Catalog interface {
	GetMedicines() []entities.Medicine
	GetMedicinesMap() map[uint]entities.Medicine
	GetRegionConfigs() []entities.RegionConfig
	GetPairs() []Pair
	GetLastLoaded() time.Time
}

// UsageStore provides access to the historical usage time series.
type UsageStore interface {
	AppendUsage(points []entities.UsagePoint) error
	UsageSeries(medicineID uint, region entities.Region) ([]entities.UsagePoint, error)
	HasUsage(medicineID uint, region entities.Region) (bool, error)
}

// BatchStore persists synthetic stock lots.
type BatchStore interface {
	SaveBatches(batches []entities.Batch) error
	BatchesFor(medicineID uint, region entities.Region) ([]entities.Batch, error)
}

// ForecastStore caches derived forecast rows. ReplaceHorizon swaps the full
// horizon window for a pair in a single transaction; readers never observe a
// partially replaced horizon.
type ForecastStore interface {
	ReplaceHorizon(medicineID uint, region entities.Region, points []entities.ForecastPoint) error
	Horizon(medicineID uint, region entities.Region) ([]entities.ForecastPoint, error)
}

// ModelStore persists trained models keyed by (region, medicine).
// Save must be atomic from the reader's perspective: a concurrent Load
// returns either the previous or the new model, never a partial write.
type ModelStore interface {
	Save(model *entities.TrainedModel) error
	Load(region entities.Region, medicineID uint) (*entities.TrainedModel, error)
	Metadata(region entities.Region, medicineID uint) (*entities.ModelMetadata, error)
	TrainedPairs() ([]Pair, error)
}

// Trainer fits and persists a forecast model for one pair.
type Trainer interface {
	TrainPair(medicineID uint, region entities.Region) (*entities.TrainedModel, error)
}

// ForecastService is the interface consumed by the API layer.
type ForecastService interface {
	// GetForecast returns the 90-day horizon for a pair, lazily training
	// when enabled.
	GetForecast(medicineID uint, region entities.Region) ([]entities.ForecastPoint, error)

	// RequestRetrain dispatches background retraining. A zero medicineID or
	// empty region widens the scope; fully unscoped calls retrain all pairs.
	RequestRetrain(medicineID uint, region entities.Region) (*entities.RetrainAck, error)
}

// Scheduler manages the weekly retraining job and health monitoring.
type Scheduler interface {
	Start() error
	Stop()

	// NextRetrain reports when the next scheduled run fires; zero before
	// Start.
	NextRetrain() time.Time
}

// Validator validates raw request inputs.
type Validator interface {
	ValidateMedicineID(input string) (uint, error)
	ValidateRegion(input string) (entities.Region, error)
}
