// Package storage persists the simulated history and derived forecasts in a
// sqlite database through gorm. One Store backs the usage, batch and
// forecast store interfaces.
package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
)

const createBatchSize = 500

// Open opens the sqlite database and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&entities.Medicine{},
		&entities.UsagePoint{},
		&entities.Batch{},
		&entities.ForecastPoint{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// Store implements the usage, batch and forecast persistence interfaces on
// top of one gorm connection.
type Store struct {
	db *gorm.DB
}

var (
	_ interfaces.UsageStore    = (*Store)(nil)
	_ interfaces.BatchStore    = (*Store)(nil)
	_ interfaces.ForecastStore = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveMedicines upserts the catalog medicines by name and returns the
// name-to-ID mapping. Re-running the seed against an existing database keeps
// the original IDs.
func (s *Store) SaveMedicines(specs []entities.MedicineSpec) (map[string]uint, error) {
	ids := make(map[string]uint, len(specs))
	for _, spec := range specs {
		medicine := entities.Medicine{
			Name:     spec.Name,
			Category: spec.Category,
			Unit:     spec.Unit,
		}
		if err := s.db.Where(entities.Medicine{Name: spec.Name}).
			FirstOrCreate(&medicine).Error; err != nil {
			return nil, fmt.Errorf("upserting medicine %s: %w", spec.Name, err)
		}
		ids[spec.Name] = medicine.ID
	}
	return ids, nil
}

// AppendUsage inserts usage points in batches.
func (s *Store) AppendUsage(points []entities.UsagePoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(points, createBatchSize).Error; err != nil {
		return fmt.Errorf("inserting %d usage points: %w", len(points), err)
	}
	return nil
}

// UsageSeries returns the full history for a pair ordered by date.
func (s *Store) UsageSeries(medicineID uint, region entities.Region) ([]entities.UsagePoint, error) {
	var points []entities.UsagePoint
	err := s.db.
		Where("medicine_id = ? AND region = ?", medicineID, region).
		Order("date ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("loading usage for medicine %d in %s: %w", medicineID, region, err)
	}
	return points, nil
}

// HasUsage reports whether any history exists for a pair.
func (s *Store) HasUsage(medicineID uint, region entities.Region) (bool, error) {
	var count int64
	err := s.db.Model(&entities.UsagePoint{}).
		Where("medicine_id = ? AND region = ?", medicineID, region).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking usage for medicine %d in %s: %w", medicineID, region, err)
	}
	return count > 0, nil
}

// SaveBatches inserts stock lots in batches.
func (s *Store) SaveBatches(batches []entities.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(batches, createBatchSize).Error; err != nil {
		return fmt.Errorf("inserting %d batches: %w", len(batches), err)
	}
	return nil
}

// BatchesFor returns the stock lots for a pair ordered by expiry.
func (s *Store) BatchesFor(medicineID uint, region entities.Region) ([]entities.Batch, error) {
	var batches []entities.Batch
	err := s.db.
		Where("medicine_id = ? AND region = ?", medicineID, region).
		Order("expiry_date ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("loading batches for medicine %d in %s: %w", medicineID, region, err)
	}
	return batches, nil
}

// ReplaceHorizon swaps the cached forecast window for a pair in a single
// transaction. Readers observe either the old horizon or the new one.
func (s *Store) ReplaceHorizon(medicineID uint, region entities.Region, points []entities.ForecastPoint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("medicine_id = ? AND region = ?", medicineID, region).
			Delete(&entities.ForecastPoint{}).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}
		return tx.CreateInBatches(points, createBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("replacing forecast horizon for medicine %d in %s: %w", medicineID, region, err)
	}
	return nil
}

// Horizon returns the cached forecast window for a pair ordered by date.
func (s *Store) Horizon(medicineID uint, region entities.Region) ([]entities.ForecastPoint, error) {
	var points []entities.ForecastPoint
	err := s.db.
		Where("medicine_id = ? AND region = ?", medicineID, region).
		Order("date ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("loading forecast horizon for medicine %d in %s: %w", medicineID, region, err)
	}
	return points, nil
}
