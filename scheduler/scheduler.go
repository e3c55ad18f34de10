// Package scheduler runs the weekly retraining job and monitors model
// freshness. Dependencies are injected through interfaces so the schedule
// logic can be tested without real training runs.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/logging"
)

// Retraining runs every Sunday at 02:00 local time.
const (
	retrainDay  = time.Sunday
	retrainTime = "02:00"

	// A model older than this triggers a staleness warning. One missed
	// weekly run plus a day of slack.
	staleModelAge = 8 * 24 * time.Hour
)

// RetrainScheduler retrains every catalog pair on a weekly cadence.
type RetrainScheduler struct {
	catalog   interfaces.Catalog
	trainer   interfaces.Trainer
	models    interfaces.ModelStore
	scheduler *gocron.Scheduler

	stopMonitor chan struct{}
}

// Compile-time check to ensure RetrainScheduler implements Scheduler
var _ interfaces.Scheduler = (*RetrainScheduler)(nil)

// NewRetrainScheduler creates a new scheduler with injected dependencies
func NewRetrainScheduler(catalog interfaces.Catalog, trainer interfaces.Trainer,
	models interfaces.ModelStore) *RetrainScheduler {

	return &RetrainScheduler{
		catalog:     catalog,
		trainer:     trainer,
		models:      models,
		scheduler:   gocron.NewScheduler(time.Local),
		stopMonitor: make(chan struct{}),
	}
}

// Start schedules the weekly retraining job and begins health monitoring.
func (s *RetrainScheduler) Start() error {
	_, err := s.scheduler.Every(1).Week().Weekday(retrainDay).At(retrainTime).Do(func() {
		s.RetrainAll()
	})
	if err != nil {
		logging.Error("Failed to schedule weekly retraining", "error", err)
		return fmt.Errorf("failed to schedule weekly retraining: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()
	return nil
}

// Stop stops the scheduler and the health monitor
func (s *RetrainScheduler) Stop() {
	s.scheduler.Stop()
	close(s.stopMonitor)
}

// RetrainAll retrains every (medicine, region) pair in the catalog. A
// failing pair is logged and skipped so the weekly run always covers the
// rest of the catalog.
func (s *RetrainScheduler) RetrainAll() {
	pairs := s.catalog.GetPairs()

	fmt.Println("Starting weekly retraining at:", time.Now())
	start := time.Now()
	failures := 0

	for _, pair := range pairs {
		if _, err := s.trainer.TrainPair(pair.MedicineID, pair.Region); err != nil {
			failures++
			logging.Error("Weekly retraining failed for pair",
				"medicineID", pair.MedicineID,
				"region", pair.Region,
				"error", err)
		}
	}

	elapsed := time.Since(start)
	logging.Info("Weekly retraining completed",
		"duration", elapsed.String(),
		"pairs", len(pairs),
		"failures", failures)
}

// NextRetrain returns the time of the next scheduled retraining run.
func (s *RetrainScheduler) NextRetrain() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// startHealthMonitoring periodically checks model freshness and warns when
// any trained model has outlived a full weekly cycle.
func (s *RetrainScheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopMonitor:
				return
			case <-ticker.C:
				s.checkModelFreshness()
			}
		}
	}()
}

func (s *RetrainScheduler) checkModelFreshness() {
	pairs, err := s.models.TrainedPairs()
	if err != nil {
		logging.Warn("Could not list trained models for freshness check", "error", err)
		return
	}

	for _, pair := range pairs {
		metadata, err := s.models.Metadata(pair.Region, pair.MedicineID)
		if err != nil {
			continue
		}
		if time.Since(metadata.TrainedAt) > staleModelAge {
			logging.Warn("Model is stale",
				"medicineID", pair.MedicineID,
				"region", pair.Region,
				"trainedAt", metadata.TrainedAt)
		}
	}
}
