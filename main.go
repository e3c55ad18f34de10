package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medismart/forecast-api/config"
	"github.com/medismart/forecast-api/data"
	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/forecasting"
	"github.com/medismart/forecast-api/handlers"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/inventory"
	"github.com/medismart/forecast-api/logging"
	"github.com/medismart/forecast-api/scheduler"
	"github.com/medismart/forecast-api/server"
	"github.com/medismart/forecast-api/simulation"
	"github.com/medismart/forecast-api/storage"
	"github.com/medismart/forecast-api/validation"
)

func main() {
	// .env is optional, real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Configuration error:", err)
		os.Exit(1)
	}

	logging.InitLogger("logs", cfg.LogRetentionWeeks)

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logging.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	store := storage.NewStore(db)

	// The simulated window ends yesterday so forecasts start today. Dates
	// are anchored to UTC midnight to keep day arithmetic zone-independent.
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	start := end.AddDate(-cfg.HistoryYears, 0, 0)
	regionConfigs := simulation.DefaultRegionConfigs(start, end)

	catalog := data.NewCatalogContainer()
	medicineIDs, err := loadCatalog(catalog, store, regionConfigs)
	if err != nil {
		logging.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}

	if err := seedHistory(store, regionConfigs, medicineIDs, cfg, start, end); err != nil {
		logging.Error("Failed to seed usage history", "error", err)
		os.Exit(1)
	}

	models, err := forecasting.NewFileModelStore(cfg.ModelDir)
	if err != nil {
		logging.Error("Failed to create model store", "error", err)
		os.Exit(1)
	}

	trainer := forecasting.NewModelTrainer(store, models)
	service := forecasting.NewService(trainer, models, store, catalog, cfg.TrainOnDemand)

	retrainScheduler := scheduler.NewRetrainScheduler(catalog, trainer, models)
	if err := retrainScheduler.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer retrainScheduler.Stop()

	validator := validation.NewValidator(catalog)
	advisor := inventory.NewAdvisor(store, store)
	handler := handlers.NewHTTPHandler(service, catalog, validator, models, advisor, retrainScheduler)
	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}

// loadCatalog persists the configured medicines and publishes the catalog
// atomically. Returns per-region medicine name to ID mappings.
func loadCatalog(catalog *data.CatalogContainer, store *storage.Store,
	regionConfigs []entities.RegionConfig) (map[entities.Region]map[string]uint, error) {

	if !catalog.BeginUpdate() {
		return nil, fmt.Errorf("catalog update already in progress")
	}
	defer catalog.EndUpdate()

	medicineIDs := make(map[entities.Region]map[string]uint, len(regionConfigs))
	medicinesMap := make(map[uint]entities.Medicine)
	var medicines []entities.Medicine
	var pairs []interfaces.Pair

	for _, regionCfg := range regionConfigs {
		ids, err := store.SaveMedicines(regionCfg.Medicines)
		if err != nil {
			return nil, err
		}
		medicineIDs[regionCfg.Region] = ids

		for _, spec := range regionCfg.Medicines {
			id := ids[spec.Name]
			if _, seen := medicinesMap[id]; !seen {
				medicine := entities.Medicine{
					ID:       id,
					Name:     spec.Name,
					Category: spec.Category,
					Unit:     spec.Unit,
				}
				medicinesMap[id] = medicine
				medicines = append(medicines, medicine)
			}
			pairs = append(pairs, interfaces.Pair{MedicineID: id, Region: regionCfg.Region})
		}
	}

	catalog.UpdateCatalog(medicines, medicinesMap, regionConfigs, pairs)
	logging.Info("Catalog loaded", "medicines", len(medicines), "pairs", len(pairs))
	return medicineIDs, nil
}

// seedHistory generates the synthetic usage history and batches for every
// (medicine, region) pair that does not have them yet. The generator skips
// pairs with persisted rows, so a run interrupted partway resumes without
// duplicating data.
func seedHistory(store *storage.Store, regionConfigs []entities.RegionConfig,
	medicineIDs map[entities.Region]map[string]uint,
	cfg *config.Config, start, end time.Time) error {

	generator := simulation.NewGenerator(store, store, cfg.DataDir, cfg.Seed)

	logging.Info("Seeding usage history",
		"from", start.Format(time.DateOnly),
		"to", end.Format(time.DateOnly))

	for _, regionCfg := range regionConfigs {
		if err := generator.GenerateRegion(regionCfg, medicineIDs[regionCfg.Region], start, end); err != nil {
			return err
		}
	}

	return nil
}
