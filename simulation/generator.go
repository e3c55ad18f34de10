package simulation

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/logging"
)

// batchSeedOffset separates a pair's batch stream from its usage stream.
const batchSeedOffset = 1 << 32

// Generator produces synthetic usage history per (medicine, region) pair,
// persisting the rows and exporting CSV files for downstream training.
type Generator struct {
	usage   interfaces.UsageStore
	batches interfaces.BatchStore
	dataDir string
	seed    int64
	qrCodes *qrRegistry
}

// NewGenerator creates a generator. A non-zero seed makes every run
// reproducible; a zero seed derives one from the clock.
func NewGenerator(usage interfaces.UsageStore, batches interfaces.BatchStore, dataDir string, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		usage:   usage,
		batches: batches,
		dataDir: dataDir,
		seed:    seed,
		qrCodes: newQRRegistry(),
	}
}

// pairSeed derives a stable per-pair seed so pairs stay independent of each
// other and of generation order.
func (g *Generator) pairSeed(medicineID uint, region entities.Region) int64 {
	return g.seed + int64(medicineID)*31 + int64(len(region))
}

// GenerateRegion generates usage history and stock batches for every
// medicine of a region over [start, end] inclusive. medicineIDs maps
// medicine names to their persisted identifiers. Medicines that already
// have persisted rows are skipped, so an interrupted run resumes without
// duplicating data.
func (g *Generator) GenerateRegion(cfg entities.RegionConfig, medicineIDs map[string]uint,
	start, end time.Time) error {

	for _, spec := range cfg.Medicines {
		medicineID, ok := medicineIDs[spec.Name]
		if !ok {
			return fmt.Errorf("medicine %q has no persisted identifier", spec.Name)
		}

		hasUsage, err := g.usage.HasUsage(medicineID, cfg.Region)
		if err != nil {
			return fmt.Errorf("check usage for %s/%s: %w", cfg.Region, spec.Name, err)
		}

		usagePoints := 0
		if !hasUsage {
			points, err := g.GenerateUsage(medicineID, cfg.Region, spec, cfg, start, end)
			if err != nil {
				return fmt.Errorf("generate usage for %s/%s: %w", cfg.Region, spec.Name, err)
			}
			if err := g.usage.AppendUsage(points); err != nil {
				return fmt.Errorf("persist usage for %s/%s: %w", cfg.Region, spec.Name, err)
			}
			if err := g.exportUsage(cfg.Region, spec.Name, points); err != nil {
				return fmt.Errorf("export usage for %s/%s: %w", cfg.Region, spec.Name, err)
			}
			usagePoints = len(points)
		}

		existing, err := g.batches.BatchesFor(medicineID, cfg.Region)
		if err != nil {
			return fmt.Errorf("check batches for %s/%s: %w", cfg.Region, spec.Name, err)
		}

		batchCount := 0
		if len(existing) == 0 {
			rng := rand.New(rand.NewSource(g.pairSeed(medicineID, cfg.Region) + batchSeedOffset))
			batches := GenerateBatches(medicineID, cfg.Region, start, end, rng, g.qrCodes)
			if err := g.batches.SaveBatches(batches); err != nil {
				return fmt.Errorf("persist batches for %s/%s: %w", cfg.Region, spec.Name, err)
			}
			batchCount = len(batches)
		}

		if usagePoints == 0 && batchCount == 0 {
			logging.Info("Pair already seeded, skipping",
				"region", cfg.Region,
				"medicine", spec.Name)
			continue
		}

		logging.Info("Generated synthetic data",
			"region", cfg.Region,
			"medicine", spec.Name,
			"usage_points", usagePoints,
			"batches", batchCount)
	}

	return nil
}

// GenerateUsage runs the composer over every calendar day of [start, end].
// The per-pair seed keeps pairs independent while staying reproducible.
func (g *Generator) GenerateUsage(medicineID uint, region entities.Region,
	spec entities.MedicineSpec, cfg entities.RegionConfig, start, end time.Time) ([]entities.UsagePoint, error) {

	composer, err := NewComposer(cfg.ProfileFor(spec.Name), cfg.ShockPeriods, cfg.Events, g.pairSeed(medicineID, region))
	if err != nil {
		return nil, err
	}

	days := daysBetween(start, end) + 1
	points := make([]entities.UsagePoint, 0, days)
	for offset := 0; offset < days; offset++ {
		date := start.AddDate(0, 0, offset)
		points = append(points, entities.UsagePoint{
			MedicineID:   medicineID,
			Region:       region,
			Date:         date,
			QuantityUsed: composer.Compose(spec.BaseDemand, date, offset),
		})
	}
	return points, nil
}

// exportUsage writes the raw usage CSV and the two-column (ds, y) training
// CSV under dataDir/<region>/{raw,processed}/.
func (g *Generator) exportUsage(region entities.Region, medicineName string, points []entities.UsagePoint) error {
	slug := Slug(medicineName)

	rawRows := make([][]string, 0, len(points)+1)
	rawRows = append(rawRows, []string{"medicine_id", "date", "quantity_used"})
	trainRows := make([][]string, 0, len(points)+1)
	trainRows = append(trainRows, []string{"ds", "y"})

	for _, p := range points {
		date := p.Date.Format(time.DateOnly)
		quantity := strconv.Itoa(p.QuantityUsed)
		rawRows = append(rawRows, []string{strconv.FormatUint(uint64(p.MedicineID), 10), date, quantity})
		trainRows = append(trainRows, []string{date, quantity})
	}

	rawPath := filepath.Join(g.dataDir, string(region), "raw", slug+"_usage.csv")
	if err := writeCSV(rawPath, rawRows); err != nil {
		return err
	}
	trainPath := filepath.Join(g.dataDir, string(region), "processed", slug+"_train.csv")
	return writeCSV(trainPath, trainRows)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
