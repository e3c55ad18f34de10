package forecasting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/logging"
	"github.com/medismart/forecast-api/metrics"
)

// Service implements the forecast operations consumed by the API layer. It
// serves cached horizons when they are newer than the underlying model and
// recomputes them otherwise.
type Service struct {
	trainer   interfaces.Trainer
	models    interfaces.ModelStore
	forecasts interfaces.ForecastStore
	catalog   interfaces.Catalog

	// trainOnDemand enables lazy training on first forecast request. When
	// disabled, requests for untrained pairs fail with ErrModelNotFound.
	trainOnDemand bool

	now func() time.Time
}

var _ interfaces.ForecastService = (*Service)(nil)

func NewService(trainer interfaces.Trainer, models interfaces.ModelStore,
	forecasts interfaces.ForecastStore, catalog interfaces.Catalog, trainOnDemand bool) *Service {

	return &Service{
		trainer:       trainer,
		models:        models,
		forecasts:     forecasts,
		catalog:       catalog,
		trainOnDemand: trainOnDemand,
		now:           time.Now,
	}
}

// GetForecast returns the 90-day daily horizon for one pair.
func (s *Service) GetForecast(medicineID uint, region entities.Region) ([]entities.ForecastPoint, error) {
	model, err := s.models.Load(region, medicineID)
	if errors.Is(err, ErrModelNotFound) && s.trainOnDemand {
		logging.Info("no model yet, training on demand", "medicineID", medicineID, "region", region)
		model, err = s.trainer.TrainPair(medicineID, region)
	}
	if err != nil {
		return nil, err
	}

	cached, err := s.forecasts.Horizon(medicineID, region)
	if err == nil && len(cached) == HorizonDays && cached[0].CreatedAt.After(model.TrainedAt) {
		metrics.ForecastsServed.WithLabelValues(string(region), "cache").Inc()
		return cached, nil
	}

	points := Forecast(model, model.SeriesEnd, HorizonDays)
	if err := s.forecasts.ReplaceHorizon(medicineID, region, points); err != nil {
		// The horizon is already computed; a cache write failure is not
		// worth failing the request over.
		logging.Warn("forecast cache write failed", "medicineID", medicineID, "region", region, "error", err)
	}

	metrics.ForecastsServed.WithLabelValues(string(region), "computed").Inc()
	return points, nil
}

// RequestRetrain resolves the requested scope against the catalog and kicks
// off background retraining for the matching pairs. A zero medicineID or an
// empty region widens the scope; fully unscoped requests retrain everything.
func (s *Service) RequestRetrain(medicineID uint, region entities.Region) (*entities.RetrainAck, error) {
	var scope []interfaces.Pair
	for _, pair := range s.catalog.GetPairs() {
		if medicineID != 0 && pair.MedicineID != medicineID {
			continue
		}
		if region != "" && pair.Region != region {
			continue
		}
		scope = append(scope, pair)
	}
	if len(scope) == 0 {
		return nil, fmt.Errorf("%w: no catalog pair matches medicine %d, region %q", ErrModelNotFound, medicineID, region)
	}

	ack := &entities.RetrainAck{
		JobID:       uuid.NewString(),
		Pairs:       len(scope),
		RequestedAt: s.now(),
	}

	go s.retrain(ack.JobID, scope)
	return ack, nil
}

// retrain works through the scope sequentially. A failing pair is logged and
// skipped so one pathological series cannot block the rest of the run.
func (s *Service) retrain(jobID string, scope []interfaces.Pair) {
	started := time.Now()
	failures := 0

	for _, pair := range scope {
		if _, err := s.trainer.TrainPair(pair.MedicineID, pair.Region); err != nil {
			failures++
			logging.Error("retraining failed for pair",
				"jobID", jobID,
				"medicineID", pair.MedicineID,
				"region", pair.Region,
				"error", err)
		}
	}

	logging.Info("retraining job finished",
		"jobID", jobID,
		"pairs", len(scope),
		"failures", failures,
		"duration", time.Since(started).String())
}
