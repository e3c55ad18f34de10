package forecasting

import (
	"fmt"
	"time"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/logging"
	"github.com/medismart/forecast-api/metrics"
)

const (
	// Rolling-origin cross-validation layout. The first fold trains on one
	// year of history; each later fold moves the cutoff forward by a quarter
	// and scores the next quarter.
	cvInitialDays = 365
	cvPeriodDays  = 90
	cvHorizonDays = 90

	// minTrainingPoints is the shortest series that yields at least one
	// complete cross-validation fold.
	minTrainingPoints = cvInitialDays + cvHorizonDays
)

// The hyperparameter grid searched for every pair: 5 x 4 x 2 combinations.
var (
	changepointGrid = []float64{0.001, 0.01, 0.05, 0.1, 0.5}
	strengthGrid    = []float64{0.01, 0.1, 1.0, 10.0}
	modeGrid        = []entities.SeasonalityMode{
		entities.SeasonalityMultiplicative,
		entities.SeasonalityAdditive,
	}
)

// ModelTrainer tunes, fits and persists one model per (medicine, region)
// pair from its usage history.
type ModelTrainer struct {
	usage interfaces.UsageStore
	store interfaces.ModelStore
}

var _ interfaces.Trainer = (*ModelTrainer)(nil)

func NewModelTrainer(usage interfaces.UsageStore, store interfaces.ModelStore) *ModelTrainer {
	return &ModelTrainer{usage: usage, store: store}
}

// TrainPair runs the full pipeline for one pair: load history, grid-search
// hyperparameters, fit on the complete series and persist the result. On any
// failure the previously persisted model for the pair is left untouched.
func (t *ModelTrainer) TrainPair(medicineID uint, region entities.Region) (*entities.TrainedModel, error) {
	started := time.Now()

	series, err := t.usage.UsageSeries(medicineID, region)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading usage for medicine %d in %s: %w", medicineID, region, err)
	}

	params, score, err := TuneHyperparameters(series)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	model, err := Fit(series, params)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: final fit for medicine %d in %s: %v", ErrTrainingFailed, medicineID, region, err)
	}
	model.TrainedAt = time.Now()

	if err := t.store.Save(model); err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	elapsed := time.Since(started)
	metrics.TrainingRuns.WithLabelValues("success").Inc()
	metrics.TrainingDuration.Observe(elapsed.Seconds())

	logging.Info("model trained",
		"medicineID", medicineID,
		"region", region,
		"changepointSensitivity", params.ChangepointSensitivity,
		"seasonalityStrength", params.SeasonalityStrength,
		"seasonalityMode", params.SeasonalityMode,
		"cvRMSE", score,
		"duration", elapsed.String())
	return model, nil
}

// TuneHyperparameters grid-searches the model hyperparameters and returns
// the combination with the lowest mean cross-validated RMSE. Combinations
// that fail to fit are skipped; only when every combination fails does the
// search itself fail.
func TuneHyperparameters(series []entities.UsagePoint) (entities.ModelParams, float64, error) {
	if len(series) < minTrainingPoints {
		return entities.ModelParams{}, 0, fmt.Errorf("%w: %d points, need at least %d for cross-validation",
			ErrInsufficientData, len(series), minTrainingPoints)
	}

	var (
		best      entities.ModelParams
		bestScore float64
		found     bool
	)

	for _, changepoint := range changepointGrid {
		for _, strength := range strengthGrid {
			for _, mode := range modeGrid {
				params := entities.ModelParams{
					ChangepointSensitivity: changepoint,
					SeasonalityStrength:    strength,
					SeasonalityMode:        mode,
				}

				score, err := crossValidate(series, params)
				if err != nil {
					logging.Warn("hyperparameter combination skipped",
						"changepointSensitivity", changepoint,
						"seasonalityStrength", strength,
						"seasonalityMode", mode,
						"error", err)
					continue
				}

				if !found || score < bestScore {
					best = params
					bestScore = score
					found = true
				}
			}
		}
	}

	if !found {
		return entities.ModelParams{}, 0, ErrTrainingFailed
	}
	return best, bestScore, nil
}

// crossValidate scores one hyperparameter combination with rolling-origin
// evaluation: fit on everything before the cutoff, predict the following
// horizon, compare against the held-out actuals, then roll the cutoff
// forward. Returns the mean RMSE across folds.
func crossValidate(series []entities.UsagePoint, params entities.ModelParams) (float64, error) {
	var (
		total float64
		folds int
	)

	for cutoff := cvInitialDays; cutoff+cvHorizonDays <= len(series); cutoff += cvPeriodDays {
		train := series[:cutoff]
		holdout := series[cutoff : cutoff+cvHorizonDays]

		model, err := Fit(train, params)
		if err != nil {
			return 0, fmt.Errorf("fold at offset %d: %w", cutoff, err)
		}

		predicted := Forecast(model, train[len(train)-1].Date, cvHorizonDays)

		actual := make([]float64, len(holdout))
		estimate := make([]float64, len(holdout))
		for i := range holdout {
			actual[i] = float64(holdout[i].QuantityUsed)
			estimate[i] = float64(predicted[i].PredictedDemand)
		}
		total += RMSE(actual, estimate)
		folds++
	}

	if folds == 0 {
		return 0, fmt.Errorf("series too short for any fold")
	}
	return total / float64(folds), nil
}
