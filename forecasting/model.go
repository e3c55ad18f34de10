package forecasting

import (
	"fmt"
	"math"
	"time"

	"github.com/medismart/forecast-api/entities"
)

const (
	// HorizonDays is the fixed forecast horizon.
	HorizonDays = 90

	// minFitObservations is the floor for a plain fit; cross-validation has
	// its own, much larger requirement.
	minFitObservations = 28

	confidenceZ = 1.96 // 95% band
)

// Fit trains one decomposition model over the full series with the given
// hyperparameters. The series must be ordered by date with one point per
// day. Fitting is deterministic: identical series and params yield identical
// models.
func Fit(series []entities.UsagePoint, params entities.ModelParams) (*entities.TrainedModel, error) {
	if len(series) < minFitObservations {
		return nil, fmt.Errorf("%w: %d points, need at least %d", ErrInsufficientData, len(series), minFitObservations)
	}
	if params.SeasonalityMode != entities.SeasonalityAdditive && params.SeasonalityMode != entities.SeasonalityMultiplicative {
		return nil, fmt.Errorf("unknown seasonality mode %q", params.SeasonalityMode)
	}

	y := make([]float64, len(series))
	for i, p := range series {
		y[i] = float64(p.QuantityUsed)
	}

	// Trend: Holt linear smoothing. The changepoint sensitivity controls how
	// quickly level and trend adapt to regime changes in the series.
	alpha := params.ChangepointSensitivity / (1 + params.ChangepointSensitivity)
	beta := alpha / 3

	level := y[0]
	span := 7
	if span >= len(y) {
		span = len(y) - 1
	}
	trend := (y[span] - y[0]) / float64(span)

	trendFit := make([]float64, len(y))
	for i, v := range y {
		predicted := level + trend
		trendFit[i] = predicted

		previousLevel := level
		level = alpha*v + (1-alpha)*predicted
		trend = beta*(level-previousLevel) + (1-beta)*trend
	}

	multiplicative := params.SeasonalityMode == entities.SeasonalityMultiplicative
	shrink := params.SeasonalityStrength / (1 + params.SeasonalityStrength)

	detrended := make([]float64, len(y))
	for i, v := range y {
		if multiplicative {
			detrended[i] = v / math.Max(trendFit[i], 1e-9)
		} else {
			detrended[i] = v - trendFit[i]
		}
	}

	weekly := seasonalIndex(series, detrended, 7, func(p entities.UsagePoint) int {
		return int(p.Date.Weekday())
	}, multiplicative, shrink)

	deseasoned := make([]float64, len(y))
	for i, p := range series {
		if multiplicative {
			deseasoned[i] = detrended[i] / weekly[p.Date.Weekday()]
		} else {
			deseasoned[i] = detrended[i] - weekly[p.Date.Weekday()]
		}
	}

	monthly := seasonalIndex(series, deseasoned, 12, func(p entities.UsagePoint) int {
		return int(p.Date.Month()) - 1
	}, multiplicative, shrink)

	// Residual spread over the in-sample fit drives the uncertainty band.
	var sumSq float64
	for i, p := range series {
		var fitted float64
		if multiplicative {
			fitted = trendFit[i] * weekly[p.Date.Weekday()] * monthly[p.Date.Month()-1]
		} else {
			fitted = trendFit[i] + weekly[p.Date.Weekday()] + monthly[p.Date.Month()-1]
		}
		residual := y[i] - fitted
		sumSq += residual * residual
	}
	sigma := math.Sqrt(sumSq / float64(len(y)))

	model := &entities.TrainedModel{
		MedicineID:   series[0].MedicineID,
		Region:       series[0].Region,
		Params:       params,
		Level:        level,
		Trend:        trend,
		Sigma:        sigma,
		Observations: len(series),
		SeriesEnd:    series[len(series)-1].Date,
	}
	copy(model.Weekly[:], weekly)
	copy(model.Monthly[:], monthly)
	return model, nil
}

// seasonalIndex averages residual values per bin, normalizes them to a
// neutral mean, and shrinks them toward neutral by the seasonality strength.
func seasonalIndex(series []entities.UsagePoint, residuals []float64, bins int,
	binOf func(entities.UsagePoint) int, multiplicative bool, shrink float64) []float64 {

	sums := make([]float64, bins)
	counts := make([]int, bins)
	for i, p := range series {
		bin := binOf(p)
		sums[bin] += residuals[i]
		counts[bin]++
	}

	neutral := 0.0
	if multiplicative {
		neutral = 1.0
	}

	index := make([]float64, bins)
	var total float64
	seen := 0
	for i := range index {
		if counts[i] == 0 {
			index[i] = neutral
			continue
		}
		index[i] = sums[i] / float64(counts[i])
		total += index[i]
		seen++
	}

	// Normalize so the seasonal component is neutral on average and cannot
	// absorb the trend.
	if seen > 0 {
		mean := total / float64(seen)
		for i := range index {
			if counts[i] == 0 {
				continue
			}
			if multiplicative {
				if mean > 1e-9 {
					index[i] /= mean
				}
			} else {
				index[i] -= mean
			}
		}
	}

	for i := range index {
		if multiplicative {
			index[i] = 1 + shrink*(index[i]-1)
		} else {
			index[i] = shrink * index[i]
		}
	}
	return index
}

// Forecast produces daily point predictions with an uncertainty width for
// the horizon following from. Predicted demand is floored at zero; the band
// widens with lead time.
func Forecast(model *entities.TrainedModel, from time.Time, horizon int) []entities.ForecastPoint {
	points := make([]entities.ForecastPoint, 0, horizon)
	now := time.Now()

	for h := 1; h <= horizon; h++ {
		date := from.AddDate(0, 0, h)
		lead := date.Sub(model.SeriesEnd).Hours() / 24
		if lead < 1 {
			lead = 1
		}

		trendValue := model.Level + model.Trend*lead
		var value float64
		if model.Params.SeasonalityMode == entities.SeasonalityMultiplicative {
			value = trendValue * model.Weekly[date.Weekday()] * model.Monthly[date.Month()-1]
		} else {
			value = trendValue + model.Weekly[date.Weekday()] + model.Monthly[date.Month()-1]
		}
		if value < 0 {
			value = 0
		}

		width := confidenceZ * model.Sigma * math.Sqrt(1+lead/float64(model.Observations))

		points = append(points, entities.ForecastPoint{
			MedicineID:      model.MedicineID,
			Region:          model.Region,
			Date:            date,
			PredictedDemand: int(math.Round(value)),
			ConfidenceWidth: width,
			CreatedAt:       now,
		})
	}
	return points
}
