package entities

import "time"

// SeasonalityMode selects how seasonal components combine with the trend.
type SeasonalityMode string

const (
	SeasonalityAdditive       SeasonalityMode = "additive"
	SeasonalityMultiplicative SeasonalityMode = "multiplicative"
)

// ModelParams are the tunable hyperparameters of the decomposition model.
type ModelParams struct {
	ChangepointSensitivity float64         `json:"changepoint_sensitivity"`
	SeasonalityStrength    float64         `json:"seasonality_strength"`
	SeasonalityMode        SeasonalityMode `json:"seasonality_mode"`
}

// TrainedModel is a fitted trend+seasonality decomposition for one
// (medicine, region) pair. It is read-only once published; retraining
// replaces it wholesale.
type TrainedModel struct {
	MedicineID uint
	Region     Region
	Params     ModelParams
	TrainedAt  time.Time

	// Fitted state.
	Level        float64    // smoothed series level at the end of history
	Trend        float64    // per-day trend at the end of history
	Weekly       [7]float64 // day-of-week effects, indexed by time.Weekday
	Monthly      [12]float64
	Sigma        float64 // residual standard deviation
	Observations int
	SeriesEnd    time.Time
}

// ModelMetadata is the JSON sidecar persisted next to each model artifact.
type ModelMetadata struct {
	TrainedAt  time.Time   `json:"trained_at"`
	Parameters ModelParams `json:"parameters"`
}

// RetrainAck acknowledges an accepted retraining request. Training itself
// runs in the background.
type RetrainAck struct {
	JobID       string    `json:"job_id"`
	Pairs       int       `json:"pairs"`
	RequestedAt time.Time `json:"requested_at"`
}
