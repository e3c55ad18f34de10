package forecasting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
)

// stubUsageStore serves one fixed series for every pair.
type stubUsageStore struct {
	series []entities.UsagePoint
	err    error
}

func (s *stubUsageStore) AppendUsage([]entities.UsagePoint) error { return nil }

func (s *stubUsageStore) UsageSeries(uint, entities.Region) ([]entities.UsagePoint, error) {
	return s.series, s.err
}

func (s *stubUsageStore) HasUsage(uint, entities.Region) (bool, error) {
	return len(s.series) > 0, nil
}

// memModelStore keeps models in a map.
type memModelStore struct {
	models  map[string]*entities.TrainedModel
	saveErr error
}

func newMemModelStore() *memModelStore {
	return &memModelStore{models: make(map[string]*entities.TrainedModel)}
}

func modelKey(region entities.Region, medicineID uint) string {
	return fmt.Sprintf("%s_%d", region, medicineID)
}

func (m *memModelStore) Save(model *entities.TrainedModel) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.models[modelKey(model.Region, model.MedicineID)] = model
	return nil
}

func (m *memModelStore) Load(region entities.Region, medicineID uint) (*entities.TrainedModel, error) {
	model, ok := m.models[modelKey(region, medicineID)]
	if !ok {
		return nil, fmt.Errorf("%w: medicine %d in %s", ErrModelNotFound, medicineID, region)
	}
	return model, nil
}

func (m *memModelStore) Metadata(region entities.Region, medicineID uint) (*entities.ModelMetadata, error) {
	model, err := m.Load(region, medicineID)
	if err != nil {
		return nil, err
	}
	return &entities.ModelMetadata{TrainedAt: model.TrainedAt, Parameters: model.Params}, nil
}

func (m *memModelStore) TrainedPairs() ([]interfaces.Pair, error) {
	pairs := make([]interfaces.Pair, 0, len(m.models))
	for _, model := range m.models {
		pairs = append(pairs, interfaces.Pair{MedicineID: model.MedicineID, Region: model.Region})
	}
	return pairs, nil
}

func trainableSeries(days int) []entities.UsagePoint {
	return makeSeries(days, func(i int, date time.Time) float64 {
		return 100*weekdayShape[date.Weekday()] + 0.02*float64(i)
	})
}

func TestTuneHyperparametersInsufficientData(t *testing.T) {
	_, _, err := TuneHyperparameters(trainableSeries(300))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTuneHyperparametersPicksGridCombination(t *testing.T) {
	params, score, err := TuneHyperparameters(trainableSeries(600))
	require.NoError(t, err)

	assert.Contains(t, changepointGrid, params.ChangepointSensitivity)
	assert.Contains(t, strengthGrid, params.SeasonalityStrength)
	assert.Contains(t, modeGrid, params.SeasonalityMode)
	assert.Positive(t, score)
}

func TestTrainPairPersistsModel(t *testing.T) {
	usage := &stubUsageStore{series: trainableSeries(600)}
	store := newMemModelStore()
	trainer := NewModelTrainer(usage, store)

	model, err := trainer.TrainPair(1, entities.RegionDelhi)
	require.NoError(t, err)
	require.NotNil(t, model)

	assert.False(t, model.TrainedAt.IsZero())
	assert.Equal(t, 600, model.Observations)

	saved, err := store.Load(entities.RegionDelhi, 1)
	require.NoError(t, err)
	assert.Equal(t, model, saved)
}

func TestTrainPairInsufficientData(t *testing.T) {
	usage := &stubUsageStore{series: trainableSeries(100)}
	store := newMemModelStore()
	trainer := NewModelTrainer(usage, store)

	_, err := trainer.TrainPair(1, entities.RegionDelhi)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, store.models)
}

func TestTrainPairPropagatesSaveFailure(t *testing.T) {
	usage := &stubUsageStore{series: trainableSeries(600)}
	store := newMemModelStore()
	store.saveErr = fmt.Errorf("%w: disk full", ErrPersistence)
	trainer := NewModelTrainer(usage, store)

	_, err := trainer.TrainPair(1, entities.RegionDelhi)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestCrossValidateFoldLayout(t *testing.T) {
	// 560 points allow two folds: cutoffs at 365 and 455.
	score, err := crossValidate(trainableSeries(560), entities.ModelParams{
		ChangepointSensitivity: 0.05,
		SeasonalityStrength:    1.0,
		SeasonalityMode:        entities.SeasonalityMultiplicative,
	})
	require.NoError(t, err)
	assert.Positive(t, score)

	// One point short of a single fold.
	_, err = crossValidate(trainableSeries(454), entities.ModelParams{
		ChangepointSensitivity: 0.05,
		SeasonalityStrength:    1.0,
		SeasonalityMode:        entities.SeasonalityMultiplicative,
	})
	assert.Error(t, err)
}
