package forecasting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
)

func sampleModel() *entities.TrainedModel {
	model := &entities.TrainedModel{
		MedicineID: 3,
		Region:     entities.RegionKolkata,
		Params: entities.ModelParams{
			ChangepointSensitivity: 0.05,
			SeasonalityStrength:    1.0,
			SeasonalityMode:        entities.SeasonalityMultiplicative,
		},
		TrainedAt:    time.Date(2025, time.June, 1, 2, 0, 0, 0, time.UTC),
		Level:        104.2,
		Trend:        0.01,
		Sigma:        8.4,
		Observations: 1460,
		SeriesEnd:    time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	for i := range model.Weekly {
		model.Weekly[i] = 1.0
	}
	for i := range model.Monthly {
		model.Monthly[i] = 1.0
	}
	return model
}

func TestFileModelStoreRoundTrip(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	require.NoError(t, err)

	model := sampleModel()
	require.NoError(t, store.Save(model))

	loaded, err := store.Load(model.Region, model.MedicineID)
	require.NoError(t, err)
	assert.Equal(t, model, loaded)

	metadata, err := store.Metadata(model.Region, model.MedicineID)
	require.NoError(t, err)
	assert.Equal(t, model.Params, metadata.Parameters)
	assert.True(t, metadata.TrainedAt.Equal(model.TrainedAt))
}

func TestFileModelStoreSaveIsIdempotent(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	require.NoError(t, err)

	model := sampleModel()
	require.NoError(t, store.Save(model))
	require.NoError(t, store.Save(model))

	loaded, err := store.Load(model.Region, model.MedicineID)
	require.NoError(t, err)
	assert.Equal(t, model, loaded)

	pairs, err := store.TrainedPairs()
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestFileModelStoreLoadMissing(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(entities.RegionDelhi, 42)
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = store.Metadata(entities.RegionDelhi, 42)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestFileModelStoreTrainedPairs(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	require.NoError(t, err)

	first := sampleModel()
	second := sampleModel()
	second.MedicineID = 7
	second.Region = entities.RegionDelhi

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	pairs, err := store.TrainedPairs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []interfaces.Pair{
		{MedicineID: 3, Region: entities.RegionKolkata},
		{MedicineID: 7, Region: entities.RegionDelhi},
	}, pairs)
}
