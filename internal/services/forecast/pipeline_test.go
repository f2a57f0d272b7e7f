package forecast

import (
	"context"
	"sync"
	"testing"
	"time"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, amount, split, spike *fakeModel) *Pipeline {
	t.Helper()
	loader := &fakeLoader{models: map[string]domsvc.Model{
		ModelDailyAmount:       amount,
		ModelDenominationSplit: split,
		ModelSpikeHour:         spike,
	}}
	opts := DefaultOptions()
	opts.StoreTypes = []string{"kirana", "general"}
	opts.StoreType = "kirana"
	p, err := NewPipeline(context.Background(), loader, ModelRefs{}, opts, nil)
	require.NoError(t, err)
	return p
}

func peakAt(hour float64) func(domsvc.FeatureMatrix) [][]float64 {
	return func(x domsvc.FeatureMatrix) [][]float64 {
		out := make([][]float64, len(x.Rows))
		for i := range x.Rows {
			v := 5.0
			if column(x, i, "hour") == hour {
				v = 40
			}
			out[i] = []float64{v}
		}
		return out
	}
}

func TestRunPredictionSaturday(t *testing.T) {
	amount := &fakeModel{name: ModelDailyAmount, fn: constant(1234.567)}
	split := &fakeModel{name: ModelDenominationSplit, fn: constant(0, 1, 0, 1, 0, 1, 0, 1, 0, 1)}
	spike := &fakeModel{name: ModelSpikeHour, fn: peakAt(18)}
	p := newTestPipeline(t, amount, split, spike)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)
	require.Equal(t, time.Saturday, day.Weekday())

	res, err := p.RunPrediction(context.Background(), day, 0.0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, column(amount.lastMatrix(), 0, "is_weekend"))
	assert.Equal(t, 0.0, column(amount.lastMatrix(), 0, "lag1"))

	assert.Equal(t, "2024-06-15", res.Date)
	assert.Equal(t, 1234.57, res.TotalChange)
	assert.Equal(t, 18, res.SpikeHour)
	assert.Equal(t, "18:00 - 19:00", res.SpikeHourLabel)
	require.Len(t, res.Inventory, 10)
	assert.Equal(t, []int{0, 2, 0, 2, 0, 2, 0, 2, 0, 2}, res.Inventory.Counts())
	assert.Equal(t, 1252.0, res.InventoryValue)
	assert.GreaterOrEqual(t, res.InventoryValue, res.TotalChange)
	assert.InDelta(t, 17.43, res.SafetyBuffer, 1e-9)
	assert.InDelta(t, res.InventoryValue-res.TotalChange, res.SafetyBuffer, 1e-9)
}

func TestRunPredictionZeroBasket(t *testing.T) {
	amount := &fakeModel{fn: constant(640.25)}
	split := &fakeModel{fn: constant(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)}
	spike := &fakeModel{fn: peakAt(9)}
	p := newTestPipeline(t, amount, split, spike)

	res, err := p.RunPrediction(context.Background(), time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local), 0.0)
	require.NoError(t, err)
	assert.Equal(t, 640.25, res.TotalChange)
	assert.Equal(t, 0, res.Inventory.Total())
	assert.Len(t, res.Inventory, 10)
	assert.Equal(t, 0.0, res.InventoryValue)
	assert.Equal(t, -640.25, res.SafetyBuffer)
}

func TestRunPredictionRejectsBadCash(t *testing.T) {
	p := newTestPipeline(t, &fakeModel{fn: constant(1)}, &fakeModel{fn: constant(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)}, &fakeModel{fn: constant(1)})
	_, err := p.RunPrediction(context.Background(), time.Now(), -5)
	assert.ErrorIs(t, err, domsvc.ErrMalformedInput)
}

func TestRunPredictionSurfacesInferenceErrors(t *testing.T) {
	amount := &fakeModel{fn: constant(100)}
	split := &fakeModel{err: domsvc.ErrInference}
	p := newTestPipeline(t, amount, split, &fakeModel{fn: constant(1)})
	_, err := p.RunPrediction(context.Background(), time.Now(), 10)
	assert.ErrorIs(t, err, domsvc.ErrInference)
}

func TestNewPipelineFailsFast(t *testing.T) {
	loader := &fakeLoader{models: map[string]domsvc.Model{
		ModelDailyAmount: &fakeModel{fn: constant(1)},
		ModelSpikeHour:   &fakeModel{fn: constant(1)},
	}}
	_, err := NewPipeline(context.Background(), loader, ModelRefs{}, DefaultOptions(), nil)
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)

	opts := DefaultOptions()
	opts.Denominations = models.Denominations{1, 2}
	_, err = NewPipelineWithModels(&fakeModel{}, &fakeModel{}, &fakeModel{}, opts, nil)
	assert.Error(t, err)
}

func TestRunPredictionConcurrent(t *testing.T) {
	p := newTestPipeline(t,
		&fakeModel{fn: constant(333.33)},
		&fakeModel{fn: constant(0, 0, 1, 1, 1, 1, 1, 1, 1, 1)},
		&fakeModel{fn: peakAt(12)},
	)
	day := time.Date(2024, 6, 17, 0, 0, 0, 0, time.Local)
	want, err := p.RunPrediction(context.Background(), day, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.RunPrediction(context.Background(), day, 100)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
