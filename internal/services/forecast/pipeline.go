package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/services/features"
	xlogger "KiranaCash/pkg/logger"

	"github.com/shopspring/decimal"
)

// Model handle names.
const (
	ModelDailyAmount       = "daily_amount"
	ModelDenominationSplit = "denomination_split"
	ModelSpikeHour         = "spike_hour"
)

// Options are the deployment parameters of a Pipeline.
type Options struct {
	Denominations    models.Denominations
	StoreTypes       []string
	StoreType        string
	Basket           []Scenario
	OpenHour         int
	CloseHour        int
	SpikePeriod      float64
	DefaultDayVolume float64
}

// DefaultOptions mirror the shipped configuration.
func DefaultOptions() Options {
	return Options{
		Denominations:    models.DefaultDenominations,
		Basket:           DefaultBasket,
		OpenHour:         8,
		CloseHour:        21,
		SpikePeriod:      14,
		DefaultDayVolume: 50,
	}
}

func (o Options) validate() error {
	if err := o.Denominations.Validate(); err != nil {
		return err
	}
	if o.OpenHour < 0 || o.CloseHour > 23 || o.OpenHour > o.CloseHour {
		return fmt.Errorf("invalid operating window %d..%d", o.OpenHour, o.CloseHour)
	}
	return nil
}

// ModelRefs locates the three trained models.
type ModelRefs struct {
	DailyAmount       string
	DenominationSplit string
	SpikeHour         string
}

// Pipeline composes the three predictors. It holds no mutable state; one
// instance serves concurrent callers.
type Pipeline struct {
	opts   Options
	amount *DailyAmountPredictor
	split  *DenominationSplitPredictor
	spike  *SpikeHourPredictor
	logger *xlogger.Logger
}

// NewPipeline loads all three models. Any failure aborts construction with
// an error wrapping ErrModelLoad.
func NewPipeline(ctx context.Context, loader domsvc.ModelLoader, refs ModelRefs, opts Options, logger *xlogger.Logger) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	load := func(name, ref string) (domsvc.Model, error) {
		m, err := loader.Load(ctx, name, ref)
		if err != nil {
			if errors.Is(err, domsvc.ErrModelLoad) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s: %v", domsvc.ErrModelLoad, name, err)
		}
		return m, nil
	}
	amount, err := load(ModelDailyAmount, refs.DailyAmount)
	if err != nil {
		return nil, err
	}
	split, err := load(ModelDenominationSplit, refs.DenominationSplit)
	if err != nil {
		return nil, err
	}
	spike, err := load(ModelSpikeHour, refs.SpikeHour)
	if err != nil {
		return nil, err
	}
	return NewPipelineWithModels(amount, split, spike, opts, logger)
}

// NewPipelineWithModels builds a pipeline from already loaded handles.
func NewPipelineWithModels(amount, split, spike domsvc.Model, opts Options, logger *xlogger.Logger) (*Pipeline, error) {
	if amount == nil || split == nil || spike == nil {
		return nil, fmt.Errorf("%w: all three models are required", domsvc.ErrModelLoad)
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	schema := features.DenominationSplitSchema(opts.Denominations, opts.StoreTypes)
	return &Pipeline{
		opts:   opts,
		amount: NewDailyAmountPredictor(amount),
		split:  NewDenominationSplitPredictor(split, schema, opts.Basket, opts.StoreType),
		spike:  NewSpikeHourPredictor(spike, opts.OpenHour, opts.CloseHour, opts.SpikePeriod),
		logger: logger,
	}, nil
}

// Denominations returns the canonical list the pipeline predicts over.
func (p *Pipeline) Denominations() models.Denominations { return p.opts.Denominations }

// SplitSchema returns the schema the split model is queried with.
func (p *Pipeline) SplitSchema() *features.SplitSchema { return p.split.schema }

// RunPrediction forecasts the cash plan for date given the cash change
// handed out the day before.
func (p *Pipeline) RunPrediction(ctx context.Context, date time.Time, yesterdayCash float64) (*models.PredictionResult, error) {
	if math.IsNaN(yesterdayCash) || math.IsInf(yesterdayCash, 0) || yesterdayCash < 0 {
		return nil, fmt.Errorf("%w: yesterday cash must be a non-negative amount, got %v", domsvc.ErrMalformedInput, yesterdayCash)
	}
	df := features.DateFeaturesFor(date)

	total, err := p.amount.Predict(ctx, df, yesterdayCash)
	if err != nil {
		return nil, err
	}
	inv, err := p.split.Predict(ctx, total, df)
	if err != nil {
		return nil, err
	}
	hour, err := p.spike.Predict(ctx, df, p.opts.DefaultDayVolume)
	if err != nil {
		return nil, err
	}

	invValue := decimal.NewFromInt(int64(inv.Total()))
	buffer := invValue.Sub(decimal.NewFromFloat(total)).Round(2)
	invF, _ := invValue.Round(2).Float64()
	bufF, _ := buffer.Float64()

	res := &models.PredictionResult{
		Date:           date.Format(models.DateLayout),
		TotalChange:    total,
		SpikeHour:      hour,
		SpikeHourLabel: models.SpikeHourLabel(hour),
		Inventory:      inv,
		InventoryValue: invF,
		SafetyBuffer:   bufF,
	}
	p.logger.Debug("prediction computed",
		xlogger.String("date", res.Date),
		xlogger.Float64("yesterday_cash", yesterdayCash),
		xlogger.Float64("total_change", total),
		xlogger.Int("spike_hour", hour),
		xlogger.Float64("inventory_value", invF),
	)
	return res, nil
}
