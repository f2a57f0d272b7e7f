package forecast

import (
	"context"
	"fmt"
	"math"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/services/features"
)

// SpikeHourPredictor picks the busiest hour of the operating window.
type SpikeHourPredictor struct {
	model     domsvc.Model
	schema    *features.Schema
	openHour  int
	closeHour int
	period    float64
}

func NewSpikeHourPredictor(model domsvc.Model, openHour, closeHour int, period float64) *SpikeHourPredictor {
	if period <= 0 {
		period = 14
	}
	return &SpikeHourPredictor{
		model:     model,
		schema:    features.SpikeHourSchema(),
		openHour:  openHour,
		closeHour: closeHour,
		period:    period,
	}
}

// Rows builds one row per hour in [openHour, closeHour]. lag_24 spreads the
// previous day's volume evenly over the period.
func (p *SpikeHourPredictor) Rows(df models.DateFeatures, prevDayVolume float64) [][]float64 {
	lag := prevDayVolume / p.period
	rows := make([][]float64, 0, p.closeHour-p.openHour+1)
	for h := p.openHour; h <= p.closeHour; h++ {
		row := p.schema.NewRow()
		p.schema.Set(row, "hour", float64(h))
		p.schema.Set(row, "dayofweek", float64(df.DayOfWeek))
		p.schema.Set(row, "lag_24", lag)
		rows = append(rows, row)
	}
	return rows
}

// Predict returns the hour with the highest predicted count, clipped at zero
// and cut to a whole number. Ties go to the earliest hour.
func (p *SpikeHourPredictor) Predict(ctx context.Context, df models.DateFeatures, prevDayVolume float64) (int, error) {
	rows := p.Rows(df, prevDayVolume)
	out, err := p.model.Predict(ctx, p.schema.Matrix(rows))
	if err != nil {
		return 0, fmt.Errorf("spike hour: %w", err)
	}
	if len(out) != len(rows) {
		return 0, fmt.Errorf("%w: spike hour returned %d rows for %d hours", domsvc.ErrInference, len(out), len(rows))
	}
	best, bestCount := p.openHour, math.Inf(-1)
	for i, row := range out {
		if len(row) == 0 {
			return 0, fmt.Errorf("%w: spike hour row %d is empty", domsvc.ErrInference, i)
		}
		v := row[0]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: spike hour returned %v", domsvc.ErrInference, v)
		}
		v = math.Trunc(math.Max(0, v))
		if v > bestCount {
			best, bestCount = p.openHour+i, v
		}
	}
	return best, nil
}
