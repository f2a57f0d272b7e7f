package forecast

import (
	"context"
	"fmt"
	"math"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/services/features"

	"github.com/shopspring/decimal"
)

// DailyAmountPredictor predicts the day's total cash change.
type DailyAmountPredictor struct {
	model  domsvc.Model
	schema *features.Schema
}

func NewDailyAmountPredictor(model domsvc.Model) *DailyAmountPredictor {
	return &DailyAmountPredictor{model: model, schema: features.DailyAmountSchema()}
}

// Row builds the serving row. With a single observed day every lag and
// rolling mean equals prevCash and the rolling deviations are zero.
func (p *DailyAmountPredictor) Row(df models.DateFeatures, prevCash float64) []float64 {
	s := p.schema
	row := s.NewRow()
	s.Set(row, "day_of_week", float64(df.DayOfWeek))
	s.Set(row, "month", float64(df.Month))
	s.Set(row, "day_of_month", float64(df.DayOfMonth))
	s.Set(row, "is_weekend", float64(df.IsWeekend))
	for _, c := range []string{"lag1", "lag2", "lag3", "lag7", "roll3", "roll7", "roll14"} {
		s.Set(row, c, prevCash)
	}
	s.Set(row, "roll3_std", 0)
	s.Set(row, "roll7_std", 0)
	return row
}

// Predict returns the non-negative total rounded to 2 decimals.
func (p *DailyAmountPredictor) Predict(ctx context.Context, df models.DateFeatures, prevCash float64) (float64, error) {
	out, err := p.model.Predict(ctx, p.schema.Matrix([][]float64{p.Row(df, prevCash)}))
	if err != nil {
		return 0, fmt.Errorf("daily amount: %w", err)
	}
	if len(out) != 1 || len(out[0]) == 0 {
		return 0, fmt.Errorf("%w: daily amount returned %d rows", domsvc.ErrInference, len(out))
	}
	v := out[0][0]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: daily amount returned %v", domsvc.ErrInference, v)
	}
	if v < 0 {
		return 0, nil
	}
	total, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return total, nil
}
