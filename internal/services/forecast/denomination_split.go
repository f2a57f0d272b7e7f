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

// Scenario is one synthetic cash purchase of the representative basket.
type Scenario struct {
	Total  float64 `json:"total" yaml:"total"`
	Tender float64 `json:"tender" yaml:"tender"`
}

// DefaultBasket spans small change for a ₹12 purchase up to a ₹1800 purchase
// paid with a ₹2000 note.
var DefaultBasket = []Scenario{
	{Total: 12, Tender: 20},
	{Total: 45, Tender: 100},
	{Total: 88, Tender: 100},
	{Total: 110, Tender: 200},
	{Total: 420, Tender: 500},
	{Total: 1800, Tender: 2000},
}

// DenominationSplitPredictor turns a predicted daily total into a
// denomination inventory. The per-transaction model is queried on the basket
// to get a shape, which is then scaled to the total and rounded up.
type DenominationSplitPredictor struct {
	model     domsvc.Model
	schema    *features.SplitSchema
	basket    []Scenario
	storeType string
}

func NewDenominationSplitPredictor(model domsvc.Model, schema *features.SplitSchema, basket []Scenario, storeType string) *DenominationSplitPredictor {
	if len(basket) == 0 {
		basket = DefaultBasket
	}
	return &DenominationSplitPredictor{model: model, schema: schema, basket: basket, storeType: storeType}
}

// Rows builds one split row per basket scenario. The tendered counts are the
// largest-first split of the tender amount.
func (p *DenominationSplitPredictor) Rows(df models.DateFeatures) [][]float64 {
	rows := make([][]float64, 0, len(p.basket))
	for _, s := range p.basket {
		tender, _, err := p.schema.Denominations.Greedy(int(math.Round(s.Tender)))
		if err != nil {
			tender = nil
		}
		rows = append(rows, p.schema.Row(df, s.Total, s.Tender, tender.Counts(), p.storeType))
	}
	return rows
}

// BasketCounts runs the basket through the model and sums the clipped,
// half-to-even rounded counts per denomination.
func (p *DenominationSplitPredictor) BasketCounts(ctx context.Context, df models.DateFeatures) ([]int64, error) {
	denoms := p.schema.Denominations
	out, err := p.model.Predict(ctx, p.schema.Matrix(p.Rows(df)))
	if err != nil {
		return nil, fmt.Errorf("denomination split: %w", err)
	}
	if len(out) != len(p.basket) {
		return nil, fmt.Errorf("%w: denomination split returned %d rows for %d scenarios", domsvc.ErrInference, len(out), len(p.basket))
	}
	sums := make([]int64, len(denoms))
	for i, row := range out {
		if len(row) != len(denoms) {
			return nil, fmt.Errorf("%w: denomination split row %d has %d outputs for %d denominations", domsvc.ErrInference, i, len(row), len(denoms))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: denomination split returned %v", domsvc.ErrInference, v)
			}
			c := math.RoundToEven(v)
			if c > 0 {
				sums[j] += int64(c)
			}
		}
	}
	return sums, nil
}

// Predict returns one entry per denomination, zero counts included.
func (p *DenominationSplitPredictor) Predict(ctx context.Context, total float64, df models.DateFeatures) (models.Inventory, error) {
	sums, err := p.BasketCounts(ctx, df)
	if err != nil {
		return nil, err
	}
	return ScaleBasket(sums, p.schema.Denominations, total), nil
}

// ScaleBasket scales basket counts so their value covers total, rounding
// every count up. A basket worth nothing yields an all-zero inventory.
func ScaleBasket(sums []int64, denoms models.Denominations, total float64) models.Inventory {
	inv := make(models.Inventory, len(denoms))
	var basketValue int64
	for i, d := range denoms {
		basketValue += sums[i] * int64(d)
		inv[i] = models.DenominationCount{Value: d}
	}
	if basketValue <= 0 || total <= 0 {
		return inv
	}
	need := decimal.NewFromFloat(total)
	value := decimal.NewFromInt(basketValue)
	for i := range denoms {
		if sums[i] == 0 {
			continue
		}
		inv[i].Count = int(decimal.NewFromInt(sums[i]).Mul(need).Div(value).Ceil().IntPart())
	}
	return inv
}
