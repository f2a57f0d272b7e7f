package features

import (
	"fmt"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
)

// TrainingSet is a fitted-ready split dataset. Y rows are change counts
// aligned with Schema.Denominations; Index maps rows back to the input.
type TrainingSet struct {
	Schema *SplitSchema
	X      domsvc.FeatureMatrix
	Y      [][]int
	Index  []int
}

// BuildTargets returns one change-count vector per eligible record.
func BuildTargets(records []*models.Transaction, denoms models.Denominations) [][]int {
	out := make([][]int, 0, len(records))
	for _, t := range records {
		if t == nil || !t.EligibleForSplit() {
			continue
		}
		out = append(out, CountVector(ParseBreakdown(t.ChangeBreakdown), denoms))
	}
	return out
}

// BuildTrainingSet pairs split features with change targets. It fails with
// ErrMalformedInput when no record is eligible.
func BuildTrainingSet(records []*models.Transaction, schema *SplitSchema) (*TrainingSet, error) {
	x, index := TransactionFeatures(records, schema)
	if len(x.Rows) == 0 {
		return nil, fmt.Errorf("%w: no cash transactions with positive change among %d records", domsvc.ErrMalformedInput, len(records))
	}
	y := BuildTargets(records, schema.Denominations)
	return &TrainingSet{Schema: schema, X: x, Y: y, Index: index}, nil
}
