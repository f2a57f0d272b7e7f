package features

import (
	"math"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
)

// TransactionFeatures builds split feature rows for every eligible record
// (cash, positive change). index holds the source position of each row.
func TransactionFeatures(records []*models.Transaction, schema *SplitSchema) (x domsvc.FeatureMatrix, index []int) {
	rows := make([][]float64, 0, len(records))
	index = make([]int, 0, len(records))
	for i, t := range records {
		if t == nil || !t.EligibleForSplit() {
			continue
		}
		tendered := 0.0
		if t.TenderedAmount != nil && !math.IsNaN(*t.TenderedAmount) && !math.IsInf(*t.TenderedAmount, 0) {
			tendered = *t.TenderedAmount
		}
		counts := CountVector(ParseBreakdown(t.TenderedBreakdown), schema.Denominations)
		rows = append(rows, schema.Row(DateFeaturesFor(t.Timestamp), t.TotalAmount, tendered, counts, t.StoreType))
		index = append(index, i)
	}
	return schema.Matrix(rows), index
}
