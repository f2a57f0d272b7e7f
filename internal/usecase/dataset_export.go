package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"KiranaCash/internal/domain/models"
	drepo "KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/services/features"
)

// DatasetExporter writes training tables built from the transaction log.
// Every table is produced through the same schemas inference uses.
type DatasetExporter struct {
	store     drepo.TransactionStore
	history   drepo.HistoryStore
	schema    *features.SplitSchema
	openHour  int
	closeHour int
}

func NewDatasetExporter(store drepo.TransactionStore, history drepo.HistoryStore, schema *features.SplitSchema, openHour, closeHour int) *DatasetExporter {
	return &DatasetExporter{store: store, history: history, schema: schema, openHour: openHour, closeHour: closeHour}
}

// Export writes the kind table for days in [from, to) as CSV and returns
// the number of data rows.
func (e *DatasetExporter) Export(ctx context.Context, kind drepo.DatasetKind, from, to time.Time, w io.Writer) (int, error) {
	if !to.After(from) {
		return 0, fmt.Errorf("%w: empty range %s..%s", domsvc.ErrMalformedInput,
			from.Format(models.DateLayout), to.Format(models.DateLayout))
	}
	cw := csv.NewWriter(w)
	var (
		n   int
		err error
	)
	switch kind {
	case drepo.DatasetSplit:
		n, err = e.writeSplit(ctx, cw, from, to)
	case drepo.DatasetDaily:
		n, err = e.writeDaily(ctx, cw, from, to)
	case drepo.DatasetHourly:
		n, err = e.writeHourly(ctx, cw, from, to)
	default:
		return 0, fmt.Errorf("%w: unknown dataset %q", domsvc.ErrMalformedInput, kind)
	}
	if err != nil {
		return 0, err
	}
	cw.Flush()
	return n, cw.Error()
}

func (e *DatasetExporter) writeSplit(ctx context.Context, cw *csv.Writer, from, to time.Time) (int, error) {
	records, err := e.store.Query(ctx, from, to, 0)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}
	set, err := features.BuildTrainingSet(records, e.schema)
	if err != nil {
		return 0, err
	}
	header := append([]string{"transaction_id"}, set.X.Columns...)
	for _, d := range e.schema.Denominations {
		header = append(header, "change_"+strconv.Itoa(d))
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for i, row := range set.X.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, records[set.Index[i]].ID)
		rec = appendFloats(rec, row)
		for _, c := range set.Y[i] {
			rec = append(rec, strconv.Itoa(c))
		}
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	return len(set.X.Rows), nil
}

func (e *DatasetExporter) writeDaily(ctx context.Context, cw *csv.Writer, from, to time.Time) (int, error) {
	seed := from.AddDate(0, 0, -features.Lookback)
	points, err := e.history.DailyCash(ctx, seed, to)
	if err != nil {
		return 0, fmt.Errorf("load daily cash: %w", err)
	}
	rows := features.DailyAmountRows(features.DenseDaily(points, seed, to))
	return writeLabeled(cw, rows, "date", models.DateLayout, "cash_change")
}

func (e *DatasetExporter) writeHourly(ctx context.Context, cw *csv.Writer, from, to time.Time) (int, error) {
	seed := from.AddDate(0, 0, -1)
	counts, err := e.history.HourlyCounts(ctx, seed, to)
	if err != nil {
		return 0, fmt.Errorf("load hourly counts: %w", err)
	}
	rows := features.HourlyRows(counts, seed, to, e.openHour, e.closeHour)
	return writeLabeled(cw, rows, "hour_start", "2006-01-02 15:04", "transactions")
}

func writeLabeled(cw *csv.Writer, rows features.LabeledRows, keyName, keyLayout, target string) (int, error) {
	header := append([]string{keyName}, rows.X.Columns...)
	header = append(header, target)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for i, row := range rows.X.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, rows.Keys[i].Format(keyLayout))
		rec = appendFloats(rec, row)
		rec = append(rec, strconv.FormatFloat(rows.Target[i], 'f', -1, 64))
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	return len(rows.X.Rows), nil
}

func appendFloats(dst []string, xs []float64) []string {
	for _, x := range xs {
		dst = append(dst, strconv.FormatFloat(x, 'f', -1, 64))
	}
	return dst
}
