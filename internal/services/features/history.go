package features

import (
	"math"
	"time"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
)

// Lookback is the number of prior days a daily-amount training row needs.
const Lookback = 14

// DenseDaily returns one point per calendar day in [from, to), filling days
// without cash transactions with zero.
func DenseDaily(points []models.DailyCash, from, to time.Time) []models.DailyCash {
	byDay := make(map[string]float64, len(points))
	for _, p := range points {
		byDay[p.Day.In(from.Location()).Format(models.DateLayout)] += p.Amount
	}
	var out []models.DailyCash
	for d := startOfDay(from); d.Before(to); d = d.AddDate(0, 0, 1) {
		out = append(out, models.DailyCash{Day: d, Amount: byDay[d.Format(models.DateLayout)]})
	}
	return out
}

// LabeledRows is a feature matrix with one regression target per row.
type LabeledRows struct {
	X      domsvc.FeatureMatrix
	Target []float64
	Keys   []time.Time
}

// DailyAmountRows builds daily-amount training rows from a dense daily
// series. Rolling statistics cover the days strictly before the row's day;
// the first Lookback days only seed the windows.
func DailyAmountRows(series []models.DailyCash) LabeledRows {
	schema := DailyAmountSchema()
	out := LabeledRows{X: schema.Matrix(nil)}
	for i := Lookback; i < len(series); i++ {
		prev := func(n int) []float64 {
			w := make([]float64, n)
			for j := 0; j < n; j++ {
				w[j] = series[i-n+j].Amount
			}
			return w
		}
		df := DateFeaturesFor(series[i].Day)
		row := schema.NewRow()
		schema.Set(row, "day_of_week", float64(df.DayOfWeek))
		schema.Set(row, "month", float64(df.Month))
		schema.Set(row, "day_of_month", float64(df.DayOfMonth))
		schema.Set(row, "is_weekend", float64(df.IsWeekend))
		schema.Set(row, "lag1", series[i-1].Amount)
		schema.Set(row, "lag2", series[i-2].Amount)
		schema.Set(row, "lag3", series[i-3].Amount)
		schema.Set(row, "lag7", series[i-7].Amount)
		schema.Set(row, "roll3", mean(prev(3)))
		schema.Set(row, "roll7", mean(prev(7)))
		schema.Set(row, "roll3_std", stddev(prev(3)))
		schema.Set(row, "roll7_std", stddev(prev(7)))
		schema.Set(row, "roll14", mean(prev(14)))
		out.X.Rows = append(out.X.Rows, row)
		out.Target = append(out.Target, series[i].Amount)
		out.Keys = append(out.Keys, series[i].Day)
	}
	return out
}

// HourlyRows builds spike-hour training rows for every day in [from, to)
// and hour in [openHour, closeHour]. lag_24 is the count of the same hour
// on the previous day, so the first day only seeds the lag.
func HourlyRows(counts []models.HourlyCount, from, to time.Time, openHour, closeHour int) LabeledRows {
	schema := SpikeHourSchema()
	const hourKey = "2006-01-02 15"
	byHour := make(map[string]int, len(counts))
	for _, c := range counts {
		byHour[c.Hour.In(from.Location()).Format(hourKey)] += c.Count
	}
	out := LabeledRows{X: schema.Matrix(nil)}
	first := startOfDay(from)
	for d := first.AddDate(0, 0, 1); d.Before(to); d = d.AddDate(0, 0, 1) {
		df := DateFeaturesFor(d)
		for h := openHour; h <= closeHour; h++ {
			at := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, d.Location())
			lag := at.AddDate(0, 0, -1)
			row := schema.NewRow()
			schema.Set(row, "hour", float64(h))
			schema.Set(row, "dayofweek", float64(df.DayOfWeek))
			schema.Set(row, "lag_24", float64(byHour[lag.Format(hourKey)]))
			out.X.Rows = append(out.X.Rows, row)
			out.Target = append(out.Target, float64(byHour[at.Format(hourKey)]))
			out.Keys = append(out.Keys, at)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// stddev is the sample standard deviation (n-1).
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	s := 0.0
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return math.Sqrt(s / float64(len(xs)-1))
}
