package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts      *prometheus.CounterVec
	predictedTotal *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	ingested       *prometheus.CounterVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirana_forecasts_total",
				Help: "Total number of forecasts computed",
			},
			[]string{"store_type"},
		),
		predictedTotal: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kirana_predicted_total_change",
				Help: "Last predicted total change for the next day",
			},
			[]string{"store_type"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirana_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kirana_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ingested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirana_transactions_ingested_total",
				Help: "Transactions written to the transaction log",
			},
			[]string{"source"},
		),
	}
}

// RecordForecast records a computed forecast and its predicted total.
func (r *Recorder) RecordForecast(storeType string, total float64) {
	r.forecasts.WithLabelValues(storeType).Inc()
	r.predictedTotal.WithLabelValues(storeType).Set(total)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordIngested counts transactions persisted from a source.
func (r *Recorder) RecordIngested(source string, n int) {
	r.ingested.WithLabelValues(source).Add(float64(n))
}
