package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kirana",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of forecast endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ForecastErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kirana",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by forecast endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kirana",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Forecast cache lookups by result",
		},
		[]string{"result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ForecastLatency, ForecastErrors, CacheLookups)
	})
}
