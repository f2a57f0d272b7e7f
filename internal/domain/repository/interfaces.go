package repository

import (
	"context"
	"time"

	"KiranaCash/internal/domain/models"
)

// TransactionStore is the store's transaction log.
type TransactionStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Transaction) error
	StoreBatch(ctx context.Context, txs []*models.Transaction) error
	Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Transaction, error)
	// DailyCashChange sums change_given over cash rows of one calendar day.
	DailyCashChange(ctx context.Context, day time.Time) (float64, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// TransactionPublisher sends raw transactions onto the ingest stream.
type TransactionPublisher interface {
	Publish(ctx context.Context, t *models.Transaction) error
	PublishBatch(ctx context.Context, txs []*models.Transaction) error
	Close() error
}

// ForecastPublisher announces computed forecasts to downstream consumers.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, ev *models.ForecastEvent) error
	Close() error
}

type Metrics interface {
	RecordForecast(storeType string, total float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordIngested(source string, n int)
}
