package repository

import (
	"context"
	"time"

	"KiranaCash/internal/domain/models"
)

// HistoryStore provides read-only aggregates of the transaction log for
// training exports.
type HistoryStore interface {
	DailyCash(ctx context.Context, from, to time.Time) ([]models.DailyCash, error)
	HourlyCounts(ctx context.Context, from, to time.Time) ([]models.HourlyCount, error)
}

// TransactionLog is a transaction store that also serves history aggregates.
type TransactionLog interface {
	TransactionStore
	HistoryStore
}
