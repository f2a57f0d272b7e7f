package usecase

import (
	"context"
	"fmt"
	"time"

	"KiranaCash/internal/domain/models"
	drepo "KiranaCash/internal/domain/repository"
)

// Ingest backends.
const (
	BackendKafka = "kafka"
	BackendStore = "store"
)

// TransactionProcessor routes accepted transactions to the stream or
// straight into the log.
type TransactionProcessor struct {
	pub     drepo.TransactionPublisher
	store   drepo.TransactionStore
	metrics drepo.Metrics
	backend string
}

func NewTransactionProcessor(pub drepo.TransactionPublisher, store drepo.TransactionStore, metrics drepo.Metrics, backend string) *TransactionProcessor {
	return &TransactionProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Backend reports where transactions go.
func (p *TransactionProcessor) Backend() string { return p.backend }

// Process writes one transaction to the configured backend.
func (p *TransactionProcessor) Process(ctx context.Context, t *models.Transaction) error {
	if t == nil {
		return fmt.Errorf("transaction is nil")
	}
	return p.ProcessBatch(ctx, []*models.Transaction{t})
}

// ProcessBatch writes transactions in one call to the backend.
func (p *TransactionProcessor) ProcessBatch(ctx context.Context, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	switch {
	case p.backend == BackendKafka && p.pub != nil:
		err = p.pub.PublishBatch(ctx, txs)
	case p.backend == BackendStore && p.store != nil:
		err = p.store.StoreBatch(ctx, txs)
	default:
		err = fmt.Errorf("backend %q not configured", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process transactions: %w", err)
	}
	p.metrics.RecordIngested(p.backend, len(txs))
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// Close closes the publisher. The store is owned by its client.
func (p *TransactionProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
