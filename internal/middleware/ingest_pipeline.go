package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"KiranaCash/internal/domain/models"
	domrepo "KiranaCash/internal/domain/repository"
	"KiranaCash/internal/services/features"
)

// ErrInvalidTransaction marks a transaction rejected by validation.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t *models.Transaction) error
}

// IngestPipeline sits between transaction sources and the log. It
// validates, normalizes, drops recent duplicates, and buffers when the
// downstream is unavailable.
type IngestPipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	bufSize   int
	bufCh     chan *models.Transaction
	stopCh    chan struct{}
	started   bool
	mu        sync.Mutex
	dedupeTTL time.Duration
	seen      map[string]time.Time
	now       func() time.Time
}

type PipelineOption func(*IngestPipeline)

// WithBufferSize sets the retry buffer used while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithDedupeWindow drops a transaction id seen again within d. Zero disables.
func WithDedupeWindow(d time.Duration) PipelineOption {
	return func(p *IngestPipeline) { p.dedupeTTL = d }
}

func withClock(now func() time.Time) PipelineOption {
	return func(p *IngestPipeline) { p.now = now }
}

func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:      proc,
		metrics:   metrics,
		bufSize:   1000,
		dedupeTTL: 10 * time.Minute,
		seen:      make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Transaction, p.bufSize)
	return p
}

// Start launches background flushing of buffered transactions. A stopped
// pipeline can be started again.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case t := <-p.bufCh:
				if err := p.proc.Process(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- t:
					default:
						p.forget(t.ID)
						p.metrics.RecordError("pipeline_buffer_drop")
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop stops the background flushing. Buffered rows stay queued for the
// next Start.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered returns the number of transactions waiting for retry.
func (p *IngestPipeline) Buffered() int { return len(p.bufCh) }

// Process validates and forwards t. A downstream failure buffers t and
// still returns the error. Only stored or buffered ids count as seen, so a
// retry of a dropped row is forwarded again.
func (p *IngestPipeline) Process(ctx context.Context, t *models.Transaction) error {
	start := p.now()
	if err := Normalize(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.duplicate(t.ID, start) {
		p.metrics.RecordError("pipeline_duplicate")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
			p.markSeen(t.ID, start)
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.markSeen(t.ID, start)
	p.metrics.RecordLatency("pipeline_process", p.now().Sub(start).Seconds())
	return nil
}

func (p *IngestPipeline) duplicate(id string, now time.Time) bool {
	if p.dedupeTTL <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.seen[id]
	return ok && now.Sub(last) < p.dedupeTTL
}

func (p *IngestPipeline) markSeen(id string, now time.Time) {
	if p.dedupeTTL <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[id] = now
	if len(p.seen) > 4*p.bufSize {
		for k, v := range p.seen {
			if now.Sub(v) >= p.dedupeTTL {
				delete(p.seen, k)
			}
		}
	}
}

func (p *IngestPipeline) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, id)
}

// Normalize validates t in place: lowercases the payment method, trims
// the store type and rewrites breakdowns as canonical JSON.
func Normalize(t *models.Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: nil", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: transaction_id empty", ErrInvalidTransaction)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp missing", ErrInvalidTransaction)
	}
	if !finiteNonNegative(t.TotalAmount) || !finiteNonNegative(t.ChangeGiven) {
		return fmt.Errorf("%w: amounts must be finite and non-negative", ErrInvalidTransaction)
	}
	t.PaymentMethod = strings.ToLower(strings.TrimSpace(t.PaymentMethod))
	switch t.PaymentMethod {
	case models.PaymentCash, models.PaymentUPI, models.PaymentCard:
	default:
		return fmt.Errorf("%w: payment_method %q", ErrInvalidTransaction, t.PaymentMethod)
	}
	if t.TenderedAmount != nil && !finiteNonNegative(*t.TenderedAmount) {
		return fmt.Errorf("%w: tendered_amount", ErrInvalidTransaction)
	}
	t.StoreType = strings.TrimSpace(t.StoreType)
	if t.TenderedBreakdown != "" {
		t.TenderedBreakdown = features.Encode(features.ParseBreakdown(t.TenderedBreakdown))
	}
	if t.ChangeBreakdown != "" {
		t.ChangeBreakdown = features.Encode(features.ParseBreakdown(t.ChangeBreakdown))
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
