package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	xutil "KiranaCash/pkg/util"
)

// MemoryTransactionStore is an in-process transaction log used when no
// ClickHouse is configured. It keeps the last write per transaction id.
type MemoryTransactionStore struct {
	mu  sync.RWMutex
	txs map[string]*models.Transaction
}

var (
	_ repository.TransactionStore = (*MemoryTransactionStore)(nil)
	_ repository.HistoryStore     = (*MemoryTransactionStore)(nil)
)

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{txs: make(map[string]*models.Transaction)}
}

func (s *MemoryTransactionStore) Init(context.Context) error { return nil }

func (s *MemoryTransactionStore) Store(ctx context.Context, t *models.Transaction) error {
	return s.StoreBatch(ctx, []*models.Transaction{t})
}

func (s *MemoryTransactionStore) StoreBatch(_ context.Context, txs []*models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		if t == nil || t.ID == "" || t.Timestamp.IsZero() {
			continue
		}
		cp := *t
		cp.TenderedBreakdown = canonicalBreakdown(t.TenderedBreakdown)
		cp.ChangeBreakdown = canonicalBreakdown(t.ChangeBreakdown)
		s.txs[t.ID] = &cp
	}
	return nil
}

func (s *MemoryTransactionStore) Query(_ context.Context, from, to time.Time, limit int) ([]*models.Transaction, error) {
	out := s.between(from, to)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTransactionStore) DailyCashChange(_ context.Context, day time.Time) (float64, error) {
	start, end := xutil.DayBounds(day)
	total := 0.0
	for _, t := range s.between(start, end) {
		if t.IsCash() {
			total += t.ChangeGiven
		}
	}
	return total, nil
}

func (s *MemoryTransactionStore) DailyCash(_ context.Context, from, to time.Time) ([]models.DailyCash, error) {
	var out []models.DailyCash
	for _, t := range s.between(from, to) {
		if !t.IsCash() {
			continue
		}
		day, _ := xutil.DayBounds(t.Timestamp.In(from.Location()))
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Amount += t.ChangeGiven
			continue
		}
		out = append(out, models.DailyCash{Day: day, Amount: t.ChangeGiven})
	}
	return out, nil
}

func (s *MemoryTransactionStore) HourlyCounts(_ context.Context, from, to time.Time) ([]models.HourlyCount, error) {
	var out []models.HourlyCount
	for _, t := range s.between(from, to) {
		h := t.Timestamp.In(from.Location()).Truncate(time.Hour)
		if n := len(out); n > 0 && out[n-1].Hour.Equal(h) {
			out[n-1].Count++
			continue
		}
		out = append(out, models.HourlyCount{Hour: h, Count: 1})
	}
	return out, nil
}

func (s *MemoryTransactionStore) Health(context.Context) error { return nil }

func (s *MemoryTransactionStore) Close() error { return nil }

// between returns copies of rows with from <= ts < to, ordered by time.
func (s *MemoryTransactionStore) between(from, to time.Time) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range s.txs {
		if !t.Timestamp.Before(from) && t.Timestamp.Before(to) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
