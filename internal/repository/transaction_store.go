package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	"KiranaCash/internal/services/features"
	"KiranaCash/pkg/clickhouse"
	xutil "KiranaCash/pkg/util"
)

const insertColumns = "transaction_id, ts, total_amount, payment_method, tendered_amount, change_given, tendered_breakdown, change_breakdown, store_type"

// batchChunk bounds the rows of one multi-VALUES insert.
const batchChunk = 2000

// ClickHouseTransactionStore keeps the transaction log in ClickHouse and
// serves the daily and hourly aggregates used by forecasts and exports.
type ClickHouseTransactionStore struct {
	client   *clickhouse.Client
	db       *sql.DB
	database string
	table    string
}

var (
	_ repository.TransactionStore = (*ClickHouseTransactionStore)(nil)
	_ repository.HistoryStore     = (*ClickHouseTransactionStore)(nil)
)

// NewClickHouseTransactionStore creates the store on an open client.
func NewClickHouseTransactionStore(client *clickhouse.Client, table string) *ClickHouseTransactionStore {
	return &ClickHouseTransactionStore{
		client:   client,
		db:       client.DB(),
		database: client.Database(),
		table:    table,
	}
}

func (s *ClickHouseTransactionStore) qualified() string {
	return s.database + "." + s.table
}

func (s *ClickHouseTransactionStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, clickhouse.TransactionsSchema(s.database, s.table))
}

func (s *ClickHouseTransactionStore) Store(ctx context.Context, t *models.Transaction) error {
	return s.StoreBatch(ctx, []*models.Transaction{t})
}

func (s *ClickHouseTransactionStore) StoreBatch(ctx context.Context, txs []*models.Transaction) error {
	for start := 0; start < len(txs); start += batchChunk {
		end := start + batchChunk
		if end > len(txs) {
			end = len(txs)
		}
		q, args := buildInsert(s.qualified(), txs[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}
	return nil
}

// buildInsert renders one multi-row insert, skipping rows without an id or
// timestamp. It returns an empty query when nothing is left.
func buildInsert(table string, txs []*models.Transaction) (string, []interface{}) {
	values := make([]string, 0, len(txs))
	args := make([]interface{}, 0, len(txs)*9)
	for _, t := range txs {
		if t == nil || t.ID == "" || t.Timestamp.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		var tendered interface{}
		if t.TenderedAmount != nil {
			tendered = *t.TenderedAmount
		}
		args = append(args,
			t.ID,
			t.Timestamp,
			t.TotalAmount,
			strings.ToLower(t.PaymentMethod),
			tendered,
			t.ChangeGiven,
			canonicalBreakdown(t.TenderedBreakdown),
			canonicalBreakdown(t.ChangeBreakdown),
			t.StoreType,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, insertColumns, strings.Join(values, ",")), args
}

func canonicalBreakdown(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return features.Encode(features.ParseBreakdown(raw))
}

func (s *ClickHouseTransactionStore) Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Transaction, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE ts >= ? AND ts < ? ORDER BY ts", insertColumns, s.qualified())
	args := []interface{}{from, to}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var (
			t        models.Transaction
			tendered sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.TotalAmount, &t.PaymentMethod, &tendered,
			&t.ChangeGiven, &t.TenderedBreakdown, &t.ChangeBreakdown, &t.StoreType); err != nil {
			return nil, err
		}
		if tendered.Valid {
			v := tendered.Float64
			t.TenderedAmount = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *ClickHouseTransactionStore) DailyCashChange(ctx context.Context, day time.Time) (float64, error) {
	start, end := xutil.DayBounds(day)
	q := fmt.Sprintf("SELECT sum(change_given) FROM %s FINAL WHERE payment_method = ? AND ts >= ? AND ts < ?", s.qualified())
	var total sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, q, models.PaymentCash, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("daily cash change: %w", err)
	}
	return total.Float64, nil
}

func (s *ClickHouseTransactionStore) DailyCash(ctx context.Context, from, to time.Time) ([]models.DailyCash, error) {
	q := fmt.Sprintf(`SELECT toDate(ts) AS d, sum(change_given)
FROM %s FINAL
WHERE payment_method = ? AND ts >= ? AND ts < ?
GROUP BY d ORDER BY d`, s.qualified())
	rows, err := s.db.QueryContext(ctx, q, models.PaymentCash, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily cash: %w", err)
	}
	defer rows.Close()

	var out []models.DailyCash
	for rows.Next() {
		var (
			d   time.Time
			amt float64
		)
		if err := rows.Scan(&d, &amt); err != nil {
			return nil, err
		}
		// toDate is zone-less; rebuild the calendar day in the caller's zone.
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, from.Location())
		out = append(out, models.DailyCash{Day: day, Amount: amt})
	}
	return out, rows.Err()
}

func (s *ClickHouseTransactionStore) HourlyCounts(ctx context.Context, from, to time.Time) ([]models.HourlyCount, error) {
	q := fmt.Sprintf(`SELECT toStartOfHour(ts) AS h, count()
FROM %s FINAL
WHERE ts >= ? AND ts < ?
GROUP BY h ORDER BY h`, s.qualified())
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("hourly counts: %w", err)
	}
	defer rows.Close()

	var out []models.HourlyCount
	for rows.Next() {
		var (
			h time.Time
			n uint64
		)
		if err := rows.Scan(&h, &n); err != nil {
			return nil, err
		}
		hour := time.Date(h.Year(), h.Month(), h.Day(), h.Hour(), 0, 0, 0, from.Location())
		out = append(out, models.HourlyCount{Hour: hour, Count: int(n)})
	}
	return out, rows.Err()
}

func (s *ClickHouseTransactionStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client owns the pool.
func (s *ClickHouseTransactionStore) Close() error {
	return nil
}
