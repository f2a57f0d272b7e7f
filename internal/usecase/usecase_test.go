package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"KiranaCash/internal/domain/models"
	drepo "KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/repository"
	"KiranaCash/internal/service/cache"
	"KiranaCash/internal/services/features"
	pkgkafka "KiranaCash/pkg/kafka"
	xlogger "KiranaCash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	mu       sync.Mutex
	errors   []string
	ingested int
	totals   []float64
}

func (m *fakeMetrics) RecordForecast(_ string, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals = append(m.totals, total)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordIngested(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested += n
}

type fakePredictor struct {
	calls    int
	lastDate time.Time
	lastCash float64
	err      error
}

func (p *fakePredictor) RunPrediction(_ context.Context, date time.Time, cash float64) (*models.PredictionResult, error) {
	p.calls++
	p.lastDate = date
	p.lastCash = cash
	if p.err != nil {
		return nil, p.err
	}
	return &models.PredictionResult{
		Date:        date.Format(models.DateLayout),
		TotalChange: 321.5,
		Inventory: models.Inventory{
			{Value: 200, Count: 1}, {Value: 100, Count: 1}, {Value: 20, Count: 1}, {Value: 2, Count: 1},
		},
		InventoryValue: 322,
		SafetyBuffer:   0.5,
	}, nil
}

func (p *fakePredictor) Denominations() models.Denominations { return models.DefaultDenominations }

type failingStore struct{ *repository.MemoryTransactionStore }

func (failingStore) DailyCashChange(context.Context, time.Time) (float64, error) {
	return 0, errors.New("connection refused")
}

type recordingPublisher struct{ events []*models.ForecastEvent }

func (p *recordingPublisher) PublishForecast(_ context.Context, ev *models.ForecastEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingHub struct{ got []interface{} }

func (h *recordingHub) Broadcast(v interface{}) { h.got = append(h.got, v) }

var friday = time.Date(2024, 6, 14, 16, 30, 0, 0, time.Local)

func seeded(t *testing.T) *repository.MemoryTransactionStore {
	s := repository.NewMemoryTransactionStore()
	day := time.Date(2024, 6, 14, 0, 0, 0, 0, time.Local)
	require.NoError(t, s.StoreBatch(context.Background(), []*models.Transaction{
		{ID: "1", Timestamp: day.Add(10 * time.Hour), PaymentMethod: "cash", TotalAmount: 80, ChangeGiven: 20},
		{ID: "2", Timestamp: day.Add(11 * time.Hour), PaymentMethod: "cash", TotalAmount: 55, ChangeGiven: 45},
		{ID: "3", Timestamp: day.Add(12 * time.Hour), PaymentMethod: "upi", TotalAmount: 300},
	}))
	return s
}

func TestForecastDefaultsToTomorrowAndLooksUpCash(t *testing.T) {
	p := &fakePredictor{}
	pub := &recordingPublisher{}
	hub := &recordingHub{}
	m := &fakeMetrics{}
	uc := NewForecastUseCase(p, seeded(t), m, xlogger.Nop(), "kirana",
		WithClock(func() time.Time { return friday }),
		WithForecastPublisher(pub),
		WithBroadcaster(hub))

	res, err := uc.Forecast(context.Background(), ForecastParams{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", res.Date)
	assert.Equal(t, 65.0, p.lastCash)
	require.Len(t, pub.events, 1)
	assert.Equal(t, 65.0, pub.events[0].Yesterday)
	assert.NotEmpty(t, pub.events[0].ID)
	assert.Len(t, hub.got, 1)
	assert.Equal(t, []float64{321.5}, m.totals)
}

func TestForecastLookupFailureFallsBackToZero(t *testing.T) {
	p := &fakePredictor{}
	m := &fakeMetrics{}
	uc := NewForecastUseCase(p, failingStore{repository.NewMemoryTransactionStore()}, m, xlogger.Nop(), "kirana",
		WithClock(func() time.Time { return friday }))

	_, err := uc.Forecast(context.Background(), ForecastParams{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.lastCash)
	assert.Contains(t, m.errors, "yesterday_cash")
}

func TestForecastRejectsNegativeCash(t *testing.T) {
	p := &fakePredictor{}
	uc := NewForecastUseCase(p, nil, &fakeMetrics{}, xlogger.Nop(), "kirana")
	neg := -5.0
	_, err := uc.Forecast(context.Background(), ForecastParams{YesterdayCash: &neg})
	assert.ErrorIs(t, err, domsvc.ErrMalformedInput)
	assert.Equal(t, 0, p.calls)
}

func TestForecastUsesCache(t *testing.T) {
	p := &fakePredictor{}
	fc := cache.NewForecastCache(cache.NewTTLCache(), time.Hour, "kirana")
	uc := NewForecastUseCase(p, nil, &fakeMetrics{}, xlogger.Nop(), "kirana", WithForecastCache(fc))
	cash := 100.0
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

	first, err := uc.Forecast(context.Background(), ForecastParams{Date: date, YesterdayCash: &cash})
	require.NoError(t, err)
	second, err := uc.Forecast(context.Background(), ForecastParams{Date: date, YesterdayCash: &cash})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, first.TotalChange, second.TotalChange)
	assert.Equal(t, first.Inventory, second.Inventory)

	other := 101.0
	_, err = uc.Forecast(context.Background(), ForecastParams{Date: date, YesterdayCash: &other})
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestForecastPropagatesPipelineErrors(t *testing.T) {
	p := &fakePredictor{err: fmt.Errorf("%w: boom", domsvc.ErrInference)}
	m := &fakeMetrics{}
	uc := NewForecastUseCase(p, nil, m, xlogger.Nop(), "kirana")
	_, err := uc.Forecast(context.Background(), ForecastParams{})
	assert.ErrorIs(t, err, domsvc.ErrInference)
	assert.Contains(t, m.errors, "forecast")
}

func TestChecklistCarriesGreedyReference(t *testing.T) {
	uc := NewForecastUseCase(&fakePredictor{}, nil, &fakeMetrics{}, xlogger.Nop(), "kirana")
	cash := 0.0
	cl, err := uc.Checklist(context.Background(), ForecastParams{YesterdayCash: &cash})
	require.NoError(t, err)
	assert.Equal(t, []models.DenominationCount{{Value: 200, Count: 1}, {Value: 100, Count: 1}, {Value: 20, Count: 1}}, cl.Notes)
	assert.Equal(t, []models.DenominationCount{{Value: 2, Count: 1}}, cl.Coins)
	assert.Equal(t, 322, cl.GreedyReference.Total())
	assert.Equal(t, 0, cl.GreedyRemainder)

	_, _, err = uc.Greedy(-1)
	assert.ErrorIs(t, err, domsvc.ErrMalformedInput)
}

type memPublisher struct{ got []*models.Transaction }

func (p *memPublisher) Publish(_ context.Context, t *models.Transaction) error {
	p.got = append(p.got, t)
	return nil
}

func (p *memPublisher) PublishBatch(_ context.Context, txs []*models.Transaction) error {
	p.got = append(p.got, txs...)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func TestTransactionProcessorRoutes(t *testing.T) {
	m := &fakeMetrics{}
	pub := &memPublisher{}
	store := repository.NewMemoryTransactionStore()
	tx := &models.Transaction{ID: "a", Timestamp: friday, PaymentMethod: "cash"}

	require.NoError(t, NewTransactionProcessor(pub, store, m, BackendKafka).Process(context.Background(), tx))
	assert.Len(t, pub.got, 1)

	require.NoError(t, NewTransactionProcessor(pub, store, m, BackendStore).Process(context.Background(), tx))
	rows, err := store.Query(context.Background(), friday.Add(-time.Hour), friday.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, m.ingested)

	assert.Error(t, NewTransactionProcessor(nil, nil, m, BackendKafka).Process(context.Background(), tx))
	assert.Error(t, NewTransactionProcessor(pub, store, m, BackendKafka).Process(context.Background(), nil))
}

type procFunc func(context.Context, *models.Transaction) error

func (f procFunc) Process(ctx context.Context, t *models.Transaction) error { return f(ctx, t) }

func TestKafkaTransactionsHandler(t *testing.T) {
	var got *models.Transaction
	h := NewKafkaTransactionsHandler("kirana.transactions", procFunc(func(_ context.Context, t *models.Transaction) error {
		got = t
		return nil
	}), &fakeMetrics{})
	assert.Equal(t, "kirana.transactions", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"transaction_id":"x","timestamp":"2024-06-14T10:00:00Z","total_amount":80,"payment_method":"cash","tendered_amount":100,"change_given":20}`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x", got.ID)
	require.NotNil(t, got.TenderedAmount)
	assert.Equal(t, 100.0, *got.TenderedAmount)

	assert.Error(t, h.Handle(context.Background(), []byte("not json")))
}

func TestTransactionHook(t *testing.T) {
	m := &fakeMetrics{}
	hook := TransactionHook(xlogger.Nop(), m)
	_, data, err := hook.BeforeHandle(context.Background(), "t", []byte("  {\"a\":1} "))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, _, err = hook.BeforeHandle(context.Background(), "t", []byte("[1,2]"))
	var rej *pkgkafka.RejectError
	assert.ErrorAs(t, err, &rej)

	hook.AfterHandle(context.Background(), "t", nil, nil)
	assert.Equal(t, 1, m.ingested)
}

func exportFixture(t *testing.T) (*DatasetExporter, time.Time) {
	store := repository.NewMemoryTransactionStore()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	var txs []*models.Transaction
	tendered := 100.0
	for d := 0; d < 20; d++ {
		day := start.AddDate(0, 0, d)
		txs = append(txs,
			&models.Transaction{ID: fmt.Sprintf("c%d", d), Timestamp: day.Add(9 * time.Hour), PaymentMethod: "cash",
				TotalAmount: 80, TenderedAmount: &tendered, ChangeGiven: 20,
				TenderedBreakdown: `{"100":1}`, ChangeBreakdown: `{"20":1}`, StoreType: "kirana"},
			&models.Transaction{ID: fmt.Sprintf("u%d", d), Timestamp: day.Add(18 * time.Hour), PaymentMethod: "upi", TotalAmount: 120},
		)
	}
	require.NoError(t, store.StoreBatch(context.Background(), txs))
	schema := features.DenominationSplitSchema(models.DefaultDenominations, []string{"kirana"})
	return NewDatasetExporter(store, store, schema, 8, 21), start
}

func readCSV(t *testing.T, b *bytes.Buffer) [][]string {
	recs, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestDatasetExportSplit(t *testing.T) {
	e, start := exportFixture(t)
	var buf bytes.Buffer
	n, err := e.Export(context.Background(), drepo.DatasetSplit, start, start.AddDate(0, 0, 2), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recs := readCSV(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "transaction_id", recs[0][0])
	assert.Equal(t, "total_amount", recs[0][1])
	assert.Equal(t, "change_1", recs[0][len(recs[0])-1])
	assert.Equal(t, "c0", recs[1][0])
}

func TestDatasetExportSplitWithoutCashFails(t *testing.T) {
	e, start := exportFixture(t)
	_, err := e.Export(context.Background(), drepo.DatasetSplit, start.AddDate(1, 0, 0), start.AddDate(1, 0, 1), &bytes.Buffer{})
	assert.ErrorIs(t, err, domsvc.ErrMalformedInput)
}

func TestDatasetExportDailyAndHourly(t *testing.T) {
	e, start := exportFixture(t)
	from := start.AddDate(0, 0, 14)
	to := start.AddDate(0, 0, 16)

	var daily bytes.Buffer
	n, err := e.Export(context.Background(), drepo.DatasetDaily, from, to, &daily)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recs := readCSV(t, &daily)
	assert.Equal(t, []string{"date", "day_of_week"}, recs[0][:2])
	assert.Equal(t, "cash_change", recs[0][len(recs[0])-1])
	assert.Equal(t, from.Format(models.DateLayout), recs[1][0])
	assert.Equal(t, "20", recs[1][len(recs[1])-1])

	var hourly bytes.Buffer
	n, err = e.Export(context.Background(), drepo.DatasetHourly, from, to, &hourly)
	require.NoError(t, err)
	assert.Equal(t, 2*14, n)
	assert.True(t, strings.HasPrefix(hourly.String(), "hour_start,hour,dayofweek,lag_24,transactions"))

	_, err = e.Export(context.Background(), drepo.DatasetDaily, to, from, &bytes.Buffer{})
	assert.ErrorIs(t, err, domsvc.ErrMalformedInput)
}

func TestUnavailablePredictorSurfacesLoadError(t *testing.T) {
	p := UnavailablePredictor{Err: fmt.Errorf("%w: daily_amount", domsvc.ErrModelLoad), Denom: models.DefaultDenominations}
	uc := NewForecastUseCase(p, nil, &fakeMetrics{}, xlogger.Nop(), "kirana")
	_, err := uc.Forecast(context.Background(), ForecastParams{})
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)

	inv, _, err := uc.Greedy(50)
	require.NoError(t, err)
	assert.Equal(t, 50, inv.Total())
}
