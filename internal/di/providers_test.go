package di

import (
	"context"
	"testing"
	"time"

	"KiranaCash/internal/domain/models"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/repository"
	"KiranaCash/internal/service/cache"
	"KiranaCash/internal/usecase"
	"KiranaCash/pkg/config"
	xlogger "KiranaCash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
forecast:
  basket:
    - {total: 30, tender: 50}
  models:
    daily_amount: testdata/missing.json
    denomination_split: testdata/missing.json
    spike_hour: testdata/missing.json
`))
	require.NoError(t, err)
	return cfg
}

func TestForecastOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	opts := forecastOptions(cfg)
	assert.Equal(t, models.Denominations(cfg.Forecast.Denominations), opts.Denominations)
	require.Len(t, opts.Basket, 1)
	assert.Equal(t, 30.0, opts.Basket[0].Total)
	assert.Equal(t, cfg.Forecast.OpenHour, opts.OpenHour)
}

func TestProvidePredictorFallsBackWhenModelsMissing(t *testing.T) {
	cfg := testConfig(t)
	p, err := ProvidePredictor(cfg, ProvideModelLoader(cfg, xlogger.Nop()), xlogger.Nop())
	require.NoError(t, err)

	_, err = p.RunPrediction(context.Background(), time.Now(), 0)
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)
	assert.Equal(t, models.Denominations(cfg.Forecast.Denominations), p.Denominations())
	_, ok := p.(usecase.UnavailablePredictor)
	assert.True(t, ok)
}

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := testConfig(t)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	prod, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, prod)
	assert.Nil(t, ProvideTransactionPublisher(prod, cfg))
	assert.Nil(t, ProvideForecastPublisher(prod, cfg))

	cons, err := ProvideKafkaConsumer(cfg, xlogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, cons)

	assert.Nil(t, ProvideDashboardHub(cfg, xlogger.Nop()))

	log, err := ProvideTransactionLog(cfg, nil, xlogger.Nop())
	require.NoError(t, err)
	_, ok := log.(*repository.MemoryTransactionStore)
	assert.True(t, ok)

	_, ok = ProvideCacheStore(cfg, xlogger.Nop()).(*cache.TTLCache)
	assert.True(t, ok)
}

func TestIngestPipelinesWithoutKafkaWriteToLog(t *testing.T) {
	cfg := testConfig(t)
	log, err := ProvideTransactionLog(cfg, nil, xlogger.Nop())
	require.NoError(t, err)
	pipes := ProvideIngestPipelines(nil, log, ProvideMetrics())

	ts := time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)
	err = pipes.HTTP.Process(context.Background(), &models.Transaction{
		ID: "t1", Timestamp: ts, TotalAmount: 40, PaymentMethod: models.PaymentCash, ChangeGiven: 10,
	})
	require.NoError(t, err)

	cash, err := log.DailyCashChange(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cash)
}
