package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	"KiranaCash/internal/handler/api"
	"KiranaCash/internal/handler/ws"
	mid "KiranaCash/internal/middleware"
	internalrepo "KiranaCash/internal/repository"
	"KiranaCash/internal/service/cache"
	svcmetrics "KiranaCash/internal/service/metrics"
	"KiranaCash/internal/service/ratelimit"
	"KiranaCash/internal/services/features"
	"KiranaCash/internal/services/forecast"
	"KiranaCash/internal/services/inference"
	"KiranaCash/internal/usecase"
	pkgch "KiranaCash/pkg/clickhouse"
	"KiranaCash/pkg/config"
	xhttp "KiranaCash/pkg/http"
	pkgkafka "KiranaCash/pkg/kafka"
	xlogger "KiranaCash/pkg/logger"
	"KiranaCash/pkg/metrics"
	"KiranaCash/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	return xlogger.New(&xlogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// transaction log is kept in memory.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTransactionLog picks the ClickHouse log when a client exists and
// the in-memory log otherwise.
func ProvideTransactionLog(cfg *config.Config, client *pkgch.Client, logger *xlogger.Logger) (repository.TransactionLog, error) {
	if client == nil {
		logger.Warn("clickhouse disabled, using in-memory transaction log")
		return internalrepo.NewMemoryTransactionStore(), nil
	}
	store := internalrepo.NewClickHouseTransactionStore(client, cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	logger.Info("clickhouse ready",
		xlogger.String("database", cfg.ClickHouse.Database),
		xlogger.String("table", cfg.ClickHouse.Table))
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTransactionPublisher creates the ingest stream publisher.
func ProvideTransactionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TransactionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTransactionPublisher(producer, cfg.Kafka.TransactionsTopic)
}

// ProvideForecastPublisher creates the forecast announcement publisher.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ForecastPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastsTopic)
}

// ProvideCacheStore returns Redis when enabled and reachable, else an
// in-process TTL cache.
func ProvideCacheStore(cfg *config.Config, logger *xlogger.Logger) cache.BytesCache {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache()
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, falling back to in-process cache",
			xlogger.String("addr", cfg.Redis.Addr), xlogger.Error(err))
		_ = rc.Close()
		return cache.NewTTLCache()
	}
	return rc
}

// ProvideForecastCache wraps the byte cache with forecast keys.
func ProvideForecastCache(store cache.BytesCache, cfg *config.Config) *cache.ForecastCache {
	if cfg.Forecast.CacheTTL <= 0 {
		return nil
	}
	return cache.NewForecastCache(store, cfg.Forecast.CacheTTL, cfg.Forecast.StoreType)
}

// ProvideModelLoader resolves file and HTTP model references.
func ProvideModelLoader(cfg *config.Config, logger *xlogger.Logger) domsvc.ModelLoader {
	return inference.NewLoader(cfg.Forecast.Models.Timeout, logger)
}

func forecastOptions(cfg *config.Config) forecast.Options {
	opts := forecast.DefaultOptions()
	opts.Denominations = models.Denominations(cfg.Forecast.Denominations)
	opts.StoreTypes = cfg.Forecast.StoreTypes
	opts.StoreType = cfg.Forecast.StoreType
	opts.OpenHour = cfg.Forecast.OpenHour
	opts.CloseHour = cfg.Forecast.CloseHour
	opts.SpikePeriod = cfg.Forecast.SpikePeriod
	opts.DefaultDayVolume = cfg.Forecast.DefaultDayVolume
	if len(cfg.Forecast.Basket) > 0 {
		opts.Basket = make([]forecast.Scenario, len(cfg.Forecast.Basket))
		for i, b := range cfg.Forecast.Basket {
			opts.Basket[i] = forecast.Scenario{Total: b.Total, Tender: b.Tender}
		}
	}
	return opts
}

// ProvidePredictor loads the three models. Missing models do not stop the
// process: forecast routes then answer 503 until training has run.
func ProvidePredictor(cfg *config.Config, loader domsvc.ModelLoader, logger *xlogger.Logger) (usecase.Predictor, error) {
	opts := forecastOptions(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pipe, err := forecast.NewPipeline(ctx, loader, forecast.ModelRefs{
		DailyAmount:       cfg.Forecast.Models.DailyAmount,
		DenominationSplit: cfg.Forecast.Models.DenominationSplit,
		SpikeHour:         cfg.Forecast.Models.SpikeHour,
	}, opts, logger)
	if err == nil {
		return pipe, nil
	}
	if errors.Is(err, domsvc.ErrModelLoad) {
		logger.Error("models unavailable, forecasts disabled", xlogger.Error(err))
		return usecase.UnavailablePredictor{Err: err, Denom: opts.Denominations}, nil
	}
	return nil, fmt.Errorf("forecast pipeline: %w", err)
}

// ProvideDashboardHub creates the websocket hub, or nil when disabled.
func ProvideDashboardHub(cfg *config.Config, logger *xlogger.Logger) *ws.DashboardHub {
	if !cfg.Dashboard.Enabled {
		return nil
	}
	return ws.NewDashboardHub(logger, cfg.Dashboard.PingInterval, cfg.Dashboard.WriteTimeout)
}

// ProvideForecastUseCase wires the forecast use case with its optional
// cache, publisher and dashboard.
func ProvideForecastUseCase(
	cfg *config.Config,
	pipe usecase.Predictor,
	log repository.TransactionLog,
	fc *cache.ForecastCache,
	pub repository.ForecastPublisher,
	hub *ws.DashboardHub,
	m repository.Metrics,
	logger *xlogger.Logger,
) *usecase.ForecastUseCase {
	var opts []usecase.ForecastOption
	if fc != nil {
		opts = append(opts, usecase.WithForecastCache(fc))
	}
	if pub != nil {
		opts = append(opts, usecase.WithForecastPublisher(pub))
	}
	if hub != nil {
		opts = append(opts, usecase.WithBroadcaster(hub))
	}
	return usecase.NewForecastUseCase(pipe, log, m, logger, cfg.Forecast.StoreType, opts...)
}

// ProvideDatasetExporter builds the training export over the log.
func ProvideDatasetExporter(cfg *config.Config, log repository.TransactionLog) *usecase.DatasetExporter {
	schema := features.DenominationSplitSchema(models.Denominations(cfg.Forecast.Denominations), cfg.Forecast.StoreTypes)
	return usecase.NewDatasetExporter(log, log, schema, cfg.Forecast.OpenHour, cfg.Forecast.CloseHour)
}

// IngestPipelines holds the two ingest paths. HTTP feeds the stream when
// Kafka is on; Stream drains the topic into the log and never republishes.
type IngestPipelines struct {
	HTTP   *mid.IngestPipeline
	Stream *mid.IngestPipeline
}

// ProvideIngestPipelines builds both ingest paths.
func ProvideIngestPipelines(pub repository.TransactionPublisher, log repository.TransactionLog, m repository.Metrics) *IngestPipelines {
	storeProc := usecase.NewTransactionProcessor(nil, log, m, usecase.BackendStore)
	ps := &IngestPipelines{
		HTTP:   mid.NewIngestPipeline(storeProc, m),
		Stream: mid.NewIngestPipeline(storeProc, m),
	}
	if pub != nil {
		ps.HTTP = mid.NewIngestPipeline(usecase.NewTransactionProcessor(pub, log, m, usecase.BackendKafka), m)
	}
	return ps
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, logger *xlogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTransactionsHandler consumes the transactions topic into the log.
func ProvideKafkaTransactionsHandler(cfg *config.Config, pipes *IngestPipelines, m repository.Metrics) *usecase.KafkaTransactionsHandler {
	return usecase.NewKafkaTransactionsHandler(cfg.Kafka.TransactionsTopic, pipes.Stream, m)
}

// ProvideHTTPHandler assembles every route group.
func ProvideHTTPHandler(
	logger *xlogger.Logger,
	fu *usecase.ForecastUseCase,
	exporter *usecase.DatasetExporter,
	pipes *IngestPipelines,
	hub *ws.DashboardHub,
	log repository.TransactionLog,
	store cache.BytesCache,
) xhttp.Handler {
	checks := map[string]api.HealthCheck{"transactions": log.Health}
	if rc, ok := store.(*cache.RedisCache); ok {
		checks["redis"] = rc.Ping
	}
	routes := api.Routes{
		api.NewHealthEchoHandler(checks),
		api.NewForecastEchoHandler(logger, fu, exporter),
		api.NewTransactionsEchoHandler(logger, pipes.HTTP),
	}
	if hub != nil {
		routes = append(routes, hub)
	}
	return routes
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	handler xhttp.Handler,
	pipes *IngestPipelines,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTransactionsHandler,
	m repository.Metrics,
	producer *pkgkafka.Producer,
	log repository.TransactionLog,
	chClient *pkgch.Client,
	store cache.BytesCache,
) *server.App {
	opts := []server.Option{
		server.WithMiddleware(ratelimit.New().Middleware(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)),
		server.WithPipelines(pipes.HTTP, pipes.Stream),
		server.WithConsumer(consumer, usecase.TransactionHook(logger, m), kh),
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka-producer", producer))
	}
	opts = append(opts, server.WithCloser("transactions", log))
	if chClient != nil {
		opts = append(opts, server.WithCloser("clickhouse", chClient))
	}
	if c, ok := store.(io.Closer); ok {
		opts = append(opts, server.WithCloser("cache", c))
	}
	return server.New(cfg, logger, handler, opts...)
}
