//go:build wireinject
// +build wireinject

package di

import (
	"KiranaCash/pkg/config"
	"KiranaCash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCacheStore,

		// Repositories
		ProvideTransactionLog,
		ProvideTransactionPublisher,
		ProvideForecastPublisher,
		ProvideForecastCache,

		// Forecasting
		ProvideModelLoader,
		ProvidePredictor,
		ProvideDashboardHub,

		// Use cases
		ProvideForecastUseCase,
		ProvideDatasetExporter,
		ProvideIngestPipelines,
		ProvideKafkaTransactionsHandler,

		// Application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
