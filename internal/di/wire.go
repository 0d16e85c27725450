//go:build wireinject
// +build wireinject

package di

import (
	"StockPred/pkg/config"
	"StockPred/pkg/server"

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
		ProvideLogCollector,
		ProvideRedisCache,
		ProvideCache,
		ProvideQueue,

		// Repositories
		ProvideCandleStore,
		ProvideTrainingStore,
		ProvidePredictionStore,
		ProvidePublisher,
		ProvideArtifactStore,

		// Domain services
		ProvideProfiles,
		ProvideCalendar,
		ProvideFeatureEngine,
		ProvidePredictor,

		// Use cases
		ProvideHub,
		ProvideTrainingUseCase,
		ProvidePredictionUseCase,
		ProvideCandlesUseCase,
		ProvideTrainJob,

		// Transport
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
