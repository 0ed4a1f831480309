//go:build wireinject
// +build wireinject

package di

import (
	"FlareScope/pkg/config"
	"FlareScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideFluxStorage,
		ProvideAnalysisStore,
		ProvideFluxPublisher,
		ProvideFluxStream,

		// Ingest path
		ProvideFluxProcessor,
		ProvideFluxCollector,
		ProvideKafkaFluxHandler,

		// Analysis pipeline
		ProvideWindowConfig,
		ProvideFlareAnalyzer,

		// API and background work
		ProvideResultCache,
		ProvideLiveCache,
		ProvideJobQueue,
		ProvideLogPublisher,
		ProvideAnalysisHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
