//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TFoldSV/pkg/config"
	"TFoldSV/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideReportCache,

		// Repositories
		ProvideBarSource,
		ProvideScoreStore,
		ProvideReportPublisher,

		// Use cases
		ProvideFoldPipeline,
		ProvideFoldReportUseCase,

		// Transport
		ProvideFoldsHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
