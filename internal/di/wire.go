//go:build wireinject
// +build wireinject

package di

import (
	"FXPull/pkg/config"
	"FXPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,
		ProvideLimiter,
		ProvideCacheService,

		// External data sources
		ProvideCandleProviders,
		ProvideNewsProvider,

		// Persistence
		ProvideArtifactStore,
		ProvideWarehouse,

		// Use cases
		ProvideOrchestrator,
		ProvideNewsUsecase,
		ProvideIndicatorEngine,
		ProvideAssembler,
		ProvidePipeline,
		ProvideArtifactsUseCase,

		// HTTP surface
		ProvideHTTPHandler,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
