//go:build wireinject
// +build wireinject

package di

import (
	"midas/pkg/config"
	"midas/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideReportSink,
		ProvideCache,

		// Repositories
		ProvideBarStore,
		ProvideSourceOpener,

		// Use cases
		ProvideIntervals,
		ProvidePipeline,
		ProvideOrchestrator,
		ProvideVerifier,

		// HTTP surface
		ProvideReportHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
