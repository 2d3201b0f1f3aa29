//go:build wireinject
// +build wireinject

package di

import (
	"TradeSync/pkg/config"
	"TradeSync/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Stream plumbing
		ProvideBus,
		ProvideTokenSource,
		ProvideGateway,
		ProvideRegistry,

		// Backend access
		ProvideCache,
		ProvideTradingAPI,

		// Use cases
		ProvideNotifier,
		ProvideSessionManager,
		ProvideRelay,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
