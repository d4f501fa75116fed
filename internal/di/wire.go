//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvidePrometheusRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideDocumentStore,
		ProvideClickHouseClient,
		ProvideTradeJournal,
		ProvideKafkaProducer,
		ProvideDecisionPublisher,
		ProvideKafkaConsumer,

		// Learners and analyzers
		ProvideCalibrator,
		ProvideStrategyRegistry,
		ProvidePatternHistory,
		ProvideRegimeDetector,
		ProvidePatternRecognizer,

		// Use cases
		ProvideDecisionEngine,
		ProvideTradeOutcomes,
		ProvideOutcomesHandler,

		// Transport
		ProvideAPIHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
