// Hand-maintained equivalent of the Wire output for wire.go. Keep the two in
// sync when providers change.

//go:build !wireinject
// +build !wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application. When
// a provider fails, resources opened before it are released.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	registry := ProvidePrometheusRegistry()
	documentStore, err := ProvideDocumentStore(cfg)
	if err != nil {
		return nil, err
	}
	var opened closeStack
	opened.addCloser("document store", documentStore)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	if client != nil {
		opened.add("clickhouse", client.Close)
	}
	tradeJournal := ProvideTradeJournal(client, cfg)
	calibrator, err := ProvideCalibrator(cfg, documentStore, tradeJournal, logger)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	strategyRegistry, err := ProvideStrategyRegistry(cfg, documentStore, logger)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	regimeDetector := ProvideRegimeDetector()
	patternRecognizer := ProvidePatternRecognizer()
	producer, err := ProvideKafkaProducer(cfg, registry)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	if producer != nil {
		opened.add("kafka producer", producer.Close)
	}
	decisionPublisher := ProvideDecisionPublisher(producer, cfg)
	metrics := ProvideMetrics(registry)
	decisionEngine := ProvideDecisionEngine(cfg, regimeDetector, patternRecognizer, strategyRegistry, calibrator, decisionPublisher, metrics, logger)
	patternHistory, err := ProvidePatternHistory(documentStore, logger)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	tradeOutcomes := ProvideTradeOutcomes(calibrator, strategyRegistry, patternHistory, metrics, logger)
	handler := ProvideAPIHandler(logger, decisionEngine, tradeOutcomes, strategyRegistry, regimeDetector, calibrator, patternHistory)
	httpServer := ProvideHTTPServer(cfg, handler, logger, registry)
	consumer, err := ProvideKafkaConsumer(cfg, logger, registry)
	if err != nil {
		opened.release(logger)
		return nil, err
	}
	kafkaOutcomesHandler := ProvideOutcomesHandler(cfg, tradeOutcomes, metrics)
	app := ProvideApp(cfg, logger, httpServer, documentStore, client, decisionPublisher, consumer, kafkaOutcomesHandler)
	return app, nil
}
