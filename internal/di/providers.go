package di

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/handler/api"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/performance"
	"SignalForge/internal/services/strategy"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvidePrometheusRegistry returns a private registry with the Go and
// process collectors, served on /metrics.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.NewWithRegisterer(reg)
}

// ProvideDocumentStore selects the persistence backend for the strategy,
// performance and pattern documents.
func ProvideDocumentStore(cfg *config.Config) (domrepo.DocumentStore, error) {
	sc := cfg.Storage
	switch sc.Type {
	case "memory":
		return internalrepo.NewCacheDocumentStore(cache.NewMemoryCache(cache.WithMaxEntries(sc.Memory.MaxSize))), nil
	case "redis", "layered":
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Host:     sc.Redis.Host,
			Port:     sc.Redis.Port,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			PoolSize: sc.Redis.PoolSize,
			Prefix:   sc.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		if sc.Type == "redis" {
			return internalrepo.NewCacheDocumentStore(rc), nil
		}
		return internalrepo.NewCacheDocumentStore(cache.NewLayeredCache(rc, cache.WithLocalSize(sc.Memory.MaxSize))), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		st, err := internalrepo.NewSQLiteDocumentStore(ctx, sc.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return st, nil
	}
}

// ProvideClickHouseClient returns nil when the journal is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	cc := cfg.ClickHouse
	if !cc.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx, pkgch.Config{
		Host:         cc.Host,
		Port:         cc.Port,
		Database:     cc.Database,
		User:         cc.User,
		Password:     cc.Password,
		UseHTTP:      cc.UseHTTP,
		AsyncInsert:  cc.AsyncInsert,
		WaitForAsync: cc.WaitForAsync,
		DialTimeout:  cc.DialTimeout,
		ReadTimeout:  cc.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.TradeJournalSchema(cc.JournalTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideTradeJournal(client *pkgch.Client, cfg *config.Config) domrepo.TradeJournal {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseTradeJournal(client.DB(), cfg.ClickHouse.JournalTable)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	kc := cfg.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      kc.Brokers,
		RequiredAcks: kc.Producer.RequiredAcks,
		Compression:  kc.Producer.Compression,
		MaxAttempts:  kc.Producer.MaxAttempts,
		WriteTimeout: kc.Producer.WriteTimeout,
	}, reg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.DecisionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger, reg *prometheus.Registry) (*pkgkafka.Consumer, error) {
	kc := cfg.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    kc.Brokers,
		GroupID:    kc.Consumer.GroupID,
		Workers:    kc.Consumer.Workers,
		BufferSize: kc.Consumer.BufferSize,
		RetryMax:   kc.Consumer.RetryMax,
		BackoffMin: kc.Consumer.BackoffMin,
		BackoffMax: kc.Consumer.BackoffMax,
		DLQTopic:   kc.Consumer.DLQTopic,
	}, log, reg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCalibrator restores the trade history. An unreadable store is logged
// and the calibrator starts empty.
func ProvideCalibrator(cfg *config.Config, store domrepo.DocumentStore, journal domrepo.TradeJournal, log *applogger.Logger) (*performance.Calibrator, error) {
	cal := cfg.Engine.Calibration
	c := performance.NewCalibrator(performance.Config{
		MinSamples:          cal.MinSamples,
		UncertaintyDiscount: cal.UncertaintyDiscount,
		MaxLossStreak:       cal.MaxLossStreak,
		MinHourWinRate:      cal.MinHourWinRate,
		HourMinSamples:      cal.HourMinSamples,
		BestHoursMinTrades:  cal.BestHoursMinTrades,
	}, store, journal)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := c.Load(ctx); err != nil {
		if !domrepo.IsPersistError(err) {
			return nil, err
		}
		log.Warn("trade history unavailable, starting empty", applogger.Error(err))
	}
	return c, nil
}

// ProvideStrategyRegistry loads the stored strategies and adds any from the
// seed file that are not registered yet.
func ProvideStrategyRegistry(cfg *config.Config, store domrepo.DocumentStore, log *applogger.Logger) (*strategy.Registry, error) {
	r := strategy.NewRegistry(store, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if err := r.Load(ctx); err != nil {
		if !domrepo.IsPersistError(err) {
			return nil, err
		}
		log.Warn("strategy store degraded", applogger.Error(err))
	}
	if path := cfg.Engine.StrategySeedFile; path != "" {
		specs, err := strategy.ReadSeedFile(path)
		if err != nil {
			return nil, err
		}
		added, err := r.Seed(ctx, specs)
		if err != nil {
			if !domrepo.IsPersistError(err) {
				return nil, err
			}
			log.Warn("seeded strategies not persisted", applogger.Error(err))
		}
		log.Info("strategy seed file applied", applogger.String("path", path), applogger.Int("added", added))
	}
	return r, nil
}

func ProvidePatternHistory(store domrepo.DocumentStore, log *applogger.Logger) (*analytics.PatternHistory, error) {
	h := analytics.NewPatternHistory(store)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := h.Load(ctx); err != nil {
		if !domrepo.IsPersistError(err) {
			return nil, err
		}
		log.Warn("pattern history unavailable, starting empty", applogger.Error(err))
	}
	return h, nil
}

func ProvideRegimeDetector() *analytics.RegimeDetector {
	return analytics.NewRegimeDetector()
}

func ProvidePatternRecognizer() *analytics.PatternRecognizer {
	return analytics.NewPatternRecognizer()
}

func ProvideDecisionEngine(
	cfg *config.Config,
	regime *analytics.RegimeDetector,
	patterns *analytics.PatternRecognizer,
	registry *strategy.Registry,
	calibrator *performance.Calibrator,
	publisher domrepo.DecisionPublisher,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.DecisionEngine {
	return usecase.NewDecisionEngine(usecase.EngineConfig{
		Policy:               models.ArbitrationPolicy(strings.ToLower(cfg.Engine.Policy)),
		RegimeGate:           cfg.Engine.RegimeGate,
		TrendGate:            cfg.Engine.TrendGate,
		RequireAllTimeframes: cfg.Engine.RequireAllTimeframes,
	}, regime, patterns, registry, calibrator, publisher, m, log)
}

func ProvideTradeOutcomes(
	calibrator *performance.Calibrator,
	registry *strategy.Registry,
	patterns *analytics.PatternHistory,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.TradeOutcomes {
	return usecase.NewTradeOutcomes(calibrator, registry, patterns, m, log)
}

func ProvideOutcomesHandler(cfg *config.Config, outcomes *usecase.TradeOutcomes, m domrepo.Metrics) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomesTopic, outcomes, m)
}

func ProvideAPIHandler(
	log *applogger.Logger,
	engine *usecase.DecisionEngine,
	outcomes *usecase.TradeOutcomes,
	registry *strategy.Registry,
	regime *analytics.RegimeDetector,
	calibrator *performance.Calibrator,
	patterns *analytics.PatternHistory,
) *api.Handler {
	return api.NewHandler(log, engine, outcomes, registry, regime, calibrator, patterns)
}

func ProvideHTTPServer(cfg *config.Config, h *api.Handler, log *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		xhttp.WithMetrics(reg, reg, metricsPath),
	)
}

// ProvideApp assembles the lifecycle. Resources are closed in reverse of
// the order listed here.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	store domrepo.DocumentStore,
	chClient *pkgch.Client,
	publisher domrepo.DecisionPublisher,
	consumer *pkgkafka.Consumer,
	outcomes *usecase.KafkaOutcomesHandler,
) *server.App {
	var closers closeStack
	closers.addCloser("document store", store)
	if chClient != nil {
		closers.add("clickhouse", chClient.Close)
	}
	if publisher != nil {
		closers.add("decision publisher", publisher.Close)
	}

	opts := []server.Option{
		server.WithClosers(closers...),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, outcomes))
	}
	return server.New(log, srv, opts...)
}

// closeStack holds what an injector has opened so far so that a later
// provider failure can release it in reverse order.
type closeStack []server.Closer

func (s *closeStack) add(name string, closeFn func() error) {
	*s = append(*s, server.Closer{Name: name, Close: closeFn})
}

// addCloser adds v when it owns a handle, as the SQLite store does.
func (s *closeStack) addCloser(name string, v interface{}) {
	if c, ok := v.(io.Closer); ok {
		s.add(name, c.Close)
	}
}

func (s closeStack) release(log *applogger.Logger) {
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i].Close(); err != nil {
			log.Warn("release after failed init", applogger.String("resource", s[i].Name), applogger.Error(err))
		}
	}
}
