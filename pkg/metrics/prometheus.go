package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	signals     *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	regime      *prometheus.GaugeVec
	trades      *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the engine metrics on the default registerer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh prometheus.Registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_decisions_total",
				Help: "Decision cycles by outcome status",
			},
			[]string{"status"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_signals_total",
				Help: "Emitted signals by strategy and action",
			},
			[]string{"strategy", "action"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_rejections_total",
				Help: "Strategy rejections by stage",
			},
			[]string{"stage"},
		),
		regime: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_regime_confidence",
				Help: "Confidence of the latest regime, 0 for the others",
			},
			[]string{"regime"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_trades_total",
				Help: "Resolved trades by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

var regimes = []string{"trending_up", "trending_down", "ranging", "high_volatility", "low_volatility", "unknown"}

func (r *Recorder) RecordDecision(status string) {
	r.decisions.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordSignal(strategyID, action string) {
	r.signals.WithLabelValues(strategyID, action).Inc()
}

func (r *Recorder) RecordRejection(stage string) {
	r.rejections.WithLabelValues(stage).Inc()
}

// RecordRegime sets the gauge of the current regime and zeroes the rest.
func (r *Recorder) RecordRegime(regime string, confidence float64) {
	for _, name := range regimes {
		if name != regime {
			r.regime.WithLabelValues(name).Set(0)
		}
	}
	r.regime.WithLabelValues(regime).Set(confidence)
}

func (r *Recorder) RecordTrade(result string) {
	r.trades.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordDecision(string)         {}
func (Noop) RecordSignal(string, string)   {}
func (Noop) RecordRejection(string)        {}
func (Noop) RecordRegime(string, float64)  {}
func (Noop) RecordTrade(string)            {}
func (Noop) RecordError(string)            {}
func (Noop) RecordLatency(string, float64) {}
