package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/signals"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
)

// Stages recorded when a post-selection gate drops a signal.
const (
	StageRegimeGate = "regime_gate"
	StageTrendGate  = "trend_gate"
)

// DecisionInput is one decision cycle's input.
type DecisionInput struct {
	Asset      string
	Candles    []models.Candle
	Higher     map[domrepo.Timeframe][]models.Candle
	Indicators models.IndicatorSnapshot
	Aligned    *bool
	Now        time.Time
}

// EngineConfig tunes arbitration and the post-selection gates.
type EngineConfig struct {
	Policy models.ArbitrationPolicy
	// RegimeGate drops signals that TradingRecommendation denies.
	RegimeGate bool
	// TrendGate drops signals that trade against the higher timeframes.
	TrendGate bool
	// RequireAllTimeframes makes the trend check demand every higher
	// timeframe agree.
	RequireAllTimeframes bool
}

// DecisionEngine runs the per-cycle pipeline: timeframes, regime and
// patterns, strategy evaluation, arbitration, calibration and veto.
type DecisionEngine struct {
	cfg        EngineConfig
	regime     domsvc.RegimeDetector
	patterns   domsvc.PatternAnalyzer
	strategies domsvc.StrategyEvaluator
	calibrator domsvc.ConfidenceCalibrator
	publisher  domrepo.DecisionPublisher
	metrics    domrepo.Metrics
	log        *logger.Logger
}

// NewDecisionEngine accepts a nil publisher, metrics sink or logger.
func NewDecisionEngine(
	cfg EngineConfig,
	regime domsvc.RegimeDetector,
	patterns domsvc.PatternAnalyzer,
	strategies domsvc.StrategyEvaluator,
	calibrator domsvc.ConfidenceCalibrator,
	publisher domrepo.DecisionPublisher,
	m domrepo.Metrics,
	log *logger.Logger,
) *DecisionEngine {
	if !cfg.Policy.IsValid() {
		cfg.Policy = models.PolicyPriority
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DecisionEngine{
		cfg:        cfg,
		regime:     regime,
		patterns:   patterns,
		strategies: strategies,
		calibrator: calibrator,
		publisher:  publisher,
		metrics:    m,
		log:        log,
	}
}

func (e *DecisionEngine) Policy() models.ArbitrationPolicy { return e.cfg.Policy }

// Decide runs one cycle. Missing candles or indicators produce a neutral
// decision; only an empty asset is an error.
func (e *DecisionEngine) Decide(ctx context.Context, in DecisionInput) (*models.Decision, error) {
	if in.Asset == "" {
		return nil, errors.New("asset is required")
	}
	start := time.Now()
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	windows := analytics.BuildTimeframes(in.Candles, in.Higher)
	higher := [][]models.Candle{windows[domrepo.TF5m], windows[domrepo.TF15m]}

	regime := e.regime.Detect(windows[domrepo.TF1m], higher, in.Indicators, now)
	alignment := analytics.AnalyzeTrendAlignment(windows)
	aligned := alignment.Aligned
	if in.Aligned != nil {
		aligned = *in.Aligned
	}

	snap := in.Indicators.Clone()
	setIfAbsent(snap, "regime", models.Text(string(regime.Regime)))
	var quality *models.PatternQuality
	if p := e.patterns.DetectMultiTimeframe(windows); p != nil {
		q := e.patterns.EvaluateQuality(*p, snap, regime.Regime)
		quality = &q
		setIfAbsent(snap, "pattern", models.Text(string(p.Kind)))
		setIfAbsent(snap, "pattern_strength", models.Num(float64(p.Strength)))
		setIfAbsent(snap, "pattern_quality", models.Num(float64(q.Quality)))
	}

	d := &models.Decision{
		Asset:     in.Asset,
		Timestamp: now,
		Status:    models.DecisionNoSignal,
		Policy:    e.cfg.Policy,
		Regime:    regime,
		Alignment: alignment,
		Pattern:   quality,
	}

	ec := models.EvaluationContext{Asset: in.Asset, Snapshot: snap, Regime: regime.Regime, Aligned: aligned, Now: now}
	candidates, rejections := e.strategies.EvaluateAll(ec, e.cfg.Policy)
	d.Candidates = candidates
	d.Rejections = rejections

	selected := signals.Aggregate(candidates, e.cfg.Policy)
	if ok, reason := e.calibrator.ShouldTradeNow(now); !ok {
		d.Status = models.DecisionBlocked
		d.VetoReason = reason
		selected = nil
	}

	for _, s := range selected {
		s.CalibratedConfidence = e.calibrator.CalibratedConfidence(s.Confidence)

		withTrend, trendWhy := analytics.ShouldTradeWithTrend(s.Action, higher, e.cfg.RequireAllTimeframes)
		if e.cfg.TrendGate && !withTrend {
			d.Rejections = append(d.Rejections, models.Rejection{StrategyID: s.StrategyID, Stage: StageTrendGate, Reason: trendWhy})
			continue
		}
		s.Reasons = append(s.Reasons, "trend: "+trendWhy)

		allowed, regimeWhy := analytics.TradingRecommendation(regime.Regime, s.Action)
		if e.cfg.RegimeGate && !allowed {
			d.Rejections = append(d.Rejections, models.Rejection{StrategyID: s.StrategyID, Stage: StageRegimeGate, Reason: regimeWhy})
			continue
		}
		s.Reasons = append(s.Reasons, "regime: "+regimeWhy)
		d.Signals = append(d.Signals, s)
	}
	if len(d.Signals) > 0 {
		d.Status = models.DecisionSignal
	}

	e.observe(d, time.Since(start))

	if d.Status == models.DecisionSignal && e.publisher != nil {
		if err := e.publisher.Publish(ctx, d); err != nil {
			e.metrics.RecordError("publish_decision")
			e.log.Warn("publish decision failed", logger.String("asset", d.Asset), logger.Error(err))
			d.Warnings = append(d.Warnings, fmt.Sprintf("publish decision: %v", err))
		}
	}
	return d, nil
}

func setIfAbsent(snap models.IndicatorSnapshot, key string, v models.IndicatorValue) {
	if _, ok := snap[key]; !ok {
		snap[key] = v
	}
}

func (e *DecisionEngine) observe(d *models.Decision, took time.Duration) {
	e.metrics.RecordDecision(string(d.Status))
	e.metrics.RecordRegime(string(d.Regime.Regime), d.Regime.Confidence)
	e.metrics.RecordLatency("decide", took.Seconds())
	for _, s := range d.Signals {
		e.metrics.RecordSignal(s.StrategyID, string(s.Action))
	}
	for _, r := range d.Rejections {
		e.metrics.RecordRejection(r.Stage)
	}

	fields := []logger.Field{
		logger.String("asset", d.Asset),
		logger.String("status", string(d.Status)),
		logger.String("regime", string(d.Regime.Regime)),
		logger.Int("candidates", len(d.Candidates)),
		logger.Int("signals", len(d.Signals)),
		logger.Duration("took_ms", took),
	}
	if d.VetoReason != "" {
		fields = append(fields, logger.String("veto", d.VetoReason))
	}
	if len(d.Signals) > 0 {
		fields = append(fields,
			logger.String("action", string(d.Signals[0].Action)),
			logger.Float64("confidence", d.Signals[0].CalibratedConfidence))
	}
	e.log.Info("decision", fields...)
}
