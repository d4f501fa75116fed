package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func minuteCandles(n int, start, step float64) []models.Candle {
	cs := make([]models.Candle, n)
	for i := range cs {
		c := start + step*float64(i)
		cs[i] = models.Candle{
			Timestamp: t0.Add(time.Duration(i-n) * time.Minute),
			Open:      c - step,
			Close:     c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Volume:    10,
		}
	}
	return cs
}

type fakeRegime struct{ regime models.Regime }

func (f fakeRegime) Detect(_ []models.Candle, _ [][]models.Candle, _ models.IndicatorSnapshot, now time.Time) models.RegimeRecord {
	return models.RegimeRecord{Regime: f.regime, Confidence: 80, DetectedAt: now}
}

func (f fakeRegime) History() []models.RegimeRecord { return nil }

type fakePatterns struct{ pattern *models.Pattern }

func (f fakePatterns) DetectMultiTimeframe(map[domrepo.Timeframe][]models.Candle) *models.Pattern {
	return f.pattern
}

func (f fakePatterns) EvaluateQuality(p models.Pattern, _ models.IndicatorSnapshot, _ models.Regime) models.PatternQuality {
	return models.PatternQuality{Pattern: p, Quality: 80, Tier: models.TierBuy, Confidence: 80}
}

type fakeStrategies struct {
	candidates []models.Signal
	rejections []models.Rejection
	seen       models.EvaluationContext
}

func (f *fakeStrategies) EvaluateAll(ec models.EvaluationContext, _ models.ArbitrationPolicy) ([]models.Signal, []models.Rejection) {
	f.seen = ec
	return append([]models.Signal(nil), f.candidates...), f.rejections
}

type fakeCalibrator struct {
	allow  bool
	reason string
}

func (f fakeCalibrator) CalibratedConfidence(raw float64) float64 { return raw * 0.9 }

func (f fakeCalibrator) ShouldTradeNow(time.Time) (bool, string) { return f.allow, f.reason }

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.Decision
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, d *models.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, d)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type countingMetrics struct {
	mu         sync.Mutex
	decisions  map[string]int
	rejections map[string]int
	trades     map[string]int
	errs       map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		decisions:  map[string]int{},
		rejections: map[string]int{},
		trades:     map[string]int{},
		errs:       map[string]int{},
	}
}

func (m *countingMetrics) RecordDecision(status string) {
	m.mu.Lock()
	m.decisions[status]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSignal(string, string) {}

func (m *countingMetrics) RecordRejection(stage string) {
	m.mu.Lock()
	m.rejections[stage]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordRegime(string, float64) {}

func (m *countingMetrics) RecordTrade(result string) {
	m.mu.Lock()
	m.trades[result]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLatency(string, float64) {}

type fakePerf struct {
	records []models.PerformanceRecord
	err     error
}

func (f *fakePerf) Record(_ context.Context, r models.PerformanceRecord) (models.PerformanceRecord, error) {
	r.ID = "rec-1"
	f.records = append(f.records, r)
	return r, f.err
}

type strategyCall struct {
	id     string
	result models.TradeResult
	profit decimal.Decimal
	at     time.Time
}

type fakeStrategyResults struct {
	calls []strategyCall
	err   error
}

func (f *fakeStrategyResults) RecordResult(_ context.Context, id string, result models.TradeResult, profit decimal.Decimal, at time.Time) error {
	f.calls = append(f.calls, strategyCall{id, result, profit, at})
	return f.err
}

type fakePatternResults struct {
	kinds []models.PatternKind
	err   error
}

func (f *fakePatternResults) Record(_ context.Context, kind models.PatternKind, _ models.TradeResult, _ decimal.Decimal, _ int, _ time.Time) error {
	f.kinds = append(f.kinds, kind)
	return f.err
}

var errDisk = errors.New("disk full")

func persistErr(key string) error { return &domrepo.PersistError{Key: key, Err: errDisk} }
