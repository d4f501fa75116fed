package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomeDeps struct {
	perf       *fakePerf
	strategies *fakeStrategyResults
	patterns   *fakePatternResults
	metrics    *countingMetrics
}

func newOutcomeDeps() *outcomeDeps {
	return &outcomeDeps{
		perf:       &fakePerf{},
		strategies: &fakeStrategyResults{},
		patterns:   &fakePatternResults{},
		metrics:    newCountingMetrics(),
	}
}

func (d *outcomeDeps) usecase() *TradeOutcomes {
	return NewTradeOutcomes(d.perf, d.strategies, d.patterns, d.metrics, nil)
}

func winOutcome() models.TradeOutcome {
	ts := t0
	return models.TradeOutcome{
		Asset:      "EURUSD",
		Action:     "call",
		Result:     "win",
		Profit:     decimal.NewFromFloat(8.5),
		Confidence: 72,
		StrategyID: "rsi_oversold_scalp",
		Regime:     "trending_up",
		Pattern:    "hammer",
		Quality:    85,
		Timestamp:  &ts,
		Indicators: map[string]interface{}{"rsi": 28.0},
	}
}

func TestRecordOutcome_FansOut(t *testing.T) {
	d := newOutcomeDeps()
	res, err := d.usecase().RecordOutcome(context.Background(), winOutcome())
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	assert.Equal(t, "rec-1", res.Record.ID)

	require.Len(t, d.perf.records, 1)
	rec := d.perf.records[0]
	assert.Equal(t, models.ResultWin, rec.Result)
	assert.Equal(t, models.RegimeTrendingUp, rec.Regime)
	assert.Equal(t, t0, rec.Timestamp)
	rsi, _ := rec.Indicators.Float("rsi")
	assert.Equal(t, 28.0, rsi)

	require.Len(t, d.strategies.calls, 1)
	assert.Equal(t, "rsi_oversold_scalp", d.strategies.calls[0].id)
	assert.True(t, d.strategies.calls[0].profit.Equal(decimal.NewFromFloat(8.5)))
	assert.Equal(t, []models.PatternKind{models.PatternHammer}, d.patterns.kinds)
	assert.Equal(t, 1, d.metrics.trades["win"])
}

func TestRecordOutcome_OptionalParts(t *testing.T) {
	d := newOutcomeDeps()
	o := winOutcome()
	o.StrategyID = ""
	o.Pattern = ""
	o.Timestamp = nil

	res, err := d.usecase().RecordOutcome(context.Background(), o)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, d.strategies.calls)
	assert.Empty(t, d.patterns.kinds)
	assert.False(t, d.perf.records[0].Timestamp.IsZero())
}

func TestRecordOutcome_Invalid(t *testing.T) {
	cases := map[string]func(*models.TradeOutcome){
		"missing asset":   func(o *models.TradeOutcome) { o.Asset = "" },
		"bad action":      func(o *models.TradeOutcome) { o.Action = "auto" },
		"bad result":      func(o *models.TradeOutcome) { o.Result = "draw" },
		"confidence high": func(o *models.TradeOutcome) { o.Confidence = 101 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := newOutcomeDeps()
			o := winOutcome()
			mutate(&o)
			_, err := d.usecase().RecordOutcome(context.Background(), o)
			require.Error(t, err)
			assert.Empty(t, d.perf.records)
		})
	}
}

func TestRecordOutcome_PersistFailuresAreWarnings(t *testing.T) {
	d := newOutcomeDeps()
	d.perf.err = persistErr(domrepo.KeyPerformance)
	d.strategies.err = persistErr(domrepo.KeyStrategies)
	d.patterns.err = persistErr(domrepo.KeyPatternHistory)

	res, err := d.usecase().RecordOutcome(context.Background(), winOutcome())
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 3)
	assert.Equal(t, 1, d.metrics.errs["persist_performance"])
	assert.Equal(t, 1, d.metrics.errs["persist_strategy"])
	assert.Equal(t, 1, d.metrics.errs["persist_pattern"])
}

func TestRecordOutcome_UnknownStrategyIsWarning(t *testing.T) {
	d := newOutcomeDeps()
	d.strategies.err = strategy.ErrStrategyNotFound

	res, err := d.usecase().RecordOutcome(context.Background(), winOutcome())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "rsi_oversold_scalp")
	assert.Len(t, d.patterns.kinds, 1)
}

func TestRecordOutcome_HardErrors(t *testing.T) {
	d := newOutcomeDeps()
	d.perf.err = errors.New("boom")
	_, err := d.usecase().RecordOutcome(context.Background(), winOutcome())
	require.Error(t, err)
	assert.Empty(t, d.strategies.calls)

	d = newOutcomeDeps()
	d.patterns.err = errors.New("empty pattern kind")
	_, err = d.usecase().RecordOutcome(context.Background(), winOutcome())
	require.Error(t, err)
}
