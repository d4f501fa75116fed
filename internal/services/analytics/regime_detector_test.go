package analytics

import (
	"testing"
	"time"

	"SignalForge/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegimeDetector_InsufficientData(t *testing.T) {
	d := NewRegimeDetector()
	rec := d.Detect(series(19, 100, 0.5, 1), nil, nil, t0)

	assert.Equal(t, models.RegimeUnknown, rec.Regime)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Len(t, d.History(), 1)
}

func TestRegimeDetector_FlatMarketIsLowVolatility(t *testing.T) {
	d := NewRegimeDetector()
	flat := series(20, 100, 0, 0)

	rec := d.Detect(flat, nil, nil, t0)
	assert.Equal(t, models.RegimeLowVolatility, rec.Regime)
	assert.Equal(t, 80.0, rec.Confidence)
}

func TestRegimeDetector_Trending(t *testing.T) {
	tests := []struct {
		name   string
		step   float64
		want   models.Regime
		higher models.Trend
	}{
		{"up", 0.5, models.RegimeTrendingUp, models.TrendUp},
		{"down", -0.5, models.RegimeTrendingDown, models.TrendDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewRegimeDetector()
			base := series(50, 130, tt.step, 1)
			higher := [][]models.Candle{series(25, 130, tt.step*2, 1), series(25, 130, tt.step*3, 1)}

			rec := d.Detect(base, higher, nil, t0)
			assert.Equal(t, tt.want, rec.Regime)
			assert.GreaterOrEqual(t, rec.Confidence, 80.0)
			assert.Equal(t, tt.higher, rec.HigherTrend)
			assert.Greater(t, rec.Volatility, 0.2)
			assert.Less(t, rec.Volatility, 0.7)
		})
	}
}

func TestRegimeDetector_HighVolatility(t *testing.T) {
	rec := NewRegimeDetector().Detect(series(30, 100, 0.1, 10), nil, nil, t0)
	assert.Equal(t, models.RegimeHighVolatility, rec.Regime)
	assert.Equal(t, 85.0, rec.Confidence)
}

func TestRegimeDetector_MixedSignalsAreRanging(t *testing.T) {
	// Rising 1m with falling higher timeframes cancels out.
	base := series(50, 130, 0.5, 1)
	higher := [][]models.Candle{series(25, 130, -1, 1), series(25, 130, -1.5, 1)}

	rec := NewRegimeDetector().Detect(base, higher, nil, t0)
	assert.Equal(t, models.RegimeRanging, rec.Regime)
	assert.Equal(t, 70.0, rec.Confidence)
}

func TestRegimeDetector_IsDeterministic(t *testing.T) {
	base := series(60, 120, 0.3, 0.9)
	snap := models.IndicatorSnapshot{"supertrend": models.Text("BUY")}
	a := NewRegimeDetector().Detect(base, nil, snap, t0)
	b := NewRegimeDetector().Detect(base, nil, snap, t0)
	assert.Equal(t, a, b)
}

func TestRegimeDetector_HistoryIsBounded(t *testing.T) {
	d := NewRegimeDetector()
	flat := series(20, 100, 0, 0)
	for i := 0; i < 105; i++ {
		d.Detect(flat, nil, nil, t0.Add(time.Duration(i)*time.Second))
	}

	h := d.History()
	require.Len(t, h, 100)
	assert.Equal(t, t0.Add(5*time.Second), h[0].DetectedAt)
	last, ok := d.Latest()
	require.True(t, ok)
	assert.Equal(t, t0.Add(104*time.Second), last.DetectedAt)
}

func TestIndicatorBias(t *testing.T) {
	tests := []struct {
		name string
		snap models.IndicatorSnapshot
		want models.Trend
	}{
		{"empty", nil, models.TrendNeutral},
		{"ema bullish", models.IndicatorSnapshot{"ema_cross": models.Text("Bullish")}, models.TrendUp},
		{"supertrend sell", models.IndicatorSnapshot{"supertrend": models.Text("SELL")}, models.TrendDown},
		{"conflict", models.IndicatorSnapshot{"ema_cross": models.Text("Bullish"), "supertrend": models.Text("SELL")}, models.TrendNeutral},
		{"agree", models.IndicatorSnapshot{"ema_cross": models.Text("Bearish"), "supertrend": models.Text("SELL")}, models.TrendDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indicatorBias(tt.snap))
		})
	}
}

func TestTradingRecommendation(t *testing.T) {
	tests := []struct {
		regime models.Regime
		action models.Action
		want   bool
	}{
		{models.RegimeLowVolatility, models.ActionCall, false},
		{models.RegimeHighVolatility, models.ActionPut, true},
		{models.RegimeTrendingUp, models.ActionCall, true},
		{models.RegimeTrendingUp, models.ActionPut, false},
		{models.RegimeTrendingDown, models.ActionPut, true},
		{models.RegimeTrendingDown, models.ActionCall, false},
		{models.RegimeRanging, models.ActionCall, true},
		{models.RegimeUnknown, models.ActionPut, true},
	}
	for _, tt := range tests {
		ok, reason := TradingRecommendation(tt.regime, tt.action)
		assert.Equal(t, tt.want, ok, "%s/%s", tt.regime, tt.action)
		assert.NotEmpty(t, reason)
	}
}
