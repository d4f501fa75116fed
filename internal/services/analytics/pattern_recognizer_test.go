package analytics

import (
	"testing"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEngulfing(t *testing.T) {
	r := NewPatternRecognizer()

	t.Run("strong bullish", func(t *testing.T) {
		prev := candle(10, 9, 10.25, 8.75)
		prev.Volume = 100
		cur := candle(8.75, 11, 11.25, 8.5)
		cur.Volume = 150

		p := r.DetectEngulfing([]models.Candle{prev, cur})
		require.NotNil(t, p)
		assert.Equal(t, models.PatternBullishEngulfing, p.Kind)
		assert.Equal(t, 100, p.Strength)
		assert.True(t, p.VolumeConfirmed)
	})

	t.Run("weak bullish", func(t *testing.T) {
		prev := candle(10, 9, 10.5, 8.75)
		cur := candle(9, 10.25, 10.25, 9)

		p := r.DetectEngulfing([]models.Candle{prev, cur})
		require.NotNil(t, p)
		assert.Equal(t, 50, p.Strength)
		assert.False(t, p.VolumeConfirmed)
	})

	t.Run("bearish", func(t *testing.T) {
		prev := candle(9, 10, 10.25, 8.75)
		cur := candle(10.25, 8, 10.5, 7.5)

		p := r.DetectEngulfing([]models.Candle{prev, cur})
		require.NotNil(t, p)
		assert.Equal(t, models.PatternBearishEngulfing, p.Kind)
		// ratio 2.25: 90 + 20 + 10 (below prev low) + 15
		assert.Equal(t, 100, p.Strength)
	})

	t.Run("zero previous body", func(t *testing.T) {
		assert.Nil(t, r.DetectEngulfing([]models.Candle{candle(10, 10, 11, 9), candle(9, 12, 12, 9)}))
	})

	t.Run("not engulfing", func(t *testing.T) {
		assert.Nil(t, r.DetectEngulfing([]models.Candle{candle(10, 9, 10, 9), candle(9.5, 9.75, 10, 9)}))
		assert.Nil(t, r.DetectEngulfing([]models.Candle{candle(10, 9, 10, 9)}))
	})
}

func TestDetectDoji(t *testing.T) {
	r := NewPatternRecognizer()
	tests := []struct {
		name     string
		c        models.Candle
		kind     models.PatternKind
		strength int
	}{
		{"standard", candle(10, 10, 11, 9), models.PatternDoji, 60},
		{"dragonfly", candle(10, 10, 10, 8), models.PatternDragonflyDoji, 75},
		{"gravestone", candle(10, 10, 12, 10), models.PatternGravestoneDoji, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.DetectDoji([]models.Candle{tt.c})
			require.NotNil(t, p)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.strength, p.Strength)
			assert.Equal(t, 100, p.IndecisionScore)
		})
	}

	assert.Nil(t, r.DetectDoji([]models.Candle{candle(10, 10, 10, 10)}), "zero range")
	assert.Nil(t, r.DetectDoji([]models.Candle{candle(10, 11, 11, 10)}), "full body")
	assert.Nil(t, r.DetectDoji(nil))
}

func TestDetectHammerOrStar(t *testing.T) {
	r := NewPatternRecognizer()

	hammer := r.DetectHammerOrStar([]models.Candle{candle(10, 11, 11.25, 7)})
	require.NotNil(t, hammer)
	assert.Equal(t, models.PatternHammer, hammer.Kind)
	assert.Equal(t, 90, hammer.Strength)

	star := r.DetectHammerOrStar([]models.Candle{candle(10, 9, 13, 8.75)})
	require.NotNil(t, star)
	assert.Equal(t, models.PatternShootingStar, star.Kind)
	assert.Equal(t, 90, star.Strength)

	assert.Nil(t, r.DetectHammerOrStar([]models.Candle{candle(10, 10, 10, 8)}), "zero body")
	assert.Nil(t, r.DetectHammerOrStar([]models.Candle{candle(10, 10, 10, 10)}), "zero range")
	assert.Nil(t, r.DetectHammerOrStar([]models.Candle{candle(10, 11, 12, 9)}), "both shadows")
}

func TestDetectMultiTimeframe_PicksStrongest(t *testing.T) {
	r := NewPatternRecognizer()
	// doji (60) on 1m, weak engulfing (50) on 5m, hammer (90) on 15m
	windows := map[domrepo.Timeframe][]models.Candle{
		domrepo.TF1m:  {candle(10, 10, 11, 9)},
		domrepo.TF5m:  {candle(10, 9, 10.5, 8.75), candle(9, 10.25, 10.25, 9)},
		domrepo.TF15m: {candle(20, 20, 21, 19), candle(10, 11, 11.25, 7)},
	}

	p := r.DetectMultiTimeframe(windows)
	require.NotNil(t, p)
	assert.Equal(t, models.PatternHammer, p.Kind)
	assert.Equal(t, "15m", p.Timeframe)

	delete(windows, domrepo.TF15m)
	p = r.DetectMultiTimeframe(windows)
	require.NotNil(t, p)
	assert.Equal(t, models.PatternDoji, p.Kind)
	assert.Equal(t, "1m", p.Timeframe)

	assert.Nil(t, r.DetectMultiTimeframe(map[domrepo.Timeframe][]models.Candle{}))
}

func TestEvaluateQuality(t *testing.T) {
	r := NewPatternRecognizer()
	tests := []struct {
		name    string
		p       models.Pattern
		snap    models.IndicatorSnapshot
		regime  models.Regime
		quality int
		tier    models.PatternTier
		conf    int
	}{
		{
			name:    "bullish engulfing with full context",
			p:       models.Pattern{Kind: models.PatternBullishEngulfing, Strength: 50, BodyRatio: 1.25},
			snap:    models.IndicatorSnapshot{"rsi": models.Num(25), "macd_histogram": models.Num(0.5)},
			regime:  models.RegimeTrendingDown,
			quality: 95, tier: models.TierStrongBuy, conf: 95,
		},
		{
			name:    "bearish engulfing moderate",
			p:       models.Pattern{Kind: models.PatternBearishEngulfing, Strength: 55},
			snap:    models.IndicatorSnapshot{"rsi": models.Num(65)},
			regime:  models.RegimeRanging,
			quality: 65, tier: models.TierNeutral, conf: 50,
		},
		{
			name:    "dragonfly doji in downtrend is bullish",
			p:       models.Pattern{Kind: models.PatternDragonflyDoji, Strength: 75},
			regime:  models.RegimeTrendingDown,
			quality: 95, tier: models.TierStrongBuy, conf: 95,
		},
		{
			name:    "gravestone doji in uptrend is bearish",
			p:       models.Pattern{Kind: models.PatternGravestoneDoji, Strength: 75},
			regime:  models.RegimeTrendingUp,
			quality: 95, tier: models.TierStrongSell, conf: 95,
		},
		{
			name:    "standard doji stays neutral",
			p:       models.Pattern{Kind: models.PatternDoji, Strength: 60},
			regime:  models.RegimeTrendingUp,
			quality: 50, tier: models.TierNeutral, conf: 50,
		},
		{
			name:    "shooting star at overbought",
			p:       models.Pattern{Kind: models.PatternShootingStar, Strength: 60},
			snap:    models.IndicatorSnapshot{"rsi": models.Num(72)},
			regime:  models.RegimeRanging,
			quality: 85, tier: models.TierStrongSell, conf: 85,
		},
		{
			name:    "hammer normal",
			p:       models.Pattern{Kind: models.PatternHammer, Strength: 60},
			regime:  models.RegimeTrendingDown,
			quality: 80, tier: models.TierBuy, conf: 80,
		},
		{
			name:    "weak pattern",
			p:       models.Pattern{Kind: models.PatternBullishEngulfing, Strength: 48},
			quality: 48, tier: models.TierNoTrade, conf: 30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := r.EvaluateQuality(tt.p, tt.snap, tt.regime)
			assert.Equal(t, tt.quality, q.Quality)
			assert.Equal(t, tt.tier, q.Tier)
			assert.Equal(t, tt.conf, q.Confidence)
		})
	}
}
