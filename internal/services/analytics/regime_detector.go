package analytics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
)

const (
	regimeMinCandles  = 20
	slopeWindow       = 50
	volatilityWindow  = 20
	htfWindow         = 20
	regimeHistorySize = 100
)

// RegimeDetector classifies the market state and keeps the last classifications.
type RegimeDetector struct {
	mu      sync.RWMutex
	history []models.RegimeRecord
}

func NewRegimeDetector() *RegimeDetector {
	return &RegimeDetector{history: make([]models.RegimeRecord, 0, regimeHistorySize)}
}

// Detect classifies base (1m) candles. higher holds optional higher timeframe
// windows; snap may be nil.
func (d *RegimeDetector) Detect(base []models.Candle, higher [][]models.Candle, snap models.IndicatorSnapshot, now time.Time) models.RegimeRecord {
	rec := classify(base, higher, snap)
	rec.DetectedAt = now
	d.remember(rec)
	return rec
}

func classify(base []models.Candle, higher [][]models.Candle, snap models.IndicatorSnapshot) models.RegimeRecord {
	if len(base) < regimeMinCandles {
		return models.RegimeRecord{
			Regime:      models.RegimeUnknown,
			HigherTrend: models.TrendNeutral,
			Description: "insufficient data",
		}
	}

	prices := models.Closes(features.Tail(base, slopeWindow))
	slope := features.NormalizedSlope(prices)
	vol := volatility(features.Tail(base, volatilityWindow))
	ranging := isRanging(features.Tail(prices, volatilityWindow), vol)
	htf := higherTimeframeTrend(higher)
	bias := indicatorBias(snap)

	rec := models.RegimeRecord{
		TrendSlope:  slope,
		Volatility:  vol,
		HigherTrend: htf,
	}

	switch {
	case vol > 0.7:
		rec.Regime, rec.Confidence = models.RegimeHighVolatility, 85
		rec.Description = fmt.Sprintf("high volatility (%.1f%%), reduce position size", vol*100)
		return rec
	case ranging || vol < 0.2:
		rec.Regime, rec.Confidence = models.RegimeLowVolatility, 80
		rec.Description = fmt.Sprintf("low volatility or tight range (%.1f%%), wait for breakout", vol*100)
		return rec
	}

	bull, bear := 0, 0
	switch {
	case slope > 0.3:
		bull += 2
	case slope > 0.1:
		bull++
	case slope < -0.3:
		bear += 2
	case slope < -0.1:
		bear++
	}
	switch htf {
	case models.TrendUp:
		bull += 2
	case models.TrendDown:
		bear += 2
	}
	switch bias {
	case models.TrendUp:
		bull++
	case models.TrendDown:
		bear++
	}

	switch {
	case bull >= 3 && bull > bear:
		rec.Regime = models.RegimeTrendingUp
		rec.Confidence = min(95, 60+10*float64(bull))
		rec.Description = fmt.Sprintf("uptrend (slope %.2f, higher timeframe %s), favor calls", slope, htf)
	case bear >= 3 && bear > bull:
		rec.Regime = models.RegimeTrendingDown
		rec.Confidence = min(95, 60+10*float64(bear))
		rec.Description = fmt.Sprintf("downtrend (slope %.2f, higher timeframe %s), favor puts", slope, htf)
	default:
		rec.Regime, rec.Confidence = models.RegimeRanging, 70
		rec.Description = fmt.Sprintf("mixed signals (slope %.2f), mean reversion", slope)
	}
	return rec
}

// volatility is the mean true range as a percent of the last close, scaled so
// that 5% maps to 1.
func volatility(cs []models.Candle) float64 {
	if len(cs) < 2 {
		return 0
	}
	last := cs[len(cs)-1].Close
	if last <= 0 {
		return 0
	}
	return features.Clamp(features.MeanTrueRange(cs)/last*100/5, 0, 1)
}

func isRanging(prices []float64, vol float64) bool {
	if len(prices) < volatilityWindow {
		return false
	}
	lo, hi := features.MinMax(prices)
	avg := features.Mean(prices)
	if avg <= 0 {
		return false
	}
	return (hi-lo)/avg*100 < 1 && vol < 0.3
}

func higherTimeframeTrend(windows [][]models.Candle) models.Trend {
	up, down := 0, 0
	for _, w := range windows {
		if len(w) < htfWindow {
			continue
		}
		s := features.NormalizedSlope(models.Closes(features.Tail(w, htfWindow)))
		switch {
		case s > 0.2:
			up++
		case s < -0.2:
			down++
		}
	}
	switch {
	case up > down:
		return models.TrendUp
	case down > up:
		return models.TrendDown
	}
	return models.TrendNeutral
}

// indicatorBias reads ema_cross and supertrend. A supertrend that disagrees
// with ema_cross cancels it out.
func indicatorBias(snap models.IndicatorSnapshot) models.Trend {
	trend := models.TrendNeutral
	switch {
	case strings.EqualFold(snap.Label("ema_cross"), "bullish"):
		trend = models.TrendUp
	case strings.EqualFold(snap.Label("ema_cross"), "bearish"):
		trend = models.TrendDown
	}
	switch {
	case strings.EqualFold(snap.Label("supertrend"), "buy"):
		if trend == models.TrendDown {
			trend = models.TrendNeutral
		} else {
			trend = models.TrendUp
		}
	case strings.EqualFold(snap.Label("supertrend"), "sell"):
		if trend == models.TrendUp {
			trend = models.TrendNeutral
		} else {
			trend = models.TrendDown
		}
	}
	return trend
}

func (d *RegimeDetector) remember(rec models.RegimeRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.history) == regimeHistorySize {
		copy(d.history, d.history[1:])
		d.history = d.history[:regimeHistorySize-1]
	}
	d.history = append(d.history, rec)
}

// History returns a copy of the retained records, oldest first.
func (d *RegimeDetector) History() []models.RegimeRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.RegimeRecord(nil), d.history...)
}

// Latest returns the most recent classification.
func (d *RegimeDetector) Latest() (models.RegimeRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.history) == 0 {
		return models.RegimeRecord{}, false
	}
	return d.history[len(d.history)-1], true
}

// TradingRecommendation says whether action suits regime.
func TradingRecommendation(regime models.Regime, action models.Action) (bool, string) {
	switch regime {
	case models.RegimeLowVolatility:
		return false, "low volatility, wait for a clearer setup"
	case models.RegimeHighVolatility:
		return true, "high volatility, reduce position size by 50%"
	case models.RegimeTrendingUp:
		if action == models.ActionCall {
			return true, "call aligns with uptrend"
		}
		return false, "put against uptrend"
	case models.RegimeTrendingDown:
		if action == models.ActionPut {
			return true, "put aligns with downtrend"
		}
		return false, "call against downtrend"
	case models.RegimeRanging:
		return true, "ranging market, expect quick reversals"
	}
	return true, "regime unknown, proceed with caution"
}

var _ domsvc.RegimeDetector = (*RegimeDetector)(nil)
