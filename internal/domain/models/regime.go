package models

import "time"

// Regime is the coarse market state label.
type Regime string

const (
	RegimeTrendingUp     Regime = "trending_up"
	RegimeTrendingDown   Regime = "trending_down"
	RegimeRanging        Regime = "ranging"
	RegimeHighVolatility Regime = "high_volatility"
	RegimeLowVolatility  Regime = "low_volatility"
	RegimeUnknown        Regime = "unknown"
)

func (r Regime) IsValid() bool {
	switch r {
	case RegimeTrendingUp, RegimeTrendingDown, RegimeRanging,
		RegimeHighVolatility, RegimeLowVolatility, RegimeUnknown:
		return true
	}
	return false
}

// Trend is a direction reading on one timeframe.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// RegimeRecord is one classification, kept in the detector's history ring.
type RegimeRecord struct {
	Regime      Regime    `json:"regime"`
	Confidence  float64   `json:"confidence"`
	TrendSlope  float64   `json:"trend_slope"`
	Volatility  float64   `json:"volatility"`
	HigherTrend Trend     `json:"higher_trend"`
	Description string    `json:"description,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// TrendAlignment summarizes trend direction across timeframes.
type TrendAlignment struct {
	Trends         map[string]Trend `json:"trends"`
	Direction      Trend            `json:"direction"`
	Aligned        bool             `json:"aligned"`
	Strength       float64          `json:"strength"`
	Recommendation string           `json:"recommendation"`
}
