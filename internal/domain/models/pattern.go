package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PatternKind names a candlestick formation.
type PatternKind string

const (
	PatternBullishEngulfing PatternKind = "bullish_engulfing"
	PatternBearishEngulfing PatternKind = "bearish_engulfing"
	PatternDoji             PatternKind = "doji"
	PatternDragonflyDoji    PatternKind = "dragonfly_doji"
	PatternGravestoneDoji   PatternKind = "gravestone_doji"
	PatternHammer           PatternKind = "hammer"
	PatternShootingStar     PatternKind = "shooting_star"
)

// Bias is the direction the formation points to.
func (k PatternKind) Bias() Trend {
	switch k {
	case PatternBullishEngulfing, PatternHammer, PatternDragonflyDoji:
		return TrendUp
	case PatternBearishEngulfing, PatternShootingStar, PatternGravestoneDoji:
		return TrendDown
	}
	return TrendNeutral
}

// Pattern is one detected formation on one timeframe.
type Pattern struct {
	Kind            PatternKind `json:"kind"`
	Timeframe       string      `json:"timeframe,omitempty"`
	Strength        int         `json:"strength"`
	BodyRatio       float64     `json:"body_ratio,omitempty"`
	ShadowRatio     float64     `json:"shadow_ratio,omitempty"`
	VolumeConfirmed bool        `json:"volume_confirmed,omitempty"`
	IndecisionScore int         `json:"indecision_score,omitempty"`
	Description     string      `json:"description,omitempty"`
}

// PatternTier is the trade recommendation derived from pattern quality.
type PatternTier string

const (
	TierStrongBuy  PatternTier = "strong_buy"
	TierBuy        PatternTier = "buy"
	TierNeutral    PatternTier = "neutral"
	TierSell       PatternTier = "sell"
	TierStrongSell PatternTier = "strong_sell"
	TierNoTrade    PatternTier = "no_trade"
)

// PatternQuality is a pattern scored against indicator and regime context.
type PatternQuality struct {
	Pattern    Pattern     `json:"pattern"`
	Quality    int         `json:"quality"`
	Tier       PatternTier `json:"tier"`
	Confidence int         `json:"confidence"`
	Reasons    []string    `json:"reasons,omitempty"`
}

// PatternTrade is one resolved trade attributed to a pattern.
type PatternTrade struct {
	Timestamp time.Time       `json:"timestamp"`
	Result    TradeResult     `json:"result"`
	Profit    decimal.Decimal `json:"profit"`
	Quality   int             `json:"quality"`
}

// PatternStats accumulates outcomes per pattern kind.
type PatternStats struct {
	Kind        PatternKind     `json:"kind"`
	Trades      int             `json:"trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	AvgQuality  float64         `json:"avg_quality"`
	Recent      []PatternTrade  `json:"recent,omitempty"`
}

func (s PatternStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}
