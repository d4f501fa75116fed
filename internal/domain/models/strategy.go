package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HourRange is a half-open [Start, End) window of hours of day.
type HourRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// TimeFilter restricts a strategy to hours of the day in a timezone.
type TimeFilter struct {
	Enabled  bool        `json:"enabled" yaml:"enabled"`
	Timezone string      `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Ranges   []HourRange `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// AssetFilter restricts a strategy to a set of instruments.
type AssetFilter struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Whitelist []string `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Blacklist []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
}

// RiskManagement caps how often a strategy may fire. Zero means no cap.
type RiskManagement struct {
	MaxTradesPerDay      int     `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	MaxTradesPerHour     int     `json:"max_trades_per_hour" yaml:"max_trades_per_hour"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	StopOnDrawdown       float64 `json:"stop_on_drawdown" yaml:"stop_on_drawdown"`
	PositionSizePercent  float64 `json:"position_size_percent" yaml:"position_size_percent"`
}

// SignalStrength holds the confidence gate.
type SignalStrength struct {
	MinConfidence    float64 `json:"min_confidence" yaml:"min_confidence"`
	ConditionWeights bool    `json:"condition_weights" yaml:"condition_weights"`
}

// StrategyPerformance are the rolling counters updated by recorded results.
type StrategyPerformance struct {
	TotalTrades       int             `json:"total_trades"`
	Wins              int             `json:"wins"`
	Losses            int             `json:"losses"`
	WinRate           float64         `json:"win_rate"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	AvgProfit         decimal.Decimal `json:"avg_profit"`
	PeakProfit        decimal.Decimal `json:"peak_profit"`
	MaxDrawdown       decimal.Decimal `json:"max_drawdown"`
	TradesToday       int             `json:"trades_today"`
	TradesThisHour    int             `json:"trades_this_hour"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	LastTradeTime     *time.Time      `json:"last_trade_time,omitempty"`
}

// Drawdown is the distance from the best cumulative profit seen.
func (p StrategyPerformance) Drawdown() decimal.Decimal {
	return p.PeakProfit.Sub(p.TotalProfit)
}

// Strategy is a user-defined rule set producing call/put signals.
type Strategy struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Priority           int                 `json:"priority"`
	Action             Action              `json:"action"`
	ConditionGroups    []ConditionGroup    `json:"condition_groups"`
	TimeFilter         TimeFilter          `json:"time_filter"`
	AssetFilter        AssetFilter         `json:"asset_filter"`
	RegimeFilter       []Regime            `json:"regime_filter,omitempty"`
	TimeframeAlignment bool                `json:"timeframe_alignment"`
	RiskManagement     RiskManagement      `json:"risk_management"`
	SignalStrength     SignalStrength      `json:"signal_strength"`
	Active             bool                `json:"active"`
	Performance        StrategyPerformance `json:"performance"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	ClonedFrom         string              `json:"cloned_from,omitempty"`
}

// Copy returns a deep copy safe to hand out of the registry.
func (s *Strategy) Copy() *Strategy {
	out := *s
	out.ConditionGroups = make([]ConditionGroup, len(s.ConditionGroups))
	for i, g := range s.ConditionGroups {
		out.ConditionGroups[i] = ConditionGroup{
			Logic:      g.Logic,
			Conditions: append([]Condition(nil), g.Conditions...),
		}
	}
	out.TimeFilter.Ranges = append([]HourRange(nil), s.TimeFilter.Ranges...)
	out.AssetFilter.Whitelist = append([]string(nil), s.AssetFilter.Whitelist...)
	out.AssetFilter.Blacklist = append([]string(nil), s.AssetFilter.Blacklist...)
	out.RegimeFilter = append([]Regime(nil), s.RegimeFilter...)
	if s.Performance.LastTradeTime != nil {
		t := *s.Performance.LastTradeTime
		out.Performance.LastTradeTime = &t
	}
	return &out
}
