package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeResult is the resolved outcome of a binary option.
type TradeResult string

const (
	ResultWin  TradeResult = "win"
	ResultLoss TradeResult = "loss"
)

func (r TradeResult) IsValid() bool { return r == ResultWin || r == ResultLoss }

// PerformanceRecord is one resolved trade. Records are append-only.
type PerformanceRecord struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Asset      string            `json:"asset"`
	Action     Action            `json:"action"`
	Result     TradeResult       `json:"result"`
	Profit     decimal.Decimal   `json:"profit"`
	Confidence float64           `json:"confidence"`
	StrategyID string            `json:"strategy_id,omitempty"`
	Regime     Regime            `json:"regime,omitempty"`
	Pattern    PatternKind       `json:"pattern,omitempty"`
	Indicators IndicatorSnapshot `json:"indicators,omitempty"`
}

// OutcomeStats is a win/loss aggregate over a slice of records.
type OutcomeStats struct {
	Trades int             `json:"trades"`
	Wins   int             `json:"wins"`
	Losses int             `json:"losses"`
	Profit decimal.Decimal `json:"profit"`
}

// Add folds one record in.
func (s *OutcomeStats) Add(r TradeResult, profit decimal.Decimal) {
	s.Trades++
	if r == ResultWin {
		s.Wins++
	} else {
		s.Losses++
	}
	s.Profit = s.Profit.Add(profit)
}

// WinRate in percent, 0 for an empty aggregate.
func (s OutcomeStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}

// HourStats pairs an hour of day with its aggregate.
type HourStats struct {
	Hour    int     `json:"hour"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"win_rate"`
}

// PerformanceSummary is the read model for dashboards.
type PerformanceSummary struct {
	TotalTrades   int             `json:"total_trades"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	WinRate       float64         `json:"win_rate"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	CurrentStreak int             `json:"current_streak"`
	StreakResult  TradeResult     `json:"streak_result,omitempty"`
	BestHours     []HourStats     `json:"best_hours,omitempty"`
	Buckets       map[int]float64 `json:"confidence_buckets,omitempty"`
}

// PerformanceBreakdown holds the calibrator aggregates keyed by dimension.
type PerformanceBreakdown struct {
	Hourly  map[int]OutcomeStats    `json:"hourly"`
	Buckets map[int]OutcomeStats    `json:"confidence_buckets"`
	Regimes map[Regime]OutcomeStats `json:"regimes"`
	Daily   map[string]OutcomeStats `json:"daily"`
}

// StrategyTrackRecord pairs the registry counters of a strategy with the
// trades the calibrator attributed to it.
type StrategyTrackRecord struct {
	StrategyID string              `json:"strategy_id"`
	Counters   StrategyPerformance `json:"counters"`
	Recorded   OutcomeStats        `json:"recorded"`
}
