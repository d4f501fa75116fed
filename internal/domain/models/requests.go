package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requests for the engine HTTP endpoints and the trade-outcome topic.

type DecideRequest struct {
	Asset      string                 `json:"asset" validate:"required"`
	Candles    []Candle               `json:"candles"`
	Higher     map[string][]Candle    `json:"higher,omitempty"`
	Indicators map[string]interface{} `json:"indicators"`
	Aligned    *bool                  `json:"aligned,omitempty"`
	Timestamp  *time.Time             `json:"timestamp,omitempty"`
}

// TradeOutcome reports a resolved trade back to the engine.
type TradeOutcome struct {
	Asset      string                 `json:"asset" validate:"required"`
	Action     string                 `json:"action" validate:"required,oneof=call put"`
	Result     string                 `json:"result" validate:"required,oneof=win loss"`
	Profit     decimal.Decimal        `json:"profit"`
	Confidence float64                `json:"confidence" validate:"gte=0,lte=100"`
	StrategyID string                 `json:"strategy_id"`
	Regime     string                 `json:"regime"`
	Pattern    string                 `json:"pattern"`
	Quality    int                    `json:"quality" validate:"gte=0,lte=100"`
	Timestamp  *time.Time             `json:"timestamp,omitempty"`
	Indicators map[string]interface{} `json:"indicators,omitempty"`
}

type CloneStrategyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type PriorityRequest struct {
	Priority int `json:"priority"`
}

type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type LeaderboardRequest struct {
	MinTrades int `query:"min_trades" json:"min_trades" default:"10" validate:"gte=0"`
}

type RegimeHistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=100"`
	// Since is RFC3339 or unix seconds; older records are skipped.
	Since string `query:"since" json:"since"`
}

type BestHoursRequest struct {
	MinTrades int `query:"min_trades" json:"min_trades" default:"10" validate:"gte=1"`
}

type RecentTradesRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
