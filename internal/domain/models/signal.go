package models

import "time"

// Signal is a candidate trade produced by one strategy. Signals are never persisted.
type Signal struct {
	StrategyID           string   `json:"strategy_id"`
	StrategyName         string   `json:"strategy_name"`
	Action               Action   `json:"action"`
	Confidence           float64  `json:"confidence"`
	CalibratedConfidence float64  `json:"calibrated_confidence"`
	Priority             int      `json:"priority"`
	PositionSizePercent  float64  `json:"position_size_percent,omitempty"`
	Reasons              []string `json:"reasons,omitempty"`
}

// ArbitrationPolicy selects how candidate signals are reduced.
type ArbitrationPolicy string

const (
	PolicyPriority ArbitrationPolicy = "priority"
	PolicyAll      ArbitrationPolicy = "all"
	PolicyVoting   ArbitrationPolicy = "voting"
	PolicyWeighted ArbitrationPolicy = "weighted"
)

func (p ArbitrationPolicy) IsValid() bool {
	switch p {
	case PolicyPriority, PolicyAll, PolicyVoting, PolicyWeighted:
		return true
	}
	return false
}

// DecisionStatus is the outcome of a decision cycle.
type DecisionStatus string

const (
	DecisionSignal   DecisionStatus = "signal"
	DecisionNoSignal DecisionStatus = "no_signal"
	DecisionBlocked  DecisionStatus = "blocked"
)

// Rejection explains why a strategy produced no signal.
type Rejection struct {
	StrategyID string `json:"strategy_id"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// Decision is the result of one decision cycle.
type Decision struct {
	Asset      string            `json:"asset"`
	Timestamp  time.Time         `json:"timestamp"`
	Status     DecisionStatus    `json:"status"`
	Policy     ArbitrationPolicy `json:"policy"`
	Signals    []Signal          `json:"signals"`
	Candidates []Signal          `json:"candidates,omitempty"`
	Rejections []Rejection       `json:"rejections,omitempty"`
	Regime     RegimeRecord      `json:"regime"`
	Alignment  TrendAlignment    `json:"alignment"`
	Pattern    *PatternQuality   `json:"pattern,omitempty"`
	VetoReason string            `json:"veto_reason,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// EvaluationContext is the resolved per-cycle input shared by all strategies.
type EvaluationContext struct {
	Asset    string
	Snapshot IndicatorSnapshot
	Regime   Regime
	Aligned  bool
	Now      time.Time
}
