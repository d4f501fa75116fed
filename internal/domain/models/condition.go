package models

import (
	"fmt"
	"strings"
)

// Operator is a comparison used by a strategy condition.
type Operator string

const (
	OpGT       Operator = ">"
	OpLT       Operator = "<"
	OpGTE      Operator = ">="
	OpLTE      Operator = "<="
	OpEQ       Operator = "=="
	OpNEQ      Operator = "!="
	OpContains Operator = "contains"
)

// ParseOperator rejects anything outside the closed operator set.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ, OpNEQ, OpContains:
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// IsOrdering reports whether the operator compares numerically.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpGT, OpLT, OpGTE, OpLTE:
		return true
	}
	return false
}

// Action is the trade direction. ActionAuto is only valid on a strategy.
type Action string

const (
	ActionCall Action = "call"
	ActionPut  Action = "put"
	ActionAuto Action = "auto"
)

// Trend maps a direction to the trend it bets on.
func (a Action) Trend() Trend {
	switch a {
	case ActionCall:
		return TrendUp
	case ActionPut:
		return TrendDown
	}
	return TrendNeutral
}

// Logic combines the conditions of a group.
type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

// Threshold is the right-hand side of a condition: a literal, or a reference
// to another indicator. A literal label that names a snapshot key is treated
// as a reference at resolve time.
type Threshold struct {
	Value IndicatorValue `json:"value" yaml:"value"`
	Ref   string         `json:"ref,omitempty" yaml:"ref,omitempty"`
}

func Literal(v IndicatorValue) Threshold { return Threshold{Value: v} }

func RefTo(key string) Threshold { return Threshold{Ref: key} }

// Condition is one indicator comparison.
type Condition struct {
	Indicator string   `json:"indicator" yaml:"indicator"`
	Operator  Operator `json:"operator" yaml:"operator"`
	Threshold `yaml:",inline"`
	Weight    float64 `json:"weight" yaml:"weight"`
	Action    Action  `json:"action" yaml:"action"`
}

func (c Condition) String() string {
	rhs := c.Value.String()
	if c.Ref != "" {
		rhs = c.Ref
	}
	return fmt.Sprintf("%s %s %s", c.Indicator, c.Operator, rhs)
}

// ConditionGroup is a set of conditions joined by one logic operator.
type ConditionGroup struct {
	Logic      Logic       `json:"logic" yaml:"logic"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}
