package strategy

import (
	"fmt"
	"strings"

	"SignalForge/internal/domain/models"
)

// Outcome of a single condition against a snapshot.
type Outcome string

const (
	OutcomeMet     Outcome = "met"
	OutcomeNotMet  Outcome = "not_met"
	OutcomeMissing Outcome = "missing"
	OutcomeInvalid Outcome = "invalid"
)

// ConditionResult is one evaluated condition.
type ConditionResult struct {
	Condition models.Condition
	Outcome   Outcome
	Actual    models.IndicatorValue
	Expected  models.IndicatorValue
}

func (r ConditionResult) Met() bool { return r.Outcome == OutcomeMet }

// Describe renders the condition with the values it was checked against.
func (r ConditionResult) Describe() string {
	switch r.Outcome {
	case OutcomeMissing:
		return fmt.Sprintf("%s: missing", r.Condition)
	case OutcomeInvalid:
		return fmt.Sprintf("%s: invalid", r.Condition)
	}
	c := r.Condition
	return fmt.Sprintf("%s %s %s (%s=%s)", c.Indicator, c.Operator, r.Expected, c.Indicator, r.Actual)
}

// GroupResult is one evaluated condition group.
type GroupResult struct {
	Logic      models.Logic
	Passed     bool
	Confidence float64
	Results    []ConditionResult
}

// ResolveThreshold returns the right-hand value of a condition. An explicit
// Ref, or a label that names a snapshot key, reads from the snapshot.
func ResolveThreshold(th models.Threshold, snap models.IndicatorSnapshot) (models.IndicatorValue, bool) {
	if th.Ref != "" {
		return snap.Get(th.Ref)
	}
	if th.Value.IsZero() {
		return models.IndicatorValue{}, false
	}
	if !th.Value.IsNumeric() {
		if v, ok := snap.Get(th.Value.String()); ok {
			return v, true
		}
	}
	return th.Value, true
}

// EvaluateCondition never fails: absent data is missing, uncoercible data
// is invalid, neither counts as met.
func EvaluateCondition(c models.Condition, snap models.IndicatorSnapshot) ConditionResult {
	res := ConditionResult{Condition: c, Outcome: OutcomeMissing}
	actual, ok := snap.Get(c.Indicator)
	if !ok || actual.IsZero() {
		return res
	}
	expected, ok := ResolveThreshold(c.Threshold, snap)
	if !ok {
		return res
	}
	res.Actual, res.Expected = actual, expected

	met, valid := compare(c.Operator, actual, expected)
	switch {
	case !valid:
		res.Outcome = OutcomeInvalid
	case met:
		res.Outcome = OutcomeMet
	default:
		res.Outcome = OutcomeNotMet
	}
	return res
}

func compare(op models.Operator, lhs, rhs models.IndicatorValue) (met, valid bool) {
	if op.IsOrdering() {
		a, okA := lhs.Float()
		b, okB := rhs.Float()
		if !okA || !okB {
			return false, false
		}
		switch op {
		case models.OpGT:
			return a > b, true
		case models.OpLT:
			return a < b, true
		case models.OpGTE:
			return a >= b, true
		case models.OpLTE:
			return a <= b, true
		}
	}

	a, b := strings.ToLower(lhs.String()), strings.ToLower(rhs.String())
	switch op {
	case models.OpEQ:
		return a == b, true
	case models.OpNEQ:
		return a != b, true
	case models.OpContains:
		return strings.Contains(a, b), true
	}
	return false, false
}

// EvaluateGroup applies the group logic. With weighted set the confidence is
// the met share of total weight, otherwise the met share of the count.
func EvaluateGroup(g models.ConditionGroup, snap models.IndicatorSnapshot, weighted bool) GroupResult {
	res := GroupResult{Logic: g.Logic, Results: make([]ConditionResult, 0, len(g.Conditions))}
	if len(g.Conditions) == 0 {
		return res
	}

	var met int
	var metWeight, totalWeight float64
	for _, c := range g.Conditions {
		r := EvaluateCondition(c, snap)
		res.Results = append(res.Results, r)
		totalWeight += c.Weight
		if r.Met() {
			met++
			metWeight += c.Weight
		}
	}

	if g.Logic == models.LogicOR {
		res.Passed = met > 0
	} else {
		res.Passed = met == len(g.Conditions)
	}

	if weighted {
		if totalWeight > 0 {
			res.Confidence = metWeight / totalWeight * 100
		}
	} else {
		res.Confidence = float64(met) / float64(len(g.Conditions)) * 100
	}
	return res
}

// impliedAction is the majority action over met conditions of passing
// groups. Ties go to the first met condition in declaration order.
func impliedAction(groups []GroupResult) (models.Action, bool) {
	var calls, puts int
	var first models.Action
	for _, g := range groups {
		if !g.Passed {
			continue
		}
		for _, r := range g.Results {
			if !r.Met() {
				continue
			}
			a := r.Condition.Action
			if a != models.ActionPut {
				a = models.ActionCall
			}
			if first == "" {
				first = a
			}
			if a == models.ActionCall {
				calls++
			} else {
				puts++
			}
		}
	}
	switch {
	case first == "":
		return "", false
	case calls > puts:
		return models.ActionCall, true
	case puts > calls:
		return models.ActionPut, true
	}
	return first, true
}
