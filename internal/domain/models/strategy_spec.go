package models

import (
	"encoding/json"
	"reflect"
	"strings"
)

// StrategySpec is the user-facing strategy definition, validated before it
// becomes a Strategy. Pointer fields distinguish "absent" from zero so that
// defaults only apply to absent values.
type StrategySpec struct {
	Name               string               `json:"name" yaml:"name" validate:"required,max=100"`
	Description        string               `json:"description" yaml:"description" validate:"max=500"`
	Priority           int                  `json:"priority" yaml:"priority" default:"5" validate:"gte=1,lte=10"`
	Action             string               `json:"action" yaml:"action" default:"auto" validate:"oneof=call put auto"`
	ConditionGroups    []ConditionGroupSpec `json:"condition_groups" yaml:"condition_groups" validate:"min=1,dive"`
	EntryConditions    []ConditionSpec      `json:"entry_conditions,omitempty" yaml:"entry_conditions" validate:"dive"`
	TimeFilter         TimeFilterSpec       `json:"time_filter" yaml:"time_filter"`
	AssetFilter        AssetFilter          `json:"asset_filter" yaml:"asset_filter"`
	RegimeFilter       []string             `json:"regime_filter" yaml:"regime_filter" validate:"dive,oneof=trending_up trending_down ranging high_volatility low_volatility unknown"`
	TimeframeAlignment bool                 `json:"timeframe_alignment" yaml:"timeframe_alignment"`
	RiskManagement     RiskSpec             `json:"risk_management" yaml:"risk_management"`
	SignalStrength     SignalStrengthSpec   `json:"signal_strength" yaml:"signal_strength"`
	Active             *bool                `json:"active" yaml:"active" default:"true"`
}

type ConditionGroupSpec struct {
	Logic      string          `json:"logic" yaml:"logic" default:"AND" validate:"oneof=AND OR"`
	Conditions []ConditionSpec `json:"conditions" yaml:"conditions" validate:"required,min=1,dive"`
}

type ConditionSpec struct {
	Indicator string         `json:"indicator" yaml:"indicator" validate:"required"`
	Operator  string         `json:"operator" yaml:"operator" validate:"required,operator"`
	Value     IndicatorValue `json:"value" yaml:"value"`
	Ref       string         `json:"ref,omitempty" yaml:"ref"`
	Weight    *float64       `json:"weight,omitempty" yaml:"weight" default:"1" validate:"omitempty,gte=0"`
	Action    string         `json:"action" yaml:"action" default:"call" validate:"oneof=call put"`
}

type TimeFilterSpec struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	Timezone string          `json:"timezone" yaml:"timezone" default:"UTC" validate:"timezone"`
	Ranges   []HourRangeSpec `json:"ranges" yaml:"ranges" validate:"dive"`
}

type HourRangeSpec struct {
	Start int `json:"start" yaml:"start" validate:"gte=0,lte=23"`
	End   int `json:"end" yaml:"end" validate:"gte=1,lte=24,gtfield=Start"`
}

type RiskSpec struct {
	MaxTradesPerDay      *int    `json:"max_trades_per_day" yaml:"max_trades_per_day" default:"50" validate:"omitempty,gte=0"`
	MaxTradesPerHour     int     `json:"max_trades_per_hour" yaml:"max_trades_per_hour" validate:"gte=0"`
	MaxConsecutiveLosses *int    `json:"max_consecutive_losses" yaml:"max_consecutive_losses" default:"3" validate:"omitempty,gte=0"`
	StopOnDrawdown       float64 `json:"stop_on_drawdown" yaml:"stop_on_drawdown" validate:"gte=0"`
	PositionSizePercent  float64 `json:"position_size_percent" yaml:"position_size_percent" default:"2" validate:"gte=0,lte=100"`
}

type SignalStrengthSpec struct {
	MinConfidence    *float64 `json:"min_confidence" yaml:"min_confidence" default:"70" validate:"omitempty,gte=0,lte=100"`
	ConditionWeights bool     `json:"condition_weights" yaml:"condition_weights"`
}

// SpecFromStrategy is the inverse of building a strategy, so updates start
// from the stored definition.
func SpecFromStrategy(s *Strategy) StrategySpec {
	active := s.Active
	maxDay := s.RiskManagement.MaxTradesPerDay
	maxLoss := s.RiskManagement.MaxConsecutiveLosses
	minConf := s.SignalStrength.MinConfidence

	spec := StrategySpec{
		Name:               s.Name,
		Description:        s.Description,
		Priority:           s.Priority,
		Action:             string(s.Action),
		AssetFilter:        s.AssetFilter,
		TimeframeAlignment: s.TimeframeAlignment,
		Active:             &active,
		TimeFilter: TimeFilterSpec{
			Enabled:  s.TimeFilter.Enabled,
			Timezone: s.TimeFilter.Timezone,
		},
		RiskManagement: RiskSpec{
			MaxTradesPerDay:      &maxDay,
			MaxTradesPerHour:     s.RiskManagement.MaxTradesPerHour,
			MaxConsecutiveLosses: &maxLoss,
			StopOnDrawdown:       s.RiskManagement.StopOnDrawdown,
			PositionSizePercent:  s.RiskManagement.PositionSizePercent,
		},
		SignalStrength: SignalStrengthSpec{
			MinConfidence:    &minConf,
			ConditionWeights: s.SignalStrength.ConditionWeights,
		},
	}
	for _, r := range s.TimeFilter.Ranges {
		spec.TimeFilter.Ranges = append(spec.TimeFilter.Ranges, HourRangeSpec{Start: r.Start, End: r.End})
	}
	for _, r := range s.RegimeFilter {
		spec.RegimeFilter = append(spec.RegimeFilter, string(r))
	}
	for _, g := range s.ConditionGroups {
		gs := ConditionGroupSpec{Logic: string(g.Logic)}
		for _, c := range g.Conditions {
			w := c.Weight
			gs.Conditions = append(gs.Conditions, ConditionSpec{
				Indicator: c.Indicator,
				Operator:  string(c.Operator),
				Value:     c.Value,
				Ref:       c.Ref,
				Weight:    &w,
				Action:    string(c.Action),
			})
		}
		spec.ConditionGroups = append(spec.ConditionGroups, gs)
	}
	return spec
}

// MergeJSON decodes a partial JSON definition onto s. Each top-level key
// present in patch replaces that field whole; absent keys keep their value.
// entry_conditions without condition_groups replaces the groups.
func (s *StrategySpec) MergeJSON(patch []byte) error {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(patch, &present); err != nil {
		return err
	}
	v := reflect.ValueOf(s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if _, ok := present[name]; ok {
			v.Field(i).Set(reflect.Zero(t.Field(i).Type))
		}
	}
	if _, ok := present["entry_conditions"]; ok {
		if _, ok := present["condition_groups"]; !ok {
			s.ConditionGroups = nil
		}
	}
	return json.Unmarshal(patch, s)
}
