package strategy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"SignalForge/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var ErrInvalidStrategy = errors.New("invalid strategy")

// FieldError is one failed rule on a strategy definition.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every failed rule. It unwraps to ErrInvalidStrategy.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidStrategy, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidStrategy }

func invalid(field, tag, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Tag: tag, Message: msg}}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("operator", func(fl validator.FieldLevel) bool {
		_, err := models.ParseOperator(fl.Field().String())
		return err == nil
	})
	return v
}

// Build applies defaults to spec, validates it and converts it to a
// Strategy without ID or timestamps.
func Build(spec models.StrategySpec) (*models.Strategy, error) {
	if len(spec.ConditionGroups) == 0 && len(spec.EntryConditions) > 0 {
		spec.ConditionGroups = []models.ConditionGroupSpec{{Conditions: spec.EntryConditions}}
	}
	spec.EntryConditions = nil

	if err := defaults.Set(&spec); err != nil {
		return nil, fmt.Errorf("apply strategy defaults: %w", err)
	}
	if err := validate.Struct(&spec); err != nil {
		return nil, toValidationError(err)
	}

	s := &models.Strategy{
		Name:               strings.TrimSpace(spec.Name),
		Description:        spec.Description,
		Priority:           spec.Priority,
		Action:             models.Action(spec.Action),
		AssetFilter:        spec.AssetFilter,
		TimeframeAlignment: spec.TimeframeAlignment,
		Active:             *spec.Active,
		TimeFilter: models.TimeFilter{
			Enabled:  spec.TimeFilter.Enabled,
			Timezone: spec.TimeFilter.Timezone,
		},
		RiskManagement: models.RiskManagement{
			MaxTradesPerDay:      *spec.RiskManagement.MaxTradesPerDay,
			MaxTradesPerHour:     spec.RiskManagement.MaxTradesPerHour,
			MaxConsecutiveLosses: *spec.RiskManagement.MaxConsecutiveLosses,
			StopOnDrawdown:       spec.RiskManagement.StopOnDrawdown,
			PositionSizePercent:  spec.RiskManagement.PositionSizePercent,
		},
		SignalStrength: models.SignalStrength{
			MinConfidence:    *spec.SignalStrength.MinConfidence,
			ConditionWeights: spec.SignalStrength.ConditionWeights,
		},
	}
	for _, r := range spec.TimeFilter.Ranges {
		s.TimeFilter.Ranges = append(s.TimeFilter.Ranges, models.HourRange{Start: r.Start, End: r.End})
	}
	for _, r := range spec.RegimeFilter {
		s.RegimeFilter = append(s.RegimeFilter, models.Regime(r))
	}

	var fields []FieldError
	for gi, g := range spec.ConditionGroups {
		group := models.ConditionGroup{Logic: models.Logic(g.Logic)}
		for ci, c := range g.Conditions {
			op, err := models.ParseOperator(c.Operator)
			if err != nil {
				return nil, invalid(fmt.Sprintf("condition_groups[%d].conditions[%d].operator", gi, ci), "operator", err.Error())
			}
			th := models.Threshold{Value: c.Value, Ref: strings.TrimSpace(c.Ref)}
			if th.Ref == "" && th.Value.IsZero() {
				fields = append(fields, FieldError{
					Field:   fmt.Sprintf("condition_groups[%d].conditions[%d].value", gi, ci),
					Tag:     "required",
					Message: fmt.Sprintf("condition %q needs a value or ref", c.Indicator),
				})
				continue
			}
			group.Conditions = append(group.Conditions, models.Condition{
				Indicator: strings.TrimSpace(c.Indicator),
				Operator:  op,
				Threshold: th,
				Weight:    *c.Weight,
				Action:    models.Action(c.Action),
			})
		}
		s.ConditionGroups = append(s.ConditionGroups, group)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return s, nil
}

func toValidationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out.Fields = append(out.Fields, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fieldMessage(field, fe),
		})
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, strings.ToLower(fe.Param()))
	case "operator":
		return fmt.Sprintf("%s: unknown operator %q", field, fe.Value())
	case "timezone":
		return fmt.Sprintf("%s: unknown timezone %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
