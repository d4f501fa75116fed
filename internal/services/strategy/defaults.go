package strategy

import (
	"fmt"
	"os"

	"SignalForge/internal/domain/models"

	"gopkg.in/yaml.v3"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// DefaultSpecs are the starter strategies seeded into an empty registry.
func DefaultSpecs() []models.StrategySpec {
	return []models.StrategySpec{
		{
			Name:        "RSI Oversold Scalp",
			Description: "Buy when RSI oversold + MACD bullish",
			Priority:    5,
			Action:      string(models.ActionCall),
			ConditionGroups: []models.ConditionGroupSpec{{
				Logic: string(models.LogicAND),
				Conditions: []models.ConditionSpec{
					{Indicator: "rsi", Operator: "<", Value: models.Num(30), Weight: floatPtr(1), Action: "call"},
					{Indicator: "macd_histogram", Operator: ">", Value: models.Num(0), Weight: floatPtr(1), Action: "call"},
				},
			}},
			RegimeFilter: []string{string(models.RegimeTrendingUp), string(models.RegimeRanging)},
			RiskManagement: models.RiskSpec{
				MaxTradesPerDay:      intPtr(50),
				MaxConsecutiveLosses: intPtr(3),
				PositionSizePercent:  2,
			},
			SignalStrength: models.SignalStrengthSpec{MinConfidence: floatPtr(70)},
			Active:         boolPtr(true),
		},
		{
			Name:        "Bollinger Band Breakout",
			Description: "Trade breakouts from Bollinger Bands",
			Priority:    5,
			Action:      string(models.ActionCall),
			ConditionGroups: []models.ConditionGroupSpec{{
				Logic: string(models.LogicAND),
				Conditions: []models.ConditionSpec{
					{Indicator: "price", Operator: ">", Value: models.Text("upper_bb"), Weight: floatPtr(1), Action: "call"},
					{Indicator: "volume_trend", Operator: "==", Value: models.Text("increasing"), Weight: floatPtr(1), Action: "call"},
				},
			}},
			RegimeFilter: []string{
				string(models.RegimeTrendingUp),
				string(models.RegimeTrendingDown),
				string(models.RegimeHighVolatility),
			},
			TimeframeAlignment: true,
			RiskManagement: models.RiskSpec{
				MaxTradesPerDay:      intPtr(30),
				MaxConsecutiveLosses: intPtr(4),
				PositionSizePercent:  1.5,
			},
			SignalStrength: models.SignalStrengthSpec{MinConfidence: floatPtr(75)},
			Active:         boolPtr(false),
		},
	}
}

// seedFile is the YAML layout of a strategy seed file.
type seedFile struct {
	Strategies []models.StrategySpec `yaml:"strategies"`
}

// ReadSeedFile parses strategy definitions from a YAML file.
func ReadSeedFile(path string) ([]models.StrategySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse strategy seed file: %w", err)
	}
	return f.Strategies, nil
}
