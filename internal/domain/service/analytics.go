package service

import (
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
)

// RegimeDetector classifies the market state of a candle window.
type RegimeDetector interface {
	Detect(base []models.Candle, higher [][]models.Candle, snap models.IndicatorSnapshot, now time.Time) models.RegimeRecord
	History() []models.RegimeRecord
}

// PatternAnalyzer finds candlestick formations and scores them in context.
type PatternAnalyzer interface {
	DetectMultiTimeframe(windows map[repository.Timeframe][]models.Candle) *models.Pattern
	EvaluateQuality(p models.Pattern, snap models.IndicatorSnapshot, regime models.Regime) models.PatternQuality
}

// StrategyEvaluator runs every active strategy against one cycle's context.
// Under the priority policy it stops at the first qualifying signal.
type StrategyEvaluator interface {
	EvaluateAll(ec models.EvaluationContext, policy models.ArbitrationPolicy) ([]models.Signal, []models.Rejection)
}

// ConfidenceCalibrator maps raw confidence to observed accuracy and gates trading.
type ConfidenceCalibrator interface {
	CalibratedConfidence(raw float64) float64
	ShouldTradeNow(now time.Time) (bool, string)
}
