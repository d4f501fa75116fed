package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/strategy"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type PerformanceRecorder interface {
	Record(ctx context.Context, r models.PerformanceRecord) (models.PerformanceRecord, error)
}

type StrategyResultRecorder interface {
	RecordResult(ctx context.Context, id string, result models.TradeResult, profit decimal.Decimal, at time.Time) error
}

type PatternResultRecorder interface {
	Record(ctx context.Context, kind models.PatternKind, result models.TradeResult, profit decimal.Decimal, quality int, at time.Time) error
}

// OutcomeResult is the stored record plus non-fatal problems met on the way.
type OutcomeResult struct {
	Record   models.PerformanceRecord `json:"record"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// TradeOutcomes feeds resolved trades to the calibrator, the strategy
// registry and the pattern history.
type TradeOutcomes struct {
	perf       PerformanceRecorder
	strategies StrategyResultRecorder
	patterns   PatternResultRecorder
	metrics    domrepo.Metrics
	log        *logger.Logger
	validate   *validator.Validate
}

func NewTradeOutcomes(perf PerformanceRecorder, strategies StrategyResultRecorder, patterns PatternResultRecorder, m domrepo.Metrics, log *logger.Logger) *TradeOutcomes {
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TradeOutcomes{perf: perf, strategies: strategies, patterns: patterns, metrics: m, log: log, validate: validator.New()}
}

// RecordOutcome stores one resolved trade. Persistence failures and unknown
// strategies become warnings; the in-memory updates are kept.
func (u *TradeOutcomes) RecordOutcome(ctx context.Context, o models.TradeOutcome) (*OutcomeResult, error) {
	if err := u.validate.StructCtx(ctx, o); err != nil {
		return nil, fmt.Errorf("invalid trade outcome: %w", err)
	}
	at := util.OrNow(o.Timestamp)
	result := models.TradeResult(o.Result)

	rec := models.PerformanceRecord{
		Timestamp:  at,
		Asset:      o.Asset,
		Action:     models.Action(o.Action),
		Result:     result,
		Profit:     o.Profit,
		Confidence: o.Confidence,
		StrategyID: o.StrategyID,
		Regime:     models.Regime(o.Regime),
		Pattern:    models.PatternKind(o.Pattern),
	}
	if len(o.Indicators) > 0 {
		rec.Indicators = models.SnapshotFromRaw(o.Indicators)
	}

	res := &OutcomeResult{}
	stored, err := u.perf.Record(ctx, rec)
	if err != nil && !domrepo.IsPersistError(err) {
		return nil, fmt.Errorf("record performance: %w", err)
	}
	res.Record = stored
	u.warn(res, "performance", err)

	if o.StrategyID != "" && u.strategies != nil {
		err := u.strategies.RecordResult(ctx, o.StrategyID, result, o.Profit, at)
		switch {
		case errors.Is(err, strategy.ErrStrategyNotFound):
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown strategy %q", o.StrategyID))
		case err != nil && !domrepo.IsPersistError(err):
			return nil, fmt.Errorf("record strategy result: %w", err)
		default:
			u.warn(res, "strategy", err)
		}
	}

	if o.Pattern != "" && u.patterns != nil {
		err := u.patterns.Record(ctx, models.PatternKind(o.Pattern), result, o.Profit, o.Quality, at)
		if err != nil && !domrepo.IsPersistError(err) {
			return nil, fmt.Errorf("record pattern result: %w", err)
		}
		u.warn(res, "pattern", err)
	}

	u.metrics.RecordTrade(o.Result)
	u.log.Info("trade outcome recorded",
		logger.String("id", stored.ID),
		logger.String("asset", o.Asset),
		logger.String("result", o.Result),
		logger.Decimal("profit", o.Profit),
		logger.String("strategy", o.StrategyID),
		logger.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (u *TradeOutcomes) warn(res *OutcomeResult, what string, err error) {
	if err == nil {
		return
	}
	u.metrics.RecordError("persist_" + what)
	u.log.Warn("persist failed", logger.String("component", what), logger.Error(err))
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", what, err))
}
