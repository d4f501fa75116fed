package api

import (
	"errors"
	"strings"

	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/performance"
	"SignalForge/internal/services/strategy"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler exposes the decision engine and its stores over HTTP.
type Handler struct {
	logger     *xlogger.Logger
	engine     *usecase.DecisionEngine
	outcomes   *usecase.TradeOutcomes
	registry   *strategy.Registry
	regime     *analytics.RegimeDetector
	calibrator *performance.Calibrator
	patterns   *analytics.PatternHistory
}

func NewHandler(
	logger *xlogger.Logger,
	engine *usecase.DecisionEngine,
	outcomes *usecase.TradeOutcomes,
	registry *strategy.Registry,
	regime *analytics.RegimeDetector,
	calibrator *performance.Calibrator,
	patterns *analytics.PatternHistory,
) *Handler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Handler{
		logger:     logger,
		engine:     engine,
		outcomes:   outcomes,
		registry:   registry,
		regime:     regime,
		calibrator: calibrator,
		patterns:   patterns,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/decide", h.Decide)
	g.POST("/trades", h.RecordTrade)

	s := g.Group("/strategies")
	s.GET("", h.ListStrategies)
	s.POST("", h.CreateStrategy)
	s.GET("/leaderboard", h.Leaderboard)
	s.GET("/:id", h.GetStrategy)
	s.PUT("/:id", h.UpdateStrategy)
	s.DELETE("/:id", h.DeleteStrategy)
	s.POST("/:id/clone", h.CloneStrategy)
	s.POST("/:id/active", h.SetActive)
	s.POST("/:id/priority", h.SetPriority)
	s.GET("/:id/performance", h.StrategyTrackRecord)

	g.GET("/regime/history", h.RegimeHistory)
	g.GET("/regime/latest", h.LatestRegime)
	g.GET("/performance/summary", h.PerformanceSummary)
	g.GET("/performance/best-hours", h.BestHours)
	g.GET("/performance/breakdown", h.PerformanceBreakdown)
	g.GET("/performance/recent", h.RecentTrades)
	g.GET("/patterns/performance", h.PatternPerformance)
}

// errorResponse maps domain errors to status codes. Anything unknown is
// logged and answered with 500.
func (h *Handler) errorResponse(c echo.Context, op string, err error) error {
	var verr *strategy.ValidationError
	if errors.As(err, &verr) {
		out := make([]xhttp.ValidationError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			ve := xhttp.ValidationError{Code: "ERR_" + strings.ToUpper(f.Tag), Field: f.Field, Message: f.Message}
			if f.Param != "" {
				ve.Params = map[string]interface{}{"param": f.Param}
			}
			out = append(out, ve)
		}
		return xhttp.BadRequestResponse(c, out)
	}
	var fe validator.ValidationErrors
	if errors.As(err, &fe) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	switch {
	case errors.Is(err, strategy.ErrStrategyNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, strategy.ErrDuplicateStrategy):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	h.logger.Error(op+" failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError(op+" failed").WithError(err))
}

// persistWarnings splits a persistence failure, which leaves the in-memory
// change applied, from a real error.
func persistWarnings(err error) ([]string, error) {
	if err == nil {
		return nil, nil
	}
	if domrepo.IsPersistError(err) {
		return []string{err.Error()}, nil
	}
	return nil, err
}

