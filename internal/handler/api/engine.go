package api

import (
	"net/http"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"
	"SignalForge/pkg/util"

	"github.com/labstack/echo/v4"
)

// Decide runs one decision cycle for the posted market state.
func (h *Handler) Decide(c echo.Context) error {
	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	in := usecase.DecisionInput{
		Asset:      req.Asset,
		Candles:    req.Candles,
		Indicators: models.SnapshotFromRaw(req.Indicators),
		Aligned:    req.Aligned,
		Now:        util.OrNow(req.Timestamp),
	}
	if len(req.Higher) > 0 {
		in.Higher = make(map[domrepo.Timeframe][]models.Candle, len(req.Higher))
		for k, cs := range req.Higher {
			tf := domrepo.Timeframe(k)
			if !domrepo.IsValidTimeframe(tf) {
				return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
					Code:    "ERR_TIMEFRAME",
					Field:   "higher",
					Message: "unsupported timeframe " + k,
				}})
			}
			in.Higher[tf] = cs
		}
	}

	d, err := h.engine.Decide(c.Request().Context(), in)
	if err != nil {
		return h.errorResponse(c, "decide", err)
	}
	return xhttp.SuccessResponse(c, d)
}

// RecordTrade feeds a resolved trade to every learner.
func (h *Handler) RecordTrade(c echo.Context) error {
	req := &models.TradeOutcome{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.outcomes.RecordOutcome(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, "record trade", err)
	}
	if len(res.Warnings) > 0 {
		h.logger.Warn("trade recorded with warnings",
			xlogger.String("id", res.Record.ID),
			xlogger.Strings("warnings", res.Warnings))
	}
	return xhttp.CreatedResponse(c, res)
}

// RegimeHistory returns the most recent regime classifications, newest last.
func (h *Handler) RegimeHistory(c echo.Context) error {
	req := &models.RegimeHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hist := h.regime.History()
	if req.Since != "" {
		since, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_TIME",
				Field:   "since",
				Message: "since must be RFC3339 or unix seconds",
			}})
		}
		kept := hist[:0]
		for _, r := range hist {
			if !r.DetectedAt.Before(since) {
				kept = append(kept, r)
			}
		}
		hist = kept
	}
	if len(hist) > req.Limit {
		hist = hist[len(hist)-req.Limit:]
	}
	return xhttp.ListResponse(c, hist, int64(len(hist)))
}

func (h *Handler) PerformanceSummary(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.calibrator.Summary())
}

// BestHours ranks UTC hours by win rate.
func (h *Handler) BestHours(c echo.Context) error {
	req := &models.BestHoursRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.calibrator.BestHours(req.MinTrades)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// PerformanceBreakdown returns the win and loss aggregates per UTC hour,
// confidence bucket, regime and day.
func (h *Handler) PerformanceBreakdown(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, models.PerformanceBreakdown{
		Hourly:  h.calibrator.HourlyPerformance(),
		Buckets: h.calibrator.BucketPerformance(),
		Regimes: h.calibrator.RegimePerformance(),
		Daily:   h.calibrator.DailyPerformance(),
	})
}

// RecentTrades returns the latest resolved trades, newest last.
func (h *Handler) RecentTrades(c echo.Context) error {
	req := &models.RecentTradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.calibrator.RecentRecords(req.Limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) LatestRegime(c echo.Context) error {
	rec, ok := h.regime.Latest()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no regime classified yet"))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *Handler) PatternPerformance(c echo.Context) error {
	rows := h.patterns.All()
	return xhttp.DataResponse(c, http.StatusOK, &xhttp.ListDataResponse{Rows: rows, Total: int64(len(rows))})
}
