package api

import (
	"io"

	"SignalForge/internal/domain/models"
	xhttp "SignalForge/pkg/http"

	"github.com/labstack/echo/v4"
)

// strategyResponse carries a strategy and any persistence warning raised
// while storing it.
type strategyResponse struct {
	Strategy *models.Strategy `json:"strategy"`
	Warnings []string         `json:"warnings,omitempty"`
}

func (h *Handler) ListStrategies(c echo.Context) error {
	rows := h.registry.List()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) GetStrategy(c echo.Context) error {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return h.errorResponse(c, "get strategy", err)
	}
	return xhttp.SuccessResponse(c, s)
}

// CreateStrategy registers a definition. Defaults and rules are applied by
// the registry, so the body is only bound here.
func (h *Handler) CreateStrategy(c echo.Context) error {
	var spec models.StrategySpec
	if err := c.Bind(&spec); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("malformed strategy body").WithError(err))
	}
	s, err := h.registry.Create(c.Request().Context(), spec)
	return h.strategyResult(c, "create strategy", s, err, true)
}

// UpdateStrategy merges the body onto the stored definition. Top-level keys
// left out of the body keep their stored values.
func (h *Handler) UpdateStrategy(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("unreadable strategy body").WithError(err))
	}
	s, err := h.registry.Update(c.Request().Context(), c.Param("id"), func(spec *models.StrategySpec) error {
		return spec.MergeJSON(body)
	})
	return h.strategyResult(c, "update strategy", s, err, false)
}

func (h *Handler) DeleteStrategy(c echo.Context) error {
	warnings, err := persistWarnings(h.registry.Delete(c.Request().Context(), c.Param("id")))
	if err != nil {
		return h.errorResponse(c, "delete strategy", err)
	}
	if len(warnings) > 0 {
		return xhttp.SuccessResponse(c, map[string]interface{}{"warnings": warnings})
	}
	return xhttp.NoContentResponse(c)
}

func (h *Handler) CloneStrategy(c echo.Context) error {
	req := &models.CloneStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.registry.Clone(c.Request().Context(), c.Param("id"), req.Name)
	return h.strategyResult(c, "clone strategy", s, err, true)
}

func (h *Handler) SetActive(c echo.Context) error {
	req := &models.ActiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.registry.SetActive(c.Request().Context(), c.Param("id"), *req.Active)
	return h.strategyResult(c, "set strategy active", s, err, false)
}

// SetPriority clamps the requested priority to the registry's range.
func (h *Handler) SetPriority(c echo.Context) error {
	req := &models.PriorityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.registry.SetPriority(c.Request().Context(), c.Param("id"), req.Priority)
	return h.strategyResult(c, "set strategy priority", s, err, false)
}

func (h *Handler) StrategyTrackRecord(c echo.Context) error {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return h.errorResponse(c, "strategy performance", err)
	}
	return xhttp.SuccessResponse(c, models.StrategyTrackRecord{
		StrategyID: s.ID,
		Counters:   s.Performance,
		Recorded:   h.calibrator.StrategyPerformance(s.ID),
	})
}

func (h *Handler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.registry.Leaderboard(req.MinTrades)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) strategyResult(c echo.Context, op string, s *models.Strategy, err error, created bool) error {
	warnings, err := persistWarnings(err)
	if err != nil {
		return h.errorResponse(c, op, err)
	}
	body := strategyResponse{Strategy: s, Warnings: warnings}
	if created {
		return xhttp.CreatedResponse(c, body)
	}
	return xhttp.SuccessResponse(c, body)
}
