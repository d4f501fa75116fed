package strategy

import (
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/util"

	"github.com/shopspring/decimal"
)

// Filter stages, in evaluation order.
const (
	StageRegime     = "regime"
	StageAlignment  = "alignment"
	StageTime       = "time"
	StageAsset      = "asset"
	StageRisk       = "risk"
	StageConditions = "conditions"
	StageConfidence = "confidence"
)

type filterFunc func(s *models.Strategy, ec models.EvaluationContext) (bool, string)

var filterChain = []struct {
	stage string
	check filterFunc
}{
	{StageRegime, regimeAllowed},
	{StageAlignment, alignmentAllowed},
	{StageTime, timeAllowed},
	{StageAsset, assetAllowed},
	{StageRisk, riskAllowed},
}

// applyFilters returns the first failing stage and its reason.
func applyFilters(s *models.Strategy, ec models.EvaluationContext) (string, string, bool) {
	for _, f := range filterChain {
		if ok, reason := f.check(s, ec); !ok {
			return f.stage, reason, false
		}
	}
	return "", "", true
}

func regimeAllowed(s *models.Strategy, ec models.EvaluationContext) (bool, string) {
	if len(s.RegimeFilter) == 0 {
		return true, ""
	}
	for _, r := range s.RegimeFilter {
		if r == ec.Regime {
			return true, ""
		}
	}
	return false, fmt.Sprintf("regime %s not in %v", ec.Regime, s.RegimeFilter)
}

func alignmentAllowed(s *models.Strategy, ec models.EvaluationContext) (bool, string) {
	if s.TimeframeAlignment && !ec.Aligned {
		return false, "timeframes not aligned"
	}
	return true, ""
}

func timeAllowed(s *models.Strategy, ec models.EvaluationContext) (bool, string) {
	tf := s.TimeFilter
	if !tf.Enabled || len(tf.Ranges) == 0 {
		return true, ""
	}
	loc := time.UTC
	if tf.Timezone != "" {
		l, err := time.LoadLocation(tf.Timezone)
		if err != nil {
			return false, fmt.Sprintf("unknown timezone %q", tf.Timezone)
		}
		loc = l
	}
	hour := ec.Now.In(loc).Hour()
	for _, r := range tf.Ranges {
		if hour >= r.Start && hour < r.End {
			return true, ""
		}
	}
	return false, fmt.Sprintf("hour %d %s outside trading hours", hour, loc)
}

func assetAllowed(s *models.Strategy, ec models.EvaluationContext) (bool, string) {
	af := s.AssetFilter
	if !af.Enabled {
		return true, ""
	}
	if len(af.Whitelist) > 0 && !util.ContainsFold(af.Whitelist, ec.Asset) {
		return false, fmt.Sprintf("asset %s not whitelisted", ec.Asset)
	}
	if util.ContainsFold(af.Blacklist, ec.Asset) {
		return false, fmt.Sprintf("asset %s blacklisted", ec.Asset)
	}
	return true, ""
}

func riskAllowed(s *models.Strategy, ec models.EvaluationContext) (bool, string) {
	rm, perf := s.RiskManagement, s.Performance
	today, hour := effectiveCounters(perf, ec.Now)

	if rm.MaxTradesPerDay > 0 && today >= rm.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d)", rm.MaxTradesPerDay)
	}
	if rm.MaxTradesPerHour > 0 && hour >= rm.MaxTradesPerHour {
		return false, fmt.Sprintf("hourly trade limit reached (%d)", rm.MaxTradesPerHour)
	}
	if rm.MaxConsecutiveLosses > 0 && perf.ConsecutiveLosses >= rm.MaxConsecutiveLosses {
		return false, fmt.Sprintf("%d consecutive losses", perf.ConsecutiveLosses)
	}
	if rm.StopOnDrawdown > 0 && perf.Drawdown().GreaterThanOrEqual(decimal.NewFromFloat(rm.StopOnDrawdown)) {
		return false, fmt.Sprintf("drawdown %s reached stop %g", perf.Drawdown().StringFixed(2), rm.StopOnDrawdown)
	}
	return true, ""
}

// effectiveCounters treats the stored day/hour counters as zero once now is
// past the day/hour of the last trade.
func effectiveCounters(p models.StrategyPerformance, now time.Time) (today, hour int) {
	if p.LastTradeTime == nil {
		return 0, 0
	}
	last := *p.LastTradeTime
	if util.SameDay(last, now) {
		today = p.TradesToday
	}
	if util.SameHour(last, now) {
		hour = p.TradesThisHour
	}
	return today, hour
}
