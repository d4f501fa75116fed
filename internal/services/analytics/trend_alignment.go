package analytics

import (
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/features"
)

var alignmentFrames = []domrepo.Timeframe{domrepo.TF1m, domrepo.TF5m, domrepo.TF15m}

// AnalyzeTrendAlignment reads price against its 20-bar mean plus 3-bar
// momentum on each timeframe. Aligned means all three agree.
func AnalyzeTrendAlignment(windows map[domrepo.Timeframe][]models.Candle) models.TrendAlignment {
	res := models.TrendAlignment{
		Trends:         make(map[string]models.Trend, len(alignmentFrames)),
		Direction:      models.TrendNeutral,
		Strength:       50,
		Recommendation: "NEUTRAL",
	}

	up, down := 0, 0
	for _, tf := range alignmentFrames {
		t := shortTermTrend(windows[tf])
		res.Trends[string(tf)] = t
		switch t {
		case models.TrendUp:
			up++
		case models.TrendDown:
			down++
		}
	}

	switch {
	case up >= 2:
		res.Direction = models.TrendUp
		res.Aligned = up == len(alignmentFrames)
		res.Strength = 60 + 10*float64(up)
		res.Recommendation = "BUY"
		if res.Aligned {
			res.Recommendation = "STRONG BUY"
		}
	case down >= 2:
		res.Direction = models.TrendDown
		res.Aligned = down == len(alignmentFrames)
		res.Strength = 60 + 10*float64(down)
		res.Recommendation = "SELL"
		if res.Aligned {
			res.Recommendation = "STRONG SELL"
		}
	}
	return res
}

func shortTermTrend(cs []models.Candle) models.Trend {
	if len(cs) < 3 {
		return models.TrendNeutral
	}
	closes := models.Closes(features.Tail(cs, 20))
	last := closes[len(closes)-1]
	avg := features.Mean(closes)
	momentum := last - closes[len(closes)-3]
	switch {
	case last > avg*1.001 && momentum > 0:
		return models.TrendUp
	case last < avg*0.999 && momentum < 0:
		return models.TrendDown
	}
	return models.TrendNeutral
}

// ShouldTradeWithTrend checks action against the last five closes of each
// higher timeframe. With requireAll every available timeframe must agree,
// otherwise one agreeing timeframe is enough.
func ShouldTradeWithTrend(action models.Action, higher [][]models.Candle, requireAll bool) (bool, string) {
	var agree, total int
	for _, w := range higher {
		if len(w) < 3 {
			continue
		}
		closes := models.Closes(features.Tail(w, 5))
		rising := closes[len(closes)-1] > closes[0]
		total++
		if (action == models.ActionCall && rising) || (action == models.ActionPut && !rising) {
			agree++
		}
	}

	if total == 0 {
		return true, "no higher timeframe data"
	}
	if action != models.ActionCall && action != models.ActionPut {
		return true, "no directional action"
	}
	if requireAll {
		if agree == total {
			return true, fmt.Sprintf("all higher timeframes agree with %s", action)
		}
		return false, fmt.Sprintf("higher timeframes not aligned (%d/%d agree with %s)", agree, total, action)
	}
	if agree >= 1 {
		return true, fmt.Sprintf("%d/%d higher timeframes agree with %s", agree, total, action)
	}
	return false, fmt.Sprintf("all higher timeframes against %s", action)
}
