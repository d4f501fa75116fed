package analytics

import (
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
)

const (
	engulfingMinBodyRatio = 1.5
	dojiMaxBodyPercent    = 10.0
)

// PatternRecognizer detects candlestick formations on the latest candles.
type PatternRecognizer struct{}

func NewPatternRecognizer() *PatternRecognizer { return &PatternRecognizer{} }

// DetectEngulfing inspects the last two candles.
func (r *PatternRecognizer) DetectEngulfing(cs []models.Candle) *models.Pattern {
	if len(cs) < 2 {
		return nil
	}
	prev, cur := cs[len(cs)-2], cs[len(cs)-1]
	if prev.Body() == 0 {
		return nil
	}
	ratio := cur.Body() / prev.Body()
	volume := prev.Volume > 0 && cur.Volume > prev.Volume

	var kind models.PatternKind
	var beyond bool
	switch {
	case prev.IsBearish() && cur.IsBullish() && cur.Open <= prev.Close && cur.Close >= prev.Open:
		kind, beyond = models.PatternBullishEngulfing, cur.Close > prev.High
	case prev.IsBullish() && cur.IsBearish() && cur.Open >= prev.Close && cur.Close <= prev.Open:
		kind, beyond = models.PatternBearishEngulfing, cur.Close < prev.Low
	default:
		return nil
	}

	strength := min(100, int(ratio*40))
	if ratio >= engulfingMinBodyRatio {
		strength += 20
	}
	if volume {
		strength += 15
	}
	if beyond {
		strength += 10
	}
	if ratio >= 2 {
		strength += 15
	}

	return &models.Pattern{
		Kind:            kind,
		Strength:        min(100, strength),
		BodyRatio:       ratio,
		VolumeConfirmed: volume,
		Description:     fmt.Sprintf("%s, body %.2fx previous", kind, ratio),
	}
}

// DetectDoji inspects the last candle for a body under 10% of its range.
func (r *PatternRecognizer) DetectDoji(cs []models.Candle) *models.Pattern {
	if len(cs) == 0 {
		return nil
	}
	c := cs[len(cs)-1]
	rng := c.Range()
	if rng <= 0 {
		return nil
	}
	bodyPct := c.Body() / rng * 100
	if bodyPct > dojiMaxBodyPercent {
		return nil
	}

	upper, lower := c.UpperShadow(), c.LowerShadow()
	p := &models.Pattern{
		Kind:            models.PatternDoji,
		Strength:        60,
		IndecisionScore: int((1 - bodyPct/10) * 100),
	}
	switch {
	case lower > upper*2:
		p.Kind, p.Strength = models.PatternDragonflyDoji, 75
	case upper > lower*2:
		p.Kind, p.Strength = models.PatternGravestoneDoji, 75
	}
	p.Description = fmt.Sprintf("%s, body %.1f%% of range", p.Kind, bodyPct)
	return p
}

// DetectHammerOrStar inspects the last candle for a long single shadow.
// A zero body never qualifies since the opposite shadow bound collapses to 0.
func (r *PatternRecognizer) DetectHammerOrStar(cs []models.Candle) *models.Pattern {
	if len(cs) == 0 {
		return nil
	}
	c := cs[len(cs)-1]
	if c.Range() <= 0 {
		return nil
	}
	body, upper, lower := c.Body(), c.UpperShadow(), c.LowerShadow()
	if body == 0 {
		return nil
	}

	switch {
	case lower >= body*2 && upper < body*0.5:
		ratio := lower / body
		return &models.Pattern{
			Kind:        models.PatternHammer,
			Strength:    min(100, int(ratio*30)),
			ShadowRatio: ratio,
			Description: fmt.Sprintf("hammer, lower shadow %.2fx body", ratio),
		}
	case upper >= body*2 && lower < body*0.5:
		ratio := upper / body
		return &models.Pattern{
			Kind:        models.PatternShootingStar,
			Strength:    min(100, int(ratio*30)),
			ShadowRatio: ratio,
			Description: fmt.Sprintf("shooting star, upper shadow %.2fx body", ratio),
		}
	}
	return nil
}

// DetectAll runs every detector on one window, in a fixed order.
func (r *PatternRecognizer) DetectAll(cs []models.Candle) []models.Pattern {
	var out []models.Pattern
	for _, p := range []*models.Pattern{r.DetectEngulfing(cs), r.DetectDoji(cs), r.DetectHammerOrStar(cs)} {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// DetectMultiTimeframe scans 1m, then 5m and 15m when they hold at least two
// candles, and returns the strongest formation. Ties keep the earlier one.
func (r *PatternRecognizer) DetectMultiTimeframe(windows map[domrepo.Timeframe][]models.Candle) *models.Pattern {
	var best *models.Pattern
	for _, tf := range alignmentFrames {
		cs := windows[tf]
		if tf != domrepo.TF1m && len(cs) < 2 {
			continue
		}
		for _, p := range r.DetectAll(cs) {
			if best == nil || p.Strength > best.Strength {
				p := p
				p.Timeframe = string(tf)
				best = &p
			}
		}
	}
	return best
}

// EvaluateQuality scores p against indicator and regime context.
func (r *PatternRecognizer) EvaluateQuality(p models.Pattern, snap models.IndicatorSnapshot, regime models.Regime) models.PatternQuality {
	rsi := floatOr(snap, "rsi", 50)
	macd := floatOr(snap, "macd_histogram", 0)
	q := p.Strength
	var reasons []string
	add := func(points int, reason string) {
		q += points
		reasons = append(reasons, reason)
	}

	switch p.Kind {
	case models.PatternBullishEngulfing:
		if rsi < 30 {
			add(20, "rsi oversold")
		} else if rsi < 40 {
			add(10, "rsi below 40")
		}
		if regime == models.RegimeTrendingDown || regime == models.RegimeHighVolatility {
			add(15, "potential downtrend reversal")
		}
		if macd > 0 {
			add(10, "macd bullish")
		}
		if p.VolumeConfirmed {
			add(15, "volume confirmation")
		}
		if p.BodyRatio >= 2 {
			add(10, "engulfing body 2x or more")
		}
	case models.PatternBearishEngulfing:
		if rsi > 70 {
			add(20, "rsi overbought")
		} else if rsi > 60 {
			add(10, "rsi above 60")
		}
		if regime == models.RegimeTrendingUp || regime == models.RegimeHighVolatility {
			add(15, "potential uptrend reversal")
		}
		if macd < 0 {
			add(10, "macd bearish")
		}
		if p.VolumeConfirmed {
			add(15, "volume confirmation")
		}
		if p.BodyRatio >= 2 {
			add(10, "engulfing body 2x or more")
		}
	case models.PatternHammer:
		if rsi < 35 {
			add(25, "hammer at oversold levels")
		}
		if regime == models.RegimeTrendingDown {
			add(20, "hammer in downtrend")
		}
	case models.PatternShootingStar:
		if rsi > 65 {
			add(25, "shooting star at overbought levels")
		}
		if regime == models.RegimeTrendingUp {
			add(20, "shooting star in uptrend")
		}
	case models.PatternDragonflyDoji, models.PatternGravestoneDoji, models.PatternDoji:
		switch {
		case p.Kind == models.PatternDragonflyDoji && regime == models.RegimeTrendingDown:
			add(20, "dragonfly doji in downtrend")
		case p.Kind == models.PatternGravestoneDoji && regime == models.RegimeTrendingUp:
			add(20, "gravestone doji in uptrend")
		default:
			add(-10, "doji shows indecision")
		}
	}
	q = max(0, min(100, q))

	res := models.PatternQuality{Pattern: p, Quality: q, Reasons: reasons}
	bias := p.Kind.Bias()
	switch {
	case q >= 85 && bias != models.TrendNeutral:
		res.Tier, res.Confidence = directional(bias, models.TierStrongBuy, models.TierStrongSell), q
	case q >= 70 && bias != models.TrendNeutral:
		res.Tier, res.Confidence = directional(bias, models.TierBuy, models.TierSell), q
	case q >= 50:
		res.Tier, res.Confidence = models.TierNeutral, 50
	default:
		res.Tier, res.Confidence = models.TierNoTrade, 30
		res.Reasons = append(res.Reasons, "low quality pattern")
	}
	return res
}

func directional(bias models.Trend, bull, bear models.PatternTier) models.PatternTier {
	if bias == models.TrendUp {
		return bull
	}
	return bear
}

func floatOr(snap models.IndicatorSnapshot, key string, def float64) float64 {
	if v, ok := snap.Float(key); ok {
		return v
	}
	return def
}

var _ domsvc.PatternAnalyzer = (*PatternRecognizer)(nil)
