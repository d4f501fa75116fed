package analytics

import (
	"math"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// AggregateCandles groups ascending base candles into period-minute candles.
// A new bucket starts whenever minute-of-hour / period changes from the
// previous candle; the trailing partial bucket is kept.
func AggregateCandles(candles []models.Candle, period int) []models.Candle {
	if len(candles) == 0 || period < 1 {
		return []models.Candle{}
	}

	out := make([]models.Candle, 0, len(candles)/period+1)
	cur := candles[0]
	curKey := bucketKey(candles[0], period)
	for _, c := range candles[1:] {
		key := bucketKey(c, period)
		if key != curKey {
			out = append(out, cur)
			cur, curKey = c, key
			continue
		}
		cur.High = math.Max(cur.High, c.High)
		cur.Low = math.Min(cur.Low, c.Low)
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	return append(out, cur)
}

func bucketKey(c models.Candle, period int) int {
	return c.Timestamp.UTC().Minute() / period
}

// BuildTimeframes derives the higher timeframe views from a 1m window.
// Views supplied by the caller take precedence over derived ones.
func BuildTimeframes(base []models.Candle, supplied map[domrepo.Timeframe][]models.Candle) map[domrepo.Timeframe][]models.Candle {
	out := map[domrepo.Timeframe][]models.Candle{domrepo.TF1m: base}
	for _, tf := range domrepo.HigherTimeframes {
		if cs, ok := supplied[tf]; ok && len(cs) > 0 {
			out[tf] = cs
			continue
		}
		out[tf] = AggregateCandles(base, tf.Minutes())
	}
	return out
}
