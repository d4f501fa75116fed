package models

import (
	"math"
	"time"
)

// Candle represents an OHLCV bar. Volume is zero when the feed does not carry it.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

func (c Candle) Body() float64 { return math.Abs(c.Close - c.Open) }

func (c Candle) Range() float64 { return c.High - c.Low }

func (c Candle) UpperShadow() float64 { return c.High - math.Max(c.Open, c.Close) }

func (c Candle) LowerShadow() float64 { return math.Min(c.Open, c.Close) - c.Low }

func (c Candle) IsBullish() bool { return c.Close > c.Open }

func (c Candle) IsBearish() bool { return c.Close < c.Open }

// Closes extracts close prices in order.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}
