package features

import (
	"math"

	"SignalForge/internal/domain/models"
)

// Tail returns the last n items of xs, or all of xs when it is shorter.
func Tail[T any](xs []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// LinearSlope is the ordinary least squares slope of xs against 0..n-1.
func LinearSlope(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	yMean := Mean(xs)
	num, den := 0.0, 0.0
	for i, y := range xs {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// NormalizedSlope scales the OLS slope by the mean price (x1000) into [-1, 1].
// Fewer than 10 points carry no trend information and yield 0.
func NormalizedSlope(prices []float64) float64 {
	if len(prices) < 10 {
		return 0
	}
	avg := Mean(prices)
	if avg <= 0 {
		avg = 1
	}
	return Clamp(LinearSlope(prices)/avg*1000, -1, 1)
}

// MeanTrueRange averages the true range of each candle against the previous close.
// The first candle only provides the previous close.
func MeanTrueRange(cs []models.Candle) float64 {
	if len(cs) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(cs); i++ {
		prev := cs[i-1].Close
		tr := math.Max(cs[i].High-cs[i].Low, math.Max(math.Abs(cs[i].High-prev), math.Abs(cs[i].Low-prev)))
		sum += tr
	}
	return sum / float64(len(cs)-1)
}

// MinMax returns the extrema of xs.
func MinMax(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
