// Package stats holds the numeric helpers behind the dashboard aggregates.
// Variance is the population variance throughout: every caller describes a
// complete set of observations, not a sample of a larger one.
package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(xs []float64) float64 {
	m, err := mstats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

// Variance returns the population variance (divisor n), or 0 for no values.
func Variance(xs []float64) float64 {
	v, err := mstats.PopulationVariance(xs)
	if err != nil {
		return 0
	}
	return v
}

func StdDev(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// Quantile is a nearest-rank lookup into ascending-sorted values: the
// element at floor(p*n), clamped to the last index. No interpolation.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

// Summary describes a distribution the way the dashboard cards show it.
type Summary struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Range float64 `json:"range"`
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
}

// Summarize computes the summary of xs without modifying it. The mean is
// rounded to one decimal; the other figures are observed values.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	return Summary{
		Mean:  Round(Mean(xs), 1),
		Min:   lo,
		Max:   hi,
		Range: hi - lo,
		Q1:    Quantile(sorted, 0.25),
		Q3:    Quantile(sorted, 0.75),
	}
}
