package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Float64Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// SampleNormal draws one normal variate with the Box-Muller transform from
// two independent uniform draws. Zero draws are redrawn so the log is finite.
func SampleNormal(src Float64Source, mean, sd float64) float64 {
	u, v := 0.0, 0.0
	for u == 0 {
		u = src.Float64()
	}
	for v == 0 {
		v = src.Float64()
	}
	return mean + sd*math.Sqrt(-2.0*math.Log(u))*math.Cos(2.0*math.Pi*v)
}

// NormalDensity is the Gaussian PDF at x scaled by n*10, so it overlays a
// frequency histogram of n values. It is a visual fit, not a calibrated
// density estimate. A non-positive sd yields 0.
func NormalDensity(x, mean, sd float64, n int) float64 {
	if sd <= 0 {
		return 0
	}
	pdf := distuv.Normal{Mu: mean, Sigma: sd}.Prob(x)
	return pdf * float64(n) * 10
}

// DensityPoint is one point of a density overlay.
type DensityPoint struct {
	X       float64 `json:"x"`
	Density float64 `json:"density"`
}

// DensityCurve evaluates NormalDensity, fitted to the mean and population sd
// of xs, at points evenly spaced over [min, max].
func DensityCurve(xs []float64, min, max float64, points int) []DensityPoint {
	if len(xs) == 0 || points < 2 {
		return []DensityPoint{}
	}
	mean := Mean(xs)
	sd := StdDev(xs)
	step := (max - min) / float64(points-1)

	curve := make([]DensityPoint, points)
	for i := range curve {
		x := min + float64(i)*step
		curve[i] = DensityPoint{X: x, Density: NormalDensity(x, mean, sd, len(xs))}
	}
	return curve
}
