package stats

import "math"

// Bin is one histogram bucket. It covers [Start, End) except for the last
// bin of a histogram, which also includes End.
type Bin struct {
	Start    float64 `json:"binStart"`
	End      float64 `json:"binEnd"`
	Midpoint float64 `json:"midpoint"`
	Count    int     `json:"frequency"`
}

// Histogram bins xs over the fixed range [min, max] using bins of the given
// width; there are ceil((max-min)/width) of them. Values outside the range
// are not counted.
func Histogram(xs []float64, min, max, width float64) []Bin {
	if width <= 0 || max <= min {
		return []Bin{}
	}
	binCount := int(math.Ceil((max - min) / width))
	bins := make([]Bin, binCount)
	for i := range bins {
		start := min + float64(i)*width
		end := min + float64(i+1)*width
		bins[i] = Bin{Start: start, End: end, Midpoint: (start + end) / 2}
	}

	last := binCount - 1
	for _, x := range xs {
		for i := range bins {
			b := &bins[i]
			if x >= b.Start && (x < b.End || (i == last && x <= b.End)) {
				b.Count++
				break
			}
		}
	}
	return bins
}

// FindBin returns the index of the first bin whose closed interval contains
// v, or -1.
func FindBin(bins []Bin, v float64) int {
	for i, b := range bins {
		if v >= b.Start && v <= b.End {
			return i
		}
	}
	return -1
}
