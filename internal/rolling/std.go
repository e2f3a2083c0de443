// Package rolling computes moving-window statistics over sample-indexed
// float slices.
package rolling

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Window describes a centered moving window measured in samples.
type Window struct {
	// Size is the number of samples in a full window.
	Size int
	// MinPeriods is the number of non-NaN samples a window needs before it
	// produces a value. Windows with fewer yield NaN.
	MinPeriods int
}

// Bounds returns the half-open sample range [lo, hi) covered by the window
// centered on index i in a series of length n. For even sizes the extra
// sample falls before i, so a 24-sample window spans [i-12, i+11].
func (w Window) Bounds(i, n int) (lo, hi int) {
	hi = i + 1 + (w.Size-1)/2
	lo = hi - w.Size
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// StdDev returns the centered rolling sample standard deviation of values.
// NaN inputs are skipped, not treated as zero. The output has the same
// length as the input. A window with a single valid sample has zero spread.
func (w Window) StdDev(values []float64) []float64 {
	out := make([]float64, len(values))
	buf := make([]float64, 0, w.Size)
	minPeriods := max(w.MinPeriods, 1)
	for i := range values {
		lo, hi := w.Bounds(i, len(values))
		buf = buf[:0]
		for _, v := range values[lo:hi] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		switch {
		case len(buf) < minPeriods:
			out[i] = math.NaN()
		case len(buf) == 1:
			out[i] = 0
		default:
			out[i] = stat.StdDev(buf, nil)
		}
	}
	return out
}
