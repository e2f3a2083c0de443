package rolling

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

var w24 = Window{Size: 24, MinPeriods: 1}

func TestBounds(t *testing.T) {
	tests := []struct {
		i, n   int
		lo, hi int
	}{
		{0, 100, 0, 12},
		{12, 100, 0, 24},
		{50, 100, 38, 62},
		{99, 100, 87, 100},
		{0, 1, 0, 1},
	}
	for _, tt := range tests {
		lo, hi := w24.Bounds(tt.i, tt.n)
		assert.Equal(t, tt.lo, lo, "lo for i=%d n=%d", tt.i, tt.n)
		assert.Equal(t, tt.hi, hi, "hi for i=%d n=%d", tt.i, tt.n)
	}
}

func TestStdDev_LengthAndBoundaries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i % 7)
	}
	got := w24.StdDev(values)

	assert.Len(t, got, len(values))
	for i, v := range got {
		assert.False(t, math.IsNaN(v), "index %d is NaN", i)
	}
}

func TestStdDev_SingleSampleIsZero(t *testing.T) {
	got := w24.StdDev([]float64{3.5})
	assert.Equal(t, []float64{0}, got)
}

func TestStdDev_AllMissingIsNaN(t *testing.T) {
	got := w24.StdDev([]float64{math.NaN(), math.NaN()})
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestStdDev_SkipsNaN(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = math.NaN()
	}
	present := map[int]float64{2: 1.0, 9: 4.0, 15: 2.0, 20: 7.0}
	for i, v := range present {
		values[i] = v
	}

	got := w24.StdDev(values)

	// Index 12 sees the whole slice.
	want := stat.StdDev([]float64{1, 4, 2, 7}, nil)
	assert.InDelta(t, want, got[12], 1e-12)
	assert.Greater(t, got[12], 0.0)
}

func TestStdDev_OutlierReachIsCentered(t *testing.T) {
	const n, at = 80, 40
	values := make([]float64, n)
	values[at] = 100

	got := w24.StdDev(values)

	for i, v := range got {
		lo, hi := w24.Bounds(i, n)
		inWindow := at >= lo && at < hi
		if inWindow {
			assert.Greater(t, v, 0.0, "index %d should see the outlier", i)
		} else {
			assert.Zero(t, v, "index %d should not see the outlier", i)
		}
	}
	// Reaches 12 samples back, not only forward.
	assert.Greater(t, got[at-11], 0.0)
	assert.Greater(t, got[at+12], 0.0)
	assert.Zero(t, got[at-12])
	assert.Zero(t, got[at+13])
}

func TestStdDev_MatchesSampleStdDev(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	got := Window{Size: 3, MinPeriods: 1}.StdDev(values)

	want := []float64{
		stat.StdDev([]float64{1, 2}, nil),
		stat.StdDev([]float64{1, 2, 3}, nil),
		stat.StdDev([]float64{2, 3, 4}, nil),
		stat.StdDev([]float64{3, 4}, nil),
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("StdDev mismatch (-want +got):\n%s", diff)
	}
}

func TestStdDev_MinPeriods(t *testing.T) {
	values := []float64{1, math.NaN(), 3, math.NaN()}
	got := Window{Size: 2, MinPeriods: 2}.StdDev(values)

	want := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("StdDev mismatch (-want +got):\n%s", diff)
	}
}
