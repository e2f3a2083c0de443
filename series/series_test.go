package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/repeatability/internal/errs"
)

var t0 = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

func minutes(ms ...int) []time.Time {
	ts := make([]time.Time, len(ms))
	for i, m := range ms {
		ts[i] = t0.Add(time.Duration(m) * time.Minute)
	}
	return ts
}

func TestNearest(t *testing.T) {
	s := Series{Name: "n2o", Times: minutes(0, 60, 120), Values: []float64{1, 2, 3}}

	tests := []struct {
		name   string
		target int
		want   float64
	}{
		{"closer to later sample", 40, 2},
		{"closer to earlier sample", 20, 1},
		{"exact match", 120, 3},
		{"tie goes to later sample", 30, 2},
		{"before first sample", -500, 1},
		{"far after last sample", 100000, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Nearest(minutes(tt.target))
			require.NoError(t, err)
			assert.Equal(t, []float64{tt.want}, got)
		})
	}
}

func TestNearest_DuplicateTimesLastWins(t *testing.T) {
	s := Series{Times: minutes(0, 60, 60, 120), Values: []float64{1, 2, 5, 3}}

	got, err := s.Nearest(minutes(55, 60, 65))
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, got)
}

func TestNearest_CopiesNaN(t *testing.T) {
	s := Series{Times: minutes(0, 60), Values: []float64{math.NaN(), 2}}

	got, err := s.Nearest(minutes(10))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))
}

func TestNearest_Deterministic(t *testing.T) {
	s := Series{Times: minutes(0, 10, 20, 30), Values: []float64{4, 3, 2, 1}}
	targets := minutes(1, 14, 15, 29, 31)

	first, err := s.Nearest(targets)
	require.NoError(t, err)
	second, err := s.Nearest(targets)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []float64{4, 3, 2, 1, 1}, first)
}

func TestNearest_Errors(t *testing.T) {
	_, err := Series{}.Nearest(minutes(0))
	assert.ErrorIs(t, err, errs.ErrParse)

	_, err = Series{Times: minutes(0, 1), Values: []float64{1}}.Nearest(minutes(0))
	assert.ErrorIs(t, err, errs.ErrParse)

	_, err = Series{Times: minutes(10, 0), Values: []float64{1, 2}}.Nearest(minutes(0))
	assert.ErrorIs(t, err, errs.ErrParse)
}

func TestValid(t *testing.T) {
	s := Series{Times: minutes(0, 1, 2), Values: []float64{1, math.NaN(), 3}}
	assert.Equal(t, 2, s.Valid())
	assert.Equal(t, 3, s.Len())
}
