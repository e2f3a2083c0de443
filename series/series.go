// Package series provides a minimal time-indexed float series and the
// nearest-neighbor reindexing used to move derived values onto the time axis
// of an archived dataset.
package series

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rtm0/repeatability/internal/errs"
)

// Series is a sequence of values keyed by non-decreasing timestamps. NaN marks
// a missing value.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Times)
}

// Validate checks that times and values line up and that times never go
// backwards.
func (s Series) Validate() error {
	if len(s.Times) != len(s.Values) {
		return fmt.Errorf("%w: series %q has %d times and %d values", errs.ErrParse, s.Name, len(s.Times), len(s.Values))
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i].Before(s.Times[i-1]) {
			return fmt.Errorf("%w: series %q goes back in time at index %d (%s < %s)",
				errs.ErrParse, s.Name, i, s.Times[i].Format(time.RFC3339), s.Times[i-1].Format(time.RFC3339))
		}
	}
	return nil
}

// Valid returns the number of non-NaN values.
func (s Series) Valid() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Nearest returns, for every target time, the value of the sample closest in
// time. There is no maximum distance: a target far outside the series still
// gets the value of the first or last sample. Ties go to the later sample.
// When several samples share a timestamp the last one wins.
//
// The series must be valid and non-empty.
func (s Series) Nearest(targets []time.Time) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: series %q is empty", errs.ErrParse, s.Name)
	}
	times, values := s.dedup()

	out := make([]float64, len(targets))
	for i, t := range targets {
		// First sample at or after t.
		j := sort.Search(len(times), func(k int) bool {
			return !times[k].Before(t)
		})
		switch {
		case j == 0:
			out[i] = values[0]
		case j == len(times):
			out[i] = values[len(values)-1]
		default:
			before := t.Sub(times[j-1])
			after := times[j].Sub(t)
			if before < after {
				out[i] = values[j-1]
			} else {
				out[i] = values[j]
			}
		}
	}
	return out, nil
}

// dedup collapses runs of equal timestamps, keeping the last value of each run.
func (s Series) dedup() ([]time.Time, []float64) {
	times := make([]time.Time, 0, len(s.Times))
	values := make([]float64, 0, len(s.Values))
	for i, t := range s.Times {
		if n := len(times); n > 0 && times[n-1].Equal(t) {
			values[n-1] = s.Values[i]
			continue
		}
		times = append(times, t)
		values = append(values, s.Values[i])
	}
	return times, values
}
