package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rtm0/repeatability/internal/errs"
)

var unitSteps = map[string]time.Duration{
	"days": 24 * time.Hour, "day": 24 * time.Hour, "d": 24 * time.Hour,
	"hours": time.Hour, "hour": time.Hour, "hrs": time.Hour, "hr": time.Hour, "h": time.Hour,
	"minutes": time.Minute, "minute": time.Minute, "mins": time.Minute, "min": time.Minute,
	"seconds": time.Second, "second": time.Second, "secs": time.Second, "sec": time.Second, "s": time.Second,
	"milliseconds": time.Millisecond, "millisecond": time.Millisecond, "msec": time.Millisecond, "ms": time.Millisecond,
	"microseconds": time.Microsecond, "microsecond": time.Microsecond, "usec": time.Microsecond, "us": time.Microsecond,
	"nanoseconds": time.Nanosecond, "nanosecond": time.Nanosecond, "ns": time.Nanosecond,
}

var refLayouts = []string{
	"2006-1-2 15:4:5",
	"2006-1-2T15:4:5",
	"2006-1-2 15:4",
	"2006-1-2T15:4",
	"2006-1-2",
}

// DecodeTimes converts offsets expressed in CF time units, e.g.
// "minutes since 2020-01-01 00:00:00", to UTC timestamps.
func DecodeTimes(units string, offsets []float64) ([]time.Time, error) {
	step, ref, err := ParseUnits(units)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(offsets))
	for i, off := range offsets {
		if math.IsNaN(off) || math.IsInf(off, 0) {
			return nil, fmt.Errorf("%w: time offset %d is %v", errs.ErrSchema, i, off)
		}
		t, err := addOffset(ref, off, step)
		if err != nil {
			return nil, fmt.Errorf("%w: time offset %d: %v", errs.ErrSchema, i, err)
		}
		times[i] = t
	}
	return times, nil
}

const day = 24 * time.Hour

// maxDays bounds offsets to a little over five million years either side of
// the reference.
const maxDays = 1 << 31

// addOffset adds off steps to ref. Whole days go through AddDate and only the
// remainder through a Duration, which cannot span more than about 292 years.
func addOffset(ref time.Time, off float64, step time.Duration) (time.Time, error) {
	ns := off * float64(step)
	days := math.Trunc(ns / float64(day))
	if math.Abs(days) > maxDays {
		return time.Time{}, fmt.Errorf("%v is out of range", off)
	}
	rem := time.Duration(math.Round(ns - days*float64(day)))
	return ref.AddDate(0, 0, int(days)).Add(rem), nil
}

// ParseUnits splits CF time units into the step of one unit and the
// reference time.
func ParseUnits(units string) (time.Duration, time.Time, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: time units %q: want \"<unit> since <reference>\"", errs.ErrSchema, units)
	}
	step, ok := unitSteps[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: time units %q: unknown unit %q", errs.ErrSchema, units, unit)
	}
	t, err := parseReference(ref)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: time units %q: %v", errs.ErrSchema, units, err)
	}
	return step, t, nil
}

func parseReference(ref string) (time.Time, error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimSpace(strings.TrimSuffix(s, "UTC"))
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range refLayouts {
		for _, zone := range []string{"", " -07:00", "-07:00", " -0700"} {
			if t, err := time.ParseInLocation(layout+zone, s, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised reference time %q", ref)
}
