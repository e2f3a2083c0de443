// Package instrument reads GC-MD instrument standards logs: whitespace
// delimited text with a title line, two label lines whose tokens pair up into
// column names, and one row per measurement keyed by a yymmdd/HHMM timestamp.
package instrument

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rtm0/repeatability/internal/errs"
	"github.com/rtm0/repeatability/series"
)

// headerLines is the number of lines before the first data row.
const headerLines = 3

// missing is the token used for absent values.
const missing = "nan"

// Log is a fully parsed instrument log. The first two header columns compose
// the row timestamp and are not kept as value columns.
type Log struct {
	Title string
	Times []time.Time

	names  []string
	values [][]float64 // values[col][row]
}

// Columns returns the value column names in file order.
func (l *Log) Columns() []string {
	return l.names[:len(l.names):len(l.names)]
}

// Column returns the named column as a series. The name must match the
// normalized header exactly.
func (l *Log) Column(name string) (series.Series, error) {
	for i, n := range l.names {
		if n == name {
			return series.Series{
				Name:   name,
				Times:  l.Times,
				Values: l.values[i],
			}, nil
		}
	}
	return series.Series{}, fmt.Errorf("%w: column %q not in %v", errs.ErrParse, name, l.names)
}

// ReadFile opens and parses the log at path.
func ReadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Open(path, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse reads a log from r.
func Parse(r io.Reader) (*Log, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header [headerLines]string
	for i := range header {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("%w: read header: %v", errs.ErrIO, err)
			}
			return nil, fmt.Errorf("%w: header has %d lines, want %d", errs.ErrParse, i, headerLines)
		}
		header[i] = sc.Text()
	}

	cols, err := ColumnNames(strings.Fields(header[1]), strings.Fields(header[2]))
	if err != nil {
		return nil, err
	}
	if len(cols) < 3 {
		return nil, fmt.Errorf("%w: header names %d columns, need date, time and at least one value", errs.ErrParse, len(cols))
	}

	l := &Log{
		Title:  strings.TrimSpace(header[0]),
		names:  cols[2:],
		values: make([][]float64, len(cols)-2),
	}
	line := headerLines
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", errs.ErrParse, line, len(fields), len(cols))
		}
		ts, err := ParseTimestamp(fields[0], fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		l.Times = append(l.Times, ts)
		for i, tok := range fields[2:] {
			v, err := parseValue(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, l.names[i], err)
			}
			l.values[i] = append(l.values[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read line %d: %v", errs.ErrIO, line+1, err)
	}
	return l, nil
}

// ColumnNames pairs the tokens of the two label lines into column names.
// Hyphens are dropped, and a name ending in "C" loses that letter and is
// lower-cased: "N2O" + "C" becomes "n2o" while "N2O" + "(ppt)" is kept as
// "N2O(ppt)".
func ColumnNames(top, bottom []string) ([]string, error) {
	if len(top) != len(bottom) {
		return nil, fmt.Errorf("%w: label lines have %d and %d tokens", errs.ErrParse, len(top), len(bottom))
	}
	names := make([]string, len(top))
	for i := range top {
		name := strings.ReplaceAll(top[i]+bottom[i], "-", "")
		if base, ok := strings.CutSuffix(name, "C"); ok {
			name = strings.ToLower(base)
		}
		names[i] = name
	}
	return names, nil
}

// ParseTimestamp combines a yymmdd date token and an HHMM time token into a
// UTC timestamp.
func ParseTimestamp(date, clock string) (time.Time, error) {
	if len(date) != 6 || len(clock) != 4 {
		return time.Time{}, fmt.Errorf("%w: timestamp %q %q: want yymmdd HHMM", errs.ErrFormat, date, clock)
	}
	ts, err := time.Parse("060102 1504", date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q %q: %v", errs.ErrFormat, date, clock, err)
	}
	return ts, nil
}

func parseValue(tok string) (float64, error) {
	if strings.EqualFold(tok, missing) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q is not a number", errs.ErrFormat, tok)
	}
	return v, nil
}
