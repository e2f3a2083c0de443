// Package datasettest writes small GC-MD style NetCDF files for tests.
package datasettest

import (
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// TimeUnits are the units of Fixture.Minutes.
const TimeUnits = "minutes since 2020-01-01 00:00:00"

// Fixture describes the content of a test file. All slices share the time
// dimension.
type Fixture struct {
	Minutes       []float64
	MoleFraction  []float64
	Repeatability []float32

	// Calendar, when set, becomes the time coordinate's calendar attribute.
	Calendar string
	// OmitRepeatability leaves out mf_repeatability.
	OmitRepeatability bool
	// OmitTime leaves out the time coordinate variable.
	OmitTime bool
}

// Write creates the file at path, failing the test on error.
func Write(tb testing.TB, path string, f Fixture) {
	tb.Helper()

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		tb.Fatalf("open writer: %v", err)
	}
	global := attrs(tb, "site_code", "BSD", "species", "n2o", "network", "DECC")
	if err := cw.AddGlobalAttrs(global); err != nil {
		tb.Fatalf("add global attributes: %v", err)
	}

	dims := []string{"time"}
	if !f.OmitTime {
		kv := []string{"units", TimeUnits, "standard_name", "time"}
		if f.Calendar != "" {
			kv = append(kv, "calendar", f.Calendar)
		}
		addVar(tb, cw, "time", api.Variable{
			Values:     f.Minutes,
			Dimensions: dims,
			Attributes: attrs(tb, kv...),
		})
	}
	addVar(tb, cw, "mf", api.Variable{
		Values:     f.MoleFraction,
		Dimensions: dims,
		Attributes: attrs(tb, "units", "ppt", "long_name", "mole fraction"),
	})
	if !f.OmitRepeatability {
		addVar(tb, cw, "mf_repeatability", api.Variable{
			Values:     f.Repeatability,
			Dimensions: dims,
			Attributes: attrs(tb, "units", "ppt", "long_name", "mole fraction repeatability"),
		})
	}
	if err := cw.Close(); err != nil {
		tb.Fatalf("close writer: %v", err)
	}
}

func addVar(tb testing.TB, cw *cdf.CDFWriter, name string, v api.Variable) {
	tb.Helper()
	if err := cw.AddVar(name, v); err != nil {
		tb.Fatalf("add %s: %v", name, err)
	}
}

// attrs builds an ordered attribute map from key/value pairs.
func attrs(tb testing.TB, kv ...string) api.AttributeMap {
	tb.Helper()
	keys := make([]string, 0, len(kv)/2)
	vals := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		keys = append(keys, kv[i])
		vals[kv[i]] = kv[i+1]
	}
	m, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		tb.Fatalf("attributes: %v", err)
	}
	return m
}
