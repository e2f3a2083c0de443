// Package dataset loads archived observation files in NetCDF format fully
// into memory, replaces individual fields and writes them back.
package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"

	"github.com/rtm0/repeatability/internal/errs"
)

// Repeatability is the name of the field holding the measurement
// repeatability.
const Repeatability = "mf_repeatability"

// Dataset is an in-memory copy of a NetCDF file's root group.
type Dataset struct {
	attrs api.AttributeMap
	names []string
	vars  map[string]*api.Variable
}

// Load reads every variable and attribute of the file at path.
func Load(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Open(path, err)
	}
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errs.ErrIO, path, err)
	}
	defer nc.Close()

	// The classic writer has no groups.
	if groups := nc.ListSubgroups(); len(groups) > 0 {
		return nil, fmt.Errorf("%w: %s has subgroups %v", errs.ErrSchema, path, groups)
	}

	d := &Dataset{
		attrs: nc.Attributes(),
		names: nc.ListVariables(),
		vars:  make(map[string]*api.Variable),
	}
	for _, name := range d.names {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s in %s: %v", errs.ErrIO, name, path, err)
		}
		d.vars[name] = v
	}
	return d, nil
}

// Variables returns the variable names in file order.
func (d *Dataset) Variables() []string {
	return d.names[:len(d.names):len(d.names)]
}

// Variable returns the named variable. The returned value is shared with the
// dataset.
func (d *Dataset) Variable(name string) (*api.Variable, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: no variable %q", errs.ErrSchema, name)
	}
	return v, nil
}

// Times decodes the time coordinate of the named 1-D variable. The
// coordinate is the variable named after the field's first dimension and
// must carry CF "<unit> since <reference>" units. Only Gregorian calendars
// are decoded; other CF calendars are reported as ErrSchema.
func (d *Dataset) Times(name string) ([]time.Time, error) {
	v, err := d.Variable(name)
	if err != nil {
		return nil, err
	}
	if len(v.Dimensions) != 1 {
		return nil, fmt.Errorf("%w: %q has dimensions %v, want one time dimension", errs.ErrSchema, name, v.Dimensions)
	}
	dim := v.Dimensions[0]
	coord, ok := d.vars[dim]
	if !ok {
		return nil, fmt.Errorf("%w: no coordinate variable for dimension %q of %q", errs.ErrSchema, dim, name)
	}
	units, ok := stringAttr(coord.Attributes, "units")
	if !ok {
		return nil, fmt.Errorf("%w: coordinate %q has no units", errs.ErrSchema, dim)
	}
	if cal, ok := stringAttr(coord.Attributes, "calendar"); ok && !gregorian[strings.ToLower(strings.TrimSpace(cal))] {
		return nil, fmt.Errorf("%w: coordinate %q uses calendar %q, want a Gregorian calendar", errs.ErrSchema, dim, cal)
	}
	offsets, err := floats(coord.Values)
	if err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", dim, err)
	}
	times, err := DecodeTimes(units, offsets)
	if err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", dim, err)
	}
	return times, nil
}

// Replace overwrites the values of the named 1-D floating point variable,
// keeping its element type, dimensions and attributes.
func (d *Dataset) Replace(name string, values []float64) error {
	v, err := d.Variable(name)
	if err != nil {
		return err
	}
	switch old := v.Values.(type) {
	case []float64:
		if len(old) != len(values) {
			return fmt.Errorf("%w: %q has %d values, got %d", errs.ErrSchema, name, len(old), len(values))
		}
		v.Values = append([]float64(nil), values...)
	case []float32:
		if len(old) != len(values) {
			return fmt.Errorf("%w: %q has %d values, got %d", errs.ErrSchema, name, len(old), len(values))
		}
		narrowed := make([]float32, len(values))
		for i, x := range values {
			narrowed[i] = float32(x)
		}
		v.Values = narrowed
	default:
		return fmt.Errorf("%w: %q holds %T, want a 1-D float field", errs.ErrSchema, name, v.Values)
	}
	return nil
}

// Save writes the dataset to path as netCDF classic, whatever format it was
// loaded from. The file is written next to path, flushed to disk and renamed
// over it, so a failed write leaves the original untouched.
func (d *Dataset) Save(path string) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(path), ".dataset-")
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	defer os.RemoveAll(tmpDir)

	tmp := filepath.Join(tmpDir, filepath.Base(path))
	if err := d.write(tmp); err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrIO, path, err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if err := syncFile(tmp); err != nil {
		return fmt.Errorf("%w: sync %s: %v", errs.ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	return nil
}

// syncFile flushes the file at path to stable storage. The writer closes
// its file without syncing.
var syncFile = func(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *Dataset) write(path string) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	if d.attrs != nil && len(d.attrs.Keys()) > 0 {
		if err := cw.AddGlobalAttrs(d.attrs); err != nil {
			cw.Close()
			return err
		}
	}
	for _, name := range d.names {
		if err := cw.AddVar(name, *d.vars[name]); err != nil {
			cw.Close()
			return fmt.Errorf("variable %q: %v", name, err)
		}
	}
	return cw.Close()
}

var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

// IsNetCDF4 reports whether the file at path is HDF5 based (netCDF-4).
// Save rewrites such files as netCDF classic.
func IsNetCDF4(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errs.Open(path, err)
	}
	defer f.Close()

	head := make([]byte, len(hdf5Signature))
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", errs.ErrIO, path, err)
	}
	return bytes.Equal(head, hdf5Signature), nil
}

var gregorian = map[string]bool{
	"standard":            true,
	"gregorian":           true,
	"proleptic_gregorian": true,
}

func stringAttr(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](vs []T) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// floats converts a 1-D numeric variable to float64.
func floats(values any) ([]float64, error) {
	switch vs := values.(type) {
	case []float64:
		return vs, nil
	case []float32:
		return widen(vs), nil
	case []int64:
		return widen(vs), nil
	case []int32:
		return widen(vs), nil
	case []int16:
		return widen(vs), nil
	case []int8:
		return widen(vs), nil
	case []uint64:
		return widen(vs), nil
	case []uint32:
		return widen(vs), nil
	case []uint16:
		return widen(vs), nil
	case []uint8:
		return widen(vs), nil
	}
	return nil, fmt.Errorf("%w: values of type %T are not a 1-D number array", errs.ErrSchema, values)
}
