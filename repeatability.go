// Package repeatability recomputes the mf_repeatability field of archived
// GC-MD observation files.
//
// Derive turns an instrument standards log into a repeatability series: the
// centered rolling standard deviation, over 24 samples, of one species'
// standard measurements. Substitute writes such a series into an existing
// NetCDF dataset, resampled by nearest timestamp onto the field's own time
// axis. Nothing else in the dataset changes.
package repeatability

import (
	"fmt"

	"github.com/rtm0/repeatability/internal/dataset"
	"github.com/rtm0/repeatability/internal/errs"
	"github.com/rtm0/repeatability/internal/instrument"
	"github.com/rtm0/repeatability/internal/rolling"
	"github.com/rtm0/repeatability/series"
)

// Errors returned by Derive and Substitute. Match them with errors.Is.
var (
	ErrNotFound = errs.ErrNotFound
	ErrParse    = errs.ErrParse
	ErrFormat   = errs.ErrFormat
	ErrSchema   = errs.ErrSchema
	ErrIO       = errs.ErrIO
)

// Field is the name of the dataset field Substitute replaces.
const Field = dataset.Repeatability

// window is the rolling window used by Derive.
var window = rolling.Window{Size: 24, MinPeriods: 1}

// Derive reads the instrument log at sourcePath and returns the rolling
// repeatability of the species column. The species must match a normalized
// column name, e.g. "n2o" for a "N2O"/"C" header pair.
func Derive(sourcePath, species string) (series.Series, error) {
	log, err := instrument.ReadFile(sourcePath)
	if err != nil {
		return series.Series{}, err
	}
	col, err := log.Column(species)
	if err != nil {
		return series.Series{}, fmt.Errorf("%s: %w", sourcePath, err)
	}
	return series.Series{
		Name:   species,
		Times:  col.Times,
		Values: window.StdDev(col.Values),
	}, nil
}

// Substitute replaces the repeatability field of the dataset at datasetPath
// with s, resampled onto the field's time coordinate by nearest neighbor.
// The file is rewritten through a temporary file and a rename. The
// rewritten file is always netCDF classic: a netCDF-4 (HDF5) dataset comes
// back in the classic format with the same variables and attributes.
func Substitute(datasetPath string, s series.Series) error {
	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}
	times, err := ds.Times(Field)
	if err != nil {
		return fmt.Errorf("%s: %w", datasetPath, err)
	}
	values, err := s.Nearest(times)
	if err != nil {
		return err
	}
	if err := ds.Replace(Field, values); err != nil {
		return fmt.Errorf("%s: %w", datasetPath, err)
	}
	return ds.Save(datasetPath)
}
