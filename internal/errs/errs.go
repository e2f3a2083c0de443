// Package errs holds the sentinel errors shared by the extractor, the
// substituter and the batch driver. Callers match them with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when an input file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse is returned for structural problems: header/column mismatch,
	// unknown species, invalid series.
	ErrParse = errors.New("parse error")
	// ErrFormat is returned for malformed timestamp or numeric tokens.
	ErrFormat = errors.New("format error")
	// ErrSchema is returned when a dataset lacks an expected field or
	// coordinate.
	ErrSchema = errors.New("schema error")
	// ErrIO is returned for read and write failures.
	ErrIO = errors.New("i/o error")
)

// Open classifies an error returned while opening path: a missing file maps
// to ErrNotFound, anything else to ErrIO.
func Open(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
}
