package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rtm0/repeatability/internal/errs"
)

// copyFile copies src to dst, creating dst's directory and replacing any
// existing dst. The copy keeps src's permission bits.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errs.Open(src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", errs.ErrIO, src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", errs.ErrIO, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: copy %s to %s: %v", errs.ErrIO, src, dst, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	return nil
}
