package spatial

import (
	"errors"
	"fmt"
)

// ErrMissingProjection reports a boundary without a CRS when no fallback
// was supplied.
var ErrMissingProjection = errors.New("missing projection")

// ExtentError reports a failure to read or reproject a vector layer.
type ExtentError struct {
	Path string
	Err  error
}

func (e *ExtentError) Error() string {
	return fmt.Sprintf("spatial extent of %s: %v", e.Path, e.Err)
}

func (e *ExtentError) Unwrap() error {
	return e.Err
}

func extentError(path string, format string, args ...any) error {
	return &ExtentError{Path: path, Err: fmt.Errorf(format, args...)}
}
