// Package apperr defines the error taxonomy shared by the calibration,
// correction and mosaic stages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when a run is stopped through its context.
	ErrCancelled = errors.New("operation cancelled")

	// ErrDeclined is returned when the user rejects a confirmation prompt.
	ErrDeclined = errors.New("declined by user")

	// ErrBusy is returned when a run is started while another is active.
	ErrBusy = errors.New("a correction run is already in progress")
)

// ConfigError reports a missing or unusable required setting.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CalibrationCountError reports a calibration folder that does not hold
// exactly the expected number of images.
type CalibrationCountError struct {
	Dir      string
	Expected int
	Found    int
}

func (e *CalibrationCountError) Error() string {
	return fmt.Sprintf("calibration folder %s must contain exactly %d TIFF images, found %d",
		e.Dir, e.Expected, e.Found)
}

// SingularMatrixError reports an observation matrix that cannot be inverted
// reliably.
type SingularMatrixError struct {
	Cond   float64
	Reason string
}

func (e *SingularMatrixError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("observation matrix is singular: %s", e.Reason)
	}
	return fmt.Sprintf("observation matrix is singular (condition number %.4g)", e.Cond)
}

// EmptyInputError reports a batch with nothing to process.
type EmptyInputError struct {
	Dir string
}

func (e *EmptyInputError) Error() string {
	if e.Dir == "" {
		return "no input images to process"
	}
	return fmt.Sprintf("input folder %s contains no TIFF images", e.Dir)
}

// ImageIOError reports an image or cache file that could not be read or written.
type ImageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ImageIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ImageIOError) Unwrap() error { return e.Err }

// IsQuiet reports whether err ends a run without being a failure: the user
// declined a prompt or the run was cancelled.
func IsQuiet(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrDeclined)
}
