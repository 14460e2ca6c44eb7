package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQuiet(t *testing.T) {
	assert.True(t, IsQuiet(ErrCancelled))
	assert.True(t, IsQuiet(ErrDeclined))
	assert.True(t, IsQuiet(fmt.Errorf("build: %w", ErrCancelled)))
	assert.False(t, IsQuiet(&SingularMatrixError{Cond: 1e17}))
	assert.False(t, IsQuiet(nil))
}

func TestCalibrationCountMessage(t *testing.T) {
	err := &CalibrationCountError{Dir: "/cal", Expected: 3, Found: 4}
	assert.Contains(t, err.Error(), "exactly 3")
	assert.Contains(t, err.Error(), "found 4")
}

func TestImageIOErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("batch: %w", &ImageIOError{Op: "open", Path: "x.tif", Err: os.ErrNotExist})

	var ioErr *ImageIOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "x.tif", ioErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
