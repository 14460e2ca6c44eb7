// Package app runs a correction job end to end and reports its progress and
// outcome to the front-end through events.
package app

import (
	"os"
	"strings"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/mosaic"
)

// Config holds the settings for one run.
type Config struct {
	CalibrationDir string
	InputDir       string
	OutputDir      string
	BlackLevel     float64
	CachePolicy    calibration.CachePolicy
	// MosaicStride is the contact sheet downsampling step; 0 means the default.
	MosaicStride int
}

// Validate checks that every required path is set.
func (c *Config) Validate() error {
	fields := []struct{ name, value string }{
		{"rgb", c.CalibrationDir},
		{"input", c.InputDir},
		{"output", c.OutputDir},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &apperr.ConfigError{Field: f.name, Reason: "path must not be empty"}
		}
	}
	if c.BlackLevel < 0 {
		return &apperr.ConfigError{Field: "black", Reason: "black level must not be negative"}
	}
	if c.MosaicStride < 0 {
		return &apperr.ConfigError{Field: "stride", Reason: "stride must not be negative"}
	}
	return nil
}

// EnsureOutputDir creates the output folder if it does not exist.
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return &apperr.ConfigError{Field: "output", Reason: "cannot create output folder", Err: err}
	}
	return nil
}

func (c *Config) stride() int {
	if c.MosaicStride > 0 {
		return c.MosaicStride
	}
	return mosaic.DefaultStride
}
