// Package correction applies a correction matrix to a batch of images.
package correction

import (
	"context"
	"path/filepath"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/raster"
	"decouple-tool/pkg/colorutil"

	"github.com/rs/zerolog"
)

// Apply returns a new buffer with m applied to every pixel of src after
// subtracting blackLevel. Results are clipped to [0, 65535] and truncated.
func Apply(src *raster.Buffer, m calibration.Matrix, blackLevel float64) *raster.Buffer {
	out := raster.NewBuffer(src.Width, src.Height)
	for i := 0; i < len(src.Pix); i += raster.Channels {
		in := [3]float64{
			float64(src.Pix[i]) - blackLevel,
			float64(src.Pix[i+1]) - blackLevel,
			float64(src.Pix[i+2]) - blackLevel,
		}
		v := m.Apply(in)
		out.Pix[i] = colorutil.Clamp16(v[0])
		out.Pix[i+1] = colorutil.Clamp16(v[1])
		out.Pix[i+2] = colorutil.Clamp16(v[2])
	}
	return out
}

// Sink receives corrected buffers.
type Sink interface {
	Write(path string, buf *raster.Buffer) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(path string, buf *raster.Buffer) error

// Write implements Sink.
func (f SinkFunc) Write(path string, buf *raster.Buffer) error { return f(path, buf) }

// FileSink writes Deflate-compressed TIFFs to disk.
var FileSink Sink = SinkFunc(raster.Save)

// ProgressFunc is called after each image with the number done so far.
type ProgressFunc func(done, total int, name string)

// Corrector runs Apply over a list of files.
type Corrector struct {
	Matrix     calibration.Matrix
	BlackLevel float64
	// Sink receives each result; nil means FileSink.
	Sink     Sink
	Progress ProgressFunc
	Logger   zerolog.Logger
}

// NewCorrector creates a Corrector writing to disk.
func NewCorrector(m calibration.Matrix, blackLevel float64, logger zerolog.Logger) *Corrector {
	return &Corrector{
		Matrix:     m,
		BlackLevel: blackLevel,
		Sink:       FileSink,
		Logger:     logger,
	}
}

// Run corrects inputs in order, writing each result under outputDir with
// the input's file name. The first failure aborts the batch; files already
// written are left in place. It returns the written paths in input order.
func (c *Corrector) Run(ctx context.Context, inputs []string, outputDir string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, &apperr.EmptyInputError{}
	}

	sink := c.Sink
	if sink == nil {
		sink = FileSink
	}

	written := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if ctx.Err() != nil {
			return written, apperr.ErrCancelled
		}

		name := filepath.Base(in)
		src, err := raster.Load(in)
		if err != nil {
			return written, err
		}
		out := Apply(src, c.Matrix, c.BlackLevel)

		dst := filepath.Join(outputDir, name)
		if err := sink.Write(dst, out); err != nil {
			return written, err
		}
		written = append(written, dst)

		c.Logger.Debug().Str("file", name).Int("index", i+1).Int("total", len(inputs)).Msg("corrected")
		if c.Progress != nil {
			c.Progress(i+1, len(inputs), name)
		}
	}
	return written, nil
}
