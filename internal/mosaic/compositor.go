package mosaic

import (
	"context"
	"path/filepath"
	"strings"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/raster"

	"github.com/rs/zerolog"
)

// SheetName is the file name of the contact sheet.
const SheetName = "contactsheet.tiff"

// DefaultStride is the default downsampling step.
const DefaultStride = 10

// MinImages is the smallest batch that gets a contact sheet.
const MinImages = 2

// IsSheet reports whether name looks like a contact sheet.
func IsSheet(name string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(name)), "contactsheet")
}

// Compositor writes contact sheets.
type Compositor struct {
	Columns int
	Stride  int
	Logger  zerolog.Logger
}

// NewCompositor creates a Compositor with the default grid and stride.
func NewCompositor(logger zerolog.Logger) *Compositor {
	return &Compositor{
		Columns: DefaultColumns,
		Stride:  DefaultStride,
		Logger:  logger,
	}
}

// Compose downsamples each image in paths and writes the contact sheet into
// targetDir. Existing contact sheets in paths are skipped. With fewer than
// two images nothing is written and the returned path is empty.
func (c *Compositor) Compose(ctx context.Context, paths []string, targetDir string) (string, error) {
	var tiles []string
	for _, p := range paths {
		if !IsSheet(p) {
			tiles = append(tiles, p)
		}
	}
	if len(tiles) < MinImages {
		c.Logger.Debug().Int("images", len(tiles)).Msg("too few images for a contact sheet")
		return "", nil
	}

	sheet := NewSheet(c.Columns)
	for _, p := range tiles {
		if ctx.Err() != nil {
			return "", apperr.ErrCancelled
		}
		buf, err := raster.Load(p)
		if err != nil {
			return "", err
		}
		sheet.AddTile(buf.Downsample(c.Stride))
	}

	out := filepath.Join(targetDir, SheetName)
	if err := raster.Save(out, sheet.Render()); err != nil {
		return "", err
	}
	w, h := sheet.Size()
	c.Logger.Info().Str("path", out).Int("tiles", len(tiles)).Int("width", w).Int("height", h).Msg("contact sheet written")
	return out, nil
}

// ComposeDir builds the contact sheet from every image in dir, excluding
// earlier contact sheets.
func (c *Compositor) ComposeDir(ctx context.Context, dir string) (string, error) {
	paths, err := raster.ListImages(dir, IsSheet)
	if err != nil {
		return "", err
	}
	return c.Compose(ctx, paths, dir)
}
