package mosaic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/raster"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTiles(t *testing.T, dir string, n, size int) []string {
	t.Helper()
	var paths []string
	for i := 0; i < n; i++ {
		buf := raster.NewBuffer(size, size)
		v := uint16(1000 * (i + 1))
		buf.Fill([3]uint16{v, v, v})
		p := filepath.Join(dir, fmt.Sprintf("img%02d.tif", i))
		require.NoError(t, raster.Save(p, buf))
		paths = append(paths, p)
	}
	return paths
}

func TestSevenTilesLayout(t *testing.T) {
	dir := t.TempDir()
	paths := writeTiles(t, dir, 7, 100)

	c := NewCompositor(zerolog.Nop())
	out, err := c.Compose(context.Background(), paths, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SheetName), out)

	sheet, err := raster.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 6*10, sheet.Width)
	assert.Equal(t, 2*10, sheet.Height)

	assert.Equal(t, [3]uint16{1000, 1000, 1000}, sheet.Pixel(0, 0))
	assert.Equal(t, [3]uint16{6000, 6000, 6000}, sheet.Pixel(59, 9))
	// Seventh tile starts row 1; the rest of the row is black.
	assert.Equal(t, [3]uint16{7000, 7000, 7000}, sheet.Pixel(0, 10))
	assert.Equal(t, [3]uint16{7000, 7000, 7000}, sheet.Pixel(9, 19))
	assert.Equal(t, [3]uint16{0, 0, 0}, sheet.Pixel(10, 10))
	assert.Equal(t, [3]uint16{0, 0, 0}, sheet.Pixel(59, 19))
}

func TestStrideFive(t *testing.T) {
	dir := t.TempDir()
	paths := writeTiles(t, dir, 3, 100)

	c := NewCompositor(zerolog.Nop())
	c.Stride = 5
	out, err := c.Compose(context.Background(), paths, dir)
	require.NoError(t, err)

	sheet, err := raster.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 6*20, sheet.Width)
	assert.Equal(t, 20, sheet.Height)
}

func TestMixedTileSizesAlignTopLeft(t *testing.T) {
	s := NewSheet(DefaultColumns)
	big := raster.NewBuffer(4, 3)
	big.Fill([3]uint16{1, 1, 1})
	small := raster.NewBuffer(2, 1)
	small.Fill([3]uint16{2, 2, 2})
	s.AddTile(small)
	s.AddTile(big)

	canvas := s.Render()
	assert.Equal(t, 24, canvas.Width)
	assert.Equal(t, 3, canvas.Height)
	assert.Equal(t, [3]uint16{2, 2, 2}, canvas.Pixel(1, 0))
	assert.Equal(t, [3]uint16{0, 0, 0}, canvas.Pixel(2, 0))
	assert.Equal(t, [3]uint16{0, 0, 0}, canvas.Pixel(0, 1))
	assert.Equal(t, [3]uint16{1, 1, 1}, canvas.Pixel(4, 2))
}

func TestTooFewImagesIsNoop(t *testing.T) {
	dir := t.TempDir()
	paths := writeTiles(t, dir, 1, 20)

	out, err := NewCompositor(zerolog.Nop()).Compose(context.Background(), paths, dir)
	require.NoError(t, err)
	assert.Empty(t, out)
	_, statErr := os.Stat(filepath.Join(dir, SheetName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestComposeDirExcludesSheet(t *testing.T) {
	dir := t.TempDir()
	writeTiles(t, dir, 2, 20)
	c := NewCompositor(zerolog.Nop())

	_, err := c.ComposeDir(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, raster.Save(filepath.Join(dir, "old_ContactSheet.tif"), raster.NewBuffer(500, 500)))

	out, err := c.ComposeDir(context.Background(), dir)
	require.NoError(t, err)
	sheet, err := raster.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 6*2, sheet.Width)
	assert.Equal(t, 2, sheet.Height)
}

func TestComposeCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := writeTiles(t, dir, 3, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompositor(zerolog.Nop()).Compose(ctx, paths, dir)
	assert.ErrorIs(t, err, apperr.ErrCancelled)
}

func TestIsSheet(t *testing.T) {
	assert.True(t, IsSheet("/out/contactsheet.tiff"))
	assert.True(t, IsSheet("ContactSheet_v2.TIF"))
	assert.False(t, IsSheet("/contactsheet/img.tif"))
	assert.False(t, IsSheet("sheet.tif"))
}
