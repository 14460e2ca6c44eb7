// Package mosaic builds the contact sheet previewing a corrected batch.
package mosaic

import (
	"image"

	"decouple-tool/internal/raster"

	"golang.org/x/image/draw"
)

// DefaultColumns is the fixed number of tiles per row.
const DefaultColumns = 6

// Sheet lays tiles out row-major on a fixed-column grid. Every cell is
// as large as the largest tile; smaller tiles sit in the top-left corner.
type Sheet struct {
	Columns    int
	TileWidth  int
	TileHeight int
	Tiles      []*raster.Buffer
}

// NewSheet creates an empty sheet.
func NewSheet(columns int) *Sheet {
	if columns < 1 {
		columns = DefaultColumns
	}
	return &Sheet{Columns: columns}
}

// AddTile appends a tile and grows the cell size to fit it.
func (s *Sheet) AddTile(tile *raster.Buffer) {
	s.Tiles = append(s.Tiles, tile)
	if tile.Width > s.TileWidth {
		s.TileWidth = tile.Width
	}
	if tile.Height > s.TileHeight {
		s.TileHeight = tile.Height
	}
}

// Rows returns the number of grid rows.
func (s *Sheet) Rows() int {
	return (len(s.Tiles) + s.Columns - 1) / s.Columns
}

// Size returns the canvas dimensions.
func (s *Sheet) Size() (width, height int) {
	return s.Columns * s.TileWidth, s.Rows() * s.TileHeight
}

// Origin returns the top-left corner of cell i.
func (s *Sheet) Origin(i int) image.Point {
	return image.Pt((i%s.Columns)*s.TileWidth, (i/s.Columns)*s.TileHeight)
}

// Render pastes every tile onto a black canvas.
func (s *Sheet) Render() *raster.Buffer {
	w, h := s.Size()
	canvas := raster.NewBuffer(w, h)
	for i, tile := range s.Tiles {
		draw.Copy(canvas, s.Origin(i), tile, tile.Bounds(), draw.Src, nil)
	}
	return canvas
}
