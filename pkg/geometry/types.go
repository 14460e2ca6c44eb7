// Package geometry provides the integer rectangles used to address image regions.
package geometry

import "image"

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a RectInt from its corners (x0,y0) inclusive and (x1,y1) exclusive.
func NewRectInt(x0, y0, x1, y1 int) RectInt {
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Area returns the number of pixels covered.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rectangle covers no pixels.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Max returns the exclusive bottom-right corner.
func (r RectInt) Max() (x, y int) {
	return r.X + r.Width, r.Y + r.Height
}

// Image converts to an image.Rectangle.
func (r RectInt) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// CenterBand returns the sub-rectangle of a width×height frame spanning the
// fractions [lo, hi) of each axis. Bounds are truncated toward zero.
func CenterBand(width, height int, lo, hi float64) RectInt {
	x0 := int(float64(width) * lo)
	x1 := int(float64(width) * hi)
	y0 := int(float64(height) * lo)
	y1 := int(float64(height) * hi)
	return NewRectInt(x0, y0, x1, y1)
}
