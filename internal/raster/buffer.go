// Package raster provides the 16-bit RGB pixel buffer and TIFF loading and saving.
package raster

import (
	"fmt"
	"image"
	"image/color"
)

// Channels is the fixed number of interleaved samples per pixel.
const Channels = 3

// Buffer is a dense H×W×3 image of 16-bit samples, row-major with the
// channels interleaved (R, G, B). Buffer implements draw.Image so it can be
// used directly as a compositing target.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewBuffer allocates a zero-filled (black) buffer.
func NewBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height*Channels),
	}
}

// Offset returns the index of the first sample of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * Channels
}

// Pixel returns the three samples at (x, y).
func (b *Buffer) Pixel(x, y int) [3]uint16 {
	i := b.Offset(x, y)
	return [3]uint16{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// SetPixel stores the three samples at (x, y).
func (b *Buffer) SetPixel(x, y int, p [3]uint16) {
	i := b.Offset(x, y)
	b.Pix[i] = p[0]
	b.Pix[i+1] = p[1]
	b.Pix[i+2] = p[2]
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]uint16, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// Fill sets every pixel to p.
func (b *Buffer) Fill(p [3]uint16) {
	for i := 0; i < len(b.Pix); i += Channels {
		b.Pix[i] = p[0]
		b.Pix[i+1] = p[1]
		b.Pix[i+2] = p[2]
	}
}

// Downsample keeps every stride-th pixel along each axis, starting at the
// origin. The result is ceil(W/stride) × ceil(H/stride). A stride below 1 is
// treated as 1.
func (b *Buffer) Downsample(stride int) *Buffer {
	if stride < 1 {
		stride = 1
	}
	w := (b.Width + stride - 1) / stride
	h := (b.Height + stride - 1) / stride
	out := NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := b.Offset(x*stride, y*stride)
			dst := out.Offset(x, y)
			copy(out.Pix[dst:dst+Channels], b.Pix[src:src+Channels])
		}
	}
	return out
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.RGBA64Model }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image. Pixels are always opaque.
func (b *Buffer) At(x, y int) color.Color {
	return b.RGBA64At(x, y)
}

// RGBA64At implements image.RGBA64Image.
func (b *Buffer) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{X: x, Y: y}.In(b.Bounds())) {
		return color.RGBA64{}
	}
	i := b.Offset(x, y)
	return color.RGBA64{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: 0xffff}
}

// Set implements draw.Image. Alpha is discarded.
func (b *Buffer) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(b.Bounds())) {
		return
	}
	c64 := color.RGBA64Model.Convert(c).(color.RGBA64)
	b.SetPixel(x, y, [3]uint16{c64.R, c64.G, c64.B})
}

// SetRGBA64 implements draw.RGBA64Image. Alpha is discarded.
func (b *Buffer) SetRGBA64(x, y int, c color.RGBA64) {
	if !(image.Point{X: x, Y: y}.In(b.Bounds())) {
		return
	}
	b.SetPixel(x, y, [3]uint16{c.R, c.G, c.B})
}

// RGBA64 converts the buffer to an opaque *image.RGBA64.
func (b *Buffer) RGBA64() *image.RGBA64 {
	img := image.NewRGBA64(b.Bounds())
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			s := b.Offset(x, y)
			d := img.PixOffset(x, y)
			for c := 0; c < Channels; c++ {
				v := b.Pix[s+c]
				img.Pix[d+2*c] = uint8(v >> 8)
				img.Pix[d+2*c+1] = uint8(v)
			}
			img.Pix[d+6] = 0xff
			img.Pix[d+7] = 0xff
		}
	}
	return img
}

// FromImage copies the color channels of img into a new Buffer. 16-bit RGB
// images are copied sample-for-sample. 8-bit RGB samples keep their values
// (0-255) in the 16-bit buffer without rescaling. Any other color model is
// rejected.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	out := NewBuffer(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.RGBA64:
		copyWide(out, src.Pix, bounds, src.PixOffset)
	case *image.NRGBA64:
		copyWide(out, src.Pix, bounds, src.PixOffset)
	case *image.RGBA:
		copyNarrow(out, src.Pix, bounds, src.PixOffset)
	case *image.NRGBA:
		copyNarrow(out, src.Pix, bounds, src.PixOffset)
	default:
		return nil, fmt.Errorf("unsupported color model %T: need 3-channel RGB", img)
	}
	return out, nil
}

// copyWide copies big-endian 16-bit RGBA samples, dropping alpha.
func copyWide(dst *Buffer, pix []uint8, bounds image.Rectangle, pixOffset func(x, y int) int) {
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := pixOffset(x, y)
			d := dst.Offset(x-bounds.Min.X, y-bounds.Min.Y)
			for c := 0; c < Channels; c++ {
				dst.Pix[d+c] = uint16(pix[s+2*c])<<8 | uint16(pix[s+2*c+1])
			}
		}
	}
}

// copyNarrow copies 8-bit RGBA samples unscaled, dropping alpha.
func copyNarrow(dst *Buffer, pix []uint8, bounds image.Rectangle, pixOffset func(x, y int) int) {
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := pixOffset(x, y)
			d := dst.Offset(x-bounds.Min.X, y-bounds.Min.Y)
			for c := 0; c < Channels; c++ {
				dst.Pix[d+c] = uint16(pix[s+c])
			}
		}
	}
}
