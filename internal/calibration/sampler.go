// Package calibration derives the 3×3 crosstalk correction matrix from three
// single-dominant-channel calibration images.
package calibration

import (
	"decouple-tool/internal/raster"
	"decouple-tool/pkg/colorutil"
	"decouple-tool/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// ROI band sampled on frames larger than minROIDim in both directions.
const (
	roiLow    = 0.4
	roiHigh   = 0.6
	minROIDim = 10
)

// ChannelVector holds the mean R, G and B intensity over a region.
type ChannelVector [3]float64

// String renders the vector as "(r, g, b)".
func (v ChannelVector) String() string {
	return colorutil.FormatTriple(v)
}

// ROI returns the region sampled for a width×height frame: the central
// 40%–60% band on both axes, or the whole frame when either side is 10
// pixels or less.
func ROI(width, height int) geometry.RectInt {
	if width > minROIDim && height > minROIDim {
		return geometry.CenterBand(width, height, roiLow, roiHigh)
	}
	return geometry.NewRectInt(0, 0, width, height)
}

// SampleROI returns the per-channel mean of buf inside ROI after
// subtracting blackLevel from every sample.
func SampleROI(buf *raster.Buffer, blackLevel float64) ChannelVector {
	roi := ROI(buf.Width, buf.Height)
	if roi.Empty() {
		return ChannelVector{}
	}

	n := roi.Area()
	samples := [3][]float64{
		make([]float64, 0, n),
		make([]float64, 0, n),
		make([]float64, 0, n),
	}
	x1, y1 := roi.Max()
	for y := roi.Y; y < y1; y++ {
		for x := roi.X; x < x1; x++ {
			i := buf.Offset(x, y)
			for c := 0; c < raster.Channels; c++ {
				samples[c] = append(samples[c], float64(buf.Pix[i+c])-blackLevel)
			}
		}
	}

	var v ChannelVector
	for c := range v {
		v[c] = stat.Mean(samples[c], nil)
	}
	return v
}
