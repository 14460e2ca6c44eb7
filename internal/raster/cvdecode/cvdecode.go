// Package cvdecode reads and writes images through OpenCV. The reader covers
// TIFF encodings the pure Go decoder does not handle. It needs cgo and is
// only linked into the binaries, which register it with raster.RegisterFallback
// and raster.RegisterEncoder.
package cvdecode

import (
	"encoding/binary"
	"fmt"

	"decouple-tool/internal/raster"

	"gocv.io/x/gocv"
)

const (
	// cv::IMWRITE_TIFF_COMPRESSION
	imwriteTiffCompression = 259
	// TIFF compression code for Adobe Deflate (zlib).
	tiffDeflate = 8
)

// Register installs Decode as the raster fallback decoder and Encode as the
// raster encoder.
func Register() {
	raster.RegisterFallback(Decode)
	raster.RegisterEncoder(Encode)
}

// Decode reads path as a 3-channel image. Files with any other channel count
// are rejected. 8-bit samples keep their values; OpenCV's BGR order is
// swapped to RGB.
func Decode(path string) (*raster.Buffer, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("opencv could not read %s", path)
	}
	defer mat.Close()

	if mat.Channels() != raster.Channels {
		return nil, fmt.Errorf("%s has %d channels, need %d", path, mat.Channels(), raster.Channels)
	}

	wide := mat
	switch mat.Type() {
	case gocv.MatTypeCV16UC3:
	case gocv.MatTypeCV8UC3:
		wide = gocv.NewMat()
		defer wide.Close()
		mat.ConvertTo(&wide, gocv.MatTypeCV16UC3)
	default:
		return nil, fmt.Errorf("unsupported pixel type %v in %s", mat.Type(), path)
	}

	if !wide.IsContinuous() {
		clone := wide.Clone()
		defer clone.Close()
		wide = clone
	}
	data, err := wide.DataPtrUint16()
	if err != nil {
		return nil, err
	}

	buf := raster.NewBuffer(wide.Cols(), wide.Rows())
	for i := 0; i+2 < len(data) && i+2 < len(buf.Pix); i += raster.Channels {
		buf.Pix[i] = data[i+2]
		buf.Pix[i+1] = data[i+1]
		buf.Pix[i+2] = data[i]
	}
	return buf, nil
}

// Encode writes buf as a Deflate-compressed 3-channel 16-bit TIFF.
func Encode(path string, buf *raster.Buffer) error {
	data := make([]byte, len(buf.Pix)*2)
	for i := 0; i+2 < len(buf.Pix); i += raster.Channels {
		binary.NativeEndian.PutUint16(data[2*i:], buf.Pix[i+2])
		binary.NativeEndian.PutUint16(data[2*i+2:], buf.Pix[i+1])
		binary.NativeEndian.PutUint16(data[2*i+4:], buf.Pix[i])
	}

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV16UC3, data)
	if err != nil {
		return err
	}
	defer mat.Close()

	params := []int{imwriteTiffCompression, tiffDeflate}
	if !gocv.IMWriteWithParams(path, mat, params) {
		return fmt.Errorf("opencv could not write %s", path)
	}
	return nil
}
