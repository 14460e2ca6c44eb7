package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
)

// TIFF tag numbers written by encodeTIFF.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
)

const (
	dtShort = 3
	dtLong  = 4

	compressionDeflate = 8
	photometricRGB     = 2
	planarChunky       = 1

	tiffHeaderLen = 8
	ifdEntryLen   = 12
)

var errEmptyImage = errors.New("raster: cannot encode an empty image")

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	value    uint32
}

// encodeTIFF writes buf as a little-endian baseline TIFF with three 16-bit
// samples per pixel, no alpha, and a single Deflate-compressed strip.
func encodeTIFF(w io.Writer, buf *Buffer) error {
	if buf.Width <= 0 || buf.Height <= 0 {
		return errEmptyImage
	}
	le := binary.LittleEndian

	var strip bytes.Buffer
	zw := zlib.NewWriter(&strip)
	raw := make([]byte, buf.Width*Channels*2)
	rowLen := buf.Width * Channels
	for y := 0; y < buf.Height; y++ {
		row := buf.Pix[y*rowLen : (y+1)*rowLen]
		for i, v := range row {
			le.PutUint16(raw[2*i:], v)
		}
		if _, err := zw.Write(raw); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	// Layout: header, strip, padding to a word boundary, the per-channel
	// bit depths, then the IFD.
	stripLen := uint32(strip.Len())
	pad := stripLen % 2
	bitsOff := tiffHeaderLen + stripLen + pad
	ifdOff := bitsOff + 2*Channels

	entries := []ifdEntry{
		{tagImageWidth, dtLong, 1, uint32(buf.Width)},
		{tagImageLength, dtLong, 1, uint32(buf.Height)},
		{tagBitsPerSample, dtShort, Channels, bitsOff},
		{tagCompression, dtShort, 1, compressionDeflate},
		{tagPhotometric, dtShort, 1, photometricRGB},
		{tagStripOffsets, dtLong, 1, tiffHeaderLen},
		{tagSamplesPerPixel, dtShort, 1, Channels},
		{tagRowsPerStrip, dtLong, 1, uint32(buf.Height)},
		{tagStripByteCounts, dtLong, 1, stripLen},
		{tagPlanarConfig, dtShort, 1, planarChunky},
	}

	var out bytes.Buffer
	out.Grow(int(ifdOff) + 2 + len(entries)*ifdEntryLen + 4)
	out.WriteString("II")
	binary.Write(&out, le, uint16(42))
	binary.Write(&out, le, ifdOff)
	out.Write(strip.Bytes())
	if pad == 1 {
		out.WriteByte(0)
	}
	for i := 0; i < Channels; i++ {
		binary.Write(&out, le, uint16(16))
	}

	binary.Write(&out, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&out, le, e.tag)
		binary.Write(&out, le, e.datatype)
		binary.Write(&out, le, e.count)
		if e.datatype == dtShort && e.count == 1 {
			// Inline SHORT values are left-justified in the 4-byte field.
			binary.Write(&out, le, uint16(e.value))
			binary.Write(&out, le, uint16(0))
		} else {
			binary.Write(&out, le, e.value)
		}
	}
	binary.Write(&out, le, uint32(0))

	_, err := w.Write(out.Bytes())
	return err
}
