package raster

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"decouple-tool/internal/apperr"

	"golang.org/x/image/tiff"
)

// Decoder loads an image file that the built-in TIFF reader rejected.
type Decoder func(path string) (*Buffer, error)

// Encoder writes buf to path as a 3-sample 16-bit TIFF.
type Encoder func(path string, buf *Buffer) error

var (
	fallbackMu sync.RWMutex
	fallback   Decoder
	encoder    Encoder
)

// RegisterFallback installs a decoder tried when x/image/tiff cannot read a
// file (for example JPEG-in-TIFF). Passing nil removes it.
func RegisterFallback(d Decoder) {
	fallbackMu.Lock()
	fallback = d
	fallbackMu.Unlock()
}

func fallbackDecoder() Decoder {
	fallbackMu.RLock()
	defer fallbackMu.RUnlock()
	return fallback
}

// RegisterEncoder replaces the built-in TIFF writer used by Save. Passing nil
// restores it.
func RegisterEncoder(e Encoder) {
	fallbackMu.Lock()
	encoder = e
	fallbackMu.Unlock()
}

func registeredEncoder() Encoder {
	fallbackMu.RLock()
	defer fallbackMu.RUnlock()
	return encoder
}

// Load reads a TIFF image from path into a new Buffer. Only RGB images are
// accepted; grayscale, palette and CMYK files fail with an ImageIOError.
func Load(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &apperr.ImageIOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	img, err := tiff.Decode(file)
	if err != nil {
		if fb := fallbackDecoder(); fb != nil {
			if buf, fbErr := fb(path); fbErr == nil {
				return buf, nil
			}
		}
		return nil, &apperr.ImageIOError{Op: "decode", Path: path, Err: err}
	}
	buf, err := FromImage(img)
	if err != nil {
		return nil, &apperr.ImageIOError{Op: "decode", Path: path, Err: err}
	}
	return buf, nil
}

// Save writes buf to path as a Deflate-compressed TIFF with three 16-bit
// samples per pixel, replacing any existing file.
func Save(path string, buf *Buffer) error {
	if enc := registeredEncoder(); enc != nil {
		if err := enc(path, buf); err != nil {
			return &apperr.ImageIOError{Op: "encode", Path: path, Err: err}
		}
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return &apperr.ImageIOError{Op: "create", Path: path, Err: err}
	}

	w := bufio.NewWriter(file)
	if err := encodeTIFF(w, buf); err != nil {
		file.Close()
		return &apperr.ImageIOError{Op: "encode", Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return &apperr.ImageIOError{Op: "write", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &apperr.ImageIOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// SupportedFormats returns the list of supported image extensions.
func SupportedFormats() []string {
	return []string{".tif", ".tiff"}
}

// IsSupportedFormat checks if the given path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// ListImages returns the supported image files directly inside dir, sorted by
// name. Names for which skip returns true are left out; skip may be nil.
func ListImages(dir string, skip func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &apperr.ImageIOError{Op: "list", Path: dir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		if skip != nil && skip(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
