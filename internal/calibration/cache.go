package calibration

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"decouple-tool/internal/apperr"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// CacheFileName is the sidecar written inside the calibration folder.
const CacheFileName = "calibration_matrix.npy"

// Cache stores a correction matrix as a NumPy float64 (3,3) array.
type Cache struct {
	Path string
}

// NewCache returns the cache for a calibration folder.
func NewCache(dir string) *Cache {
	return &Cache{Path: filepath.Join(dir, CacheFileName)}
}

// Stat reports whether the cache file exists and when it was last written.
func (c *Cache) Stat() (time.Time, bool) {
	info, err := os.Stat(c.Path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Load reads the cached matrix.
func (c *Cache) Load() (Matrix, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return Matrix{}, &apperr.ImageIOError{Op: "open", Path: c.Path, Err: err}
	}
	defer f.Close()

	var d mat.Dense
	if err := npyio.Read(bufio.NewReader(f), &d); err != nil {
		return Matrix{}, &apperr.ImageIOError{Op: "decode", Path: c.Path, Err: err}
	}
	m, err := NewMatrix(&d)
	if err != nil {
		return Matrix{}, &apperr.ImageIOError{Op: "decode", Path: c.Path, Err: err}
	}
	return m, nil
}

// Save overwrites the cache with m.
func (c *Cache) Save(m Matrix) error {
	f, err := os.Create(c.Path)
	if err != nil {
		return &apperr.ImageIOError{Op: "create", Path: c.Path, Err: err}
	}
	w := bufio.NewWriter(f)
	if err := npyio.Write(w, m.Dense()); err != nil {
		f.Close()
		return &apperr.ImageIOError{Op: "encode", Path: c.Path, Err: err}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &apperr.ImageIOError{Op: "write", Path: c.Path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &apperr.ImageIOError{Op: "close", Path: c.Path, Err: err}
	}
	return nil
}
