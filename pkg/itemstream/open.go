package itemstream

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const readBufSize = 1 << 20

// Open opens path for item iteration, transparently decompressing gzip and
// zstd inputs by extension. Closing the returned Source closes everything it
// opened.
func Open(path, selector string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	var r io.Reader = bufio.NewReaderSize(f, readBufSize)
	closers := []io.Closer{f}

	switch CompressionExt(path) {
	case ".gz", ".gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip input %s: %w", path, err)
		}
		closers = append(closers, gz)
		r = gz
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd input %s: %w", path, err)
		}
		closers = append(closers, closerFunc(func() error {
			zr.Close()
			return nil
		}))
		r = zr
	}

	src, err := New(r, selector)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		return nil, err
	}
	src.closers = closers
	return src, nil
}

// CompressionExt returns the recognized compression extension of path
// (lower-cased), or "" when the path is not compressed.
func CompressionExt(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gz", ".gzip", ".zst", ".zstd":
		return ext
	default:
		return ""
	}
}

// StripCompression removes a recognized compression extension, so naming
// decisions see the real extension underneath.
func StripCompression(path string) string {
	if ext := CompressionExt(path); ext != "" {
		return path[:len(path)-len(ext)]
	}
	return path
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
