package encoding

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// CompressionType represents different compression algorithms
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGZIP
	CompressionZLIB
	CompressionZSTD
)

func (c CompressionType) String() string {
	switch c {
	case CompressionGZIP:
		return "gzip"
	case CompressionZLIB:
		return "zlib"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

var extensions = map[string]CompressionType{
	".gz":   CompressionGZIP,
	".gzip": CompressionGZIP,
	".zz":   CompressionZLIB,
	".zlib": CompressionZLIB,
	".zst":  CompressionZSTD,
	".zstd": CompressionZSTD,
}

// DetectCompression returns the compression implied by the file extension and
// the path with that extension removed. Unknown extensions mean no compression.
func DetectCompression(path string) (CompressionType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := extensions[ext]; ok {
		return c, strings.TrimSuffix(path, filepath.Ext(path))
	}
	return CompressionNone, path
}

// NewReader wraps r with a decompressor. Closing the result does not close r.
func NewReader(r io.Reader, c CompressionType) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGZIP:
		return gzip.NewReader(r)
	case CompressionZLIB:
		return zlib.NewReader(r)
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", c)
	}
}

// NewWriter wraps w with a compressor. Close flushes the stream but does not
// close w.
func NewWriter(w io.Writer, c CompressionType) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGZIP:
		return gzip.NewWriter(w), nil
	case CompressionZLIB:
		return zlib.NewWriter(w), nil
	case CompressionZSTD:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
