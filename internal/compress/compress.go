// Package compress wraps staged batch-file streams with the decompressor
// named by the batch encoding.
package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression names a batch-file compression codec.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// ErrUnsupported is returned for unknown codecs.
var ErrUnsupported = errors.New("unsupported compression")

// Parse normalises a configured codec name. The empty string means None.
func Parse(name string) (Compression, error) {
	switch c := Compression(name); c {
	case "", None:
		return None, nil
	case Gzip, Zstd:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
}

// NewReader returns a reader yielding the decompressed content of r.
// Closing the returned reader releases decoder resources but not r.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case "", None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return zr, nil
	case Zstd:
		// Concurrency 1 keeps decoding on the caller's goroutine.
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return zstdReader{dec}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, c)
	}
}

type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}
