// Package source opens access log inputs as one newline-delimited stream.
// Local files, stdin and S3 objects are supported; gzip content is
// decompressed transparently.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Stdin is the path naming standard input
const Stdin = "-"

var gzipMagic = []byte{0x1f, 0x8b}

// ObjectStore lists and reads objects of a bucket
type ObjectStore interface {
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// OpenFile opens a local log file, or stdin for "-"
func OpenFile(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return Decompress(io.NopCloser(os.Stdin))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	rc, err := Decompress(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}
	return rc, nil
}

// Decompress returns a reader over the content of rc, gunzipping it when it
// starts with the gzip magic number. Closing the result closes rc.
func Decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to read content header: %w", err)
	}
	if len(magic) < len(gzipMagic) || magic[0] != gzipMagic[0] || magic[1] != gzipMagic[1] {
		return &readCloser{Reader: br, closers: []io.Closer{rc}}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
