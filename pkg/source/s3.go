package source

import (
	"context"
	"fmt"
	"io"
	"slices"
)

// OpenS3 returns the concatenated content of every object under prefix, in
// key order, with a newline between objects. Objects are opened one at a
// time as the stream is read.
func OpenS3(ctx context.Context, store ObjectStore, bucket, prefix string) (io.ReadCloser, error) {
	keys, err := store.ListKeys(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no objects found in s3://%s/%s", bucket, prefix)
	}
	keys = slices.Clone(keys)
	slices.Sort(keys)

	return &objectReader{ctx: ctx, store: store, bucket: bucket, keys: keys}, nil
}

type objectReader struct {
	ctx    context.Context
	store  ObjectStore
	bucket string
	keys   []string

	next      int
	current   io.ReadCloser
	separator bool
}

func (r *objectReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if r.separator {
			r.separator = false
			p[0] = '\n'
			return 1, nil
		}

		if r.current == nil {
			if r.next >= len(r.keys) {
				return 0, io.EOF
			}
			key := r.keys[r.next]
			body, err := r.store.Open(r.ctx, r.bucket, key)
			if err != nil {
				return 0, err
			}
			if r.current, err = Decompress(body); err != nil {
				return 0, fmt.Errorf("failed to read s3://%s/%s: %w", r.bucket, key, err)
			}
			r.next++
		}

		n, err := r.current.Read(p)
		if err == io.EOF {
			closeErr := r.current.Close()
			r.current = nil
			if closeErr != nil {
				return n, fmt.Errorf("failed to close s3://%s/%s: %w", r.bucket, r.keys[r.next-1], closeErr)
			}
			r.separator = r.next < len(r.keys)
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, fmt.Errorf("failed to read s3://%s/%s: %w", r.bucket, r.keys[r.next-1], err)
		}
		return n, nil
	}
}

func (r *objectReader) Close() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}
