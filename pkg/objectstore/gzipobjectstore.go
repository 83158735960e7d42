package objectstore

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

// GzipObjectStore compresses objects on their way into the wrapped store and
// decompresses them on their way out.
type GzipObjectStore struct {
	ObjectStore

	// Level is the gzip compression level. Zero selects
	// `gzip.BestCompression`.
	Level int
}

func (os *GzipObjectStore) PutObject(bucket, key string, data io.ReadSeeker) error {
	var b bytes.Buffer
	level := os.Level
	if level == 0 {
		level = gzip.BestCompression
	}
	w, err := gzip.NewWriterLevel(&b, level)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("compressing data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return os.ObjectStore.PutObject(bucket, key, bytes.NewReader(b.Bytes()))
}

type GzipReadCloser struct {
	io.ReadCloser
	r *gzip.Reader
}

func (grc *GzipReadCloser) Read(data []byte) (int, error) {
	return grc.r.Read(data)
}

func (grc *GzipReadCloser) Close() error {
	return errors.Join(grc.r.Close(), grc.ReadCloser.Close())
}

func (os *GzipObjectStore) GetObject(bucket, key string) (io.ReadCloser, error) {
	body, err := os.ObjectStore.GetObject(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("getting object from storage: %w", err)
	}
	r, err := gzip.NewReader(body)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("creating gzip reader: %w", err),
			body.Close(),
		)
	}
	return &GzipReadCloser{ReadCloser: body, r: r}, nil
}
