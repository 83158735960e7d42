// Package objectstore stores search reports as objects in buckets.
package objectstore

import (
	"errors"
	"fmt"
	"io"
)

type ObjectStore interface {
	PutObject(bucket, key string, data io.ReadSeeker) error
	GetObject(bucket, key string) (io.ReadCloser, error)
	ListObjects(bucket, prefix string) ([]string, error)
	DeleteObject(bucket, key string) error
}

type ObjectNotFoundErr struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (err *ObjectNotFoundErr) Error() string {
	return fmt.Sprintf(
		"object not found (bucket=%s) (key=%s)",
		err.Bucket,
		err.Key,
	)
}

func AsObjectNotFoundErr(err error) (e *ObjectNotFoundErr) {
	errors.As(err, &e)
	return
}
