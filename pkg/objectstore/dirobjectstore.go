package objectstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirObjectStore stores objects as files beneath `Root`. Each bucket is a
// subdirectory and each key a slash-separated path within it.
type DirObjectStore struct {
	Root string
}

func (store *DirObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"putting object in bucket `%s` at key `%s`: %w",
				bucket,
				key,
				err,
			)
		}
	}()

	var path string
	if path, err = store.path(bucket, key); err != nil {
		return
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}

	// write to a temporary file so readers never see a partial object
	var file *os.File
	if file, err = os.CreateTemp(filepath.Dir(path), ".put-*"); err != nil {
		return
	}
	temp := file.Name()
	_, err = io.Copy(file, data)
	if err = errors.Join(err, file.Close()); err != nil {
		err = errors.Join(err, os.Remove(temp))
		return
	}

	if err = os.Rename(temp, path); err != nil {
		err = errors.Join(err, os.Remove(temp))
	}
	return
}

func (store *DirObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	path, err := store.path(bucket, key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf(
			"getting object from bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return file, nil
}

func (store *DirObjectStore) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	dir := filepath.Join(store.Root, bucket)
	var keys []string
	if err := filepath.WalkDir(
		dir,
		func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".put-") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return nil
		},
	); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return keys, fmt.Errorf(
			"listing objects in bucket `%s` with prefix `%s`: %w",
			bucket,
			prefix,
			err,
		)
	}
	sort.Strings(keys)
	return keys, nil
}

func (store *DirObjectStore) DeleteObject(bucket, key string) error {
	path, err := store.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return fmt.Errorf(
			"deleting object from bucket `%s` at key `%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return nil
}

// path resolves an object's file path, refusing keys which would escape the
// bucket directory.
func (store *DirObjectStore) path(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == ".." ||
		!fs.ValidPath(key) || key == "." {
		return "", &InvalidKeyErr{Bucket: bucket, Key: key}
	}
	return filepath.Join(store.Root, bucket, filepath.FromSlash(key)), nil
}

type InvalidKeyErr struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (err *InvalidKeyErr) Error() string {
	return fmt.Sprintf(
		"invalid object key (bucket=%s) (key=%s)",
		err.Bucket,
		err.Key,
	)
}
