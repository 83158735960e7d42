package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/weberc2/dupes/pkg/objectstore"
)

// Key returns the object key for the report of search `id` over `root`:
// `<prefix><slug(root)>/<id>.json`.
func Key(prefix, root, id string) string {
	return prefix + slug.Make(root) + "/" + id + ".json"
}

// Export writes `report` to `store` as gzipped JSON and returns its key.
func Export(
	store objectstore.ObjectStore,
	bucket string,
	prefix string,
	report *Report,
) (key string, err error) {
	key = Key(prefix, report.Root, report.ID)
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"exporting report for search `%s` to `%s/%s`: %w",
				report.ID,
				bucket,
				key,
				err,
			)
		}
	}()

	data, err := json.Marshal(report)
	if err != nil {
		err = fmt.Errorf("marshaling report: %w", err)
		return
	}

	gzipStore := objectstore.GzipObjectStore{ObjectStore: store}
	err = gzipStore.PutObject(bucket, key, bytes.NewReader(data))
	return
}

// Import reads a report written by `Export`.
func Import(
	store objectstore.ObjectStore,
	bucket string,
	key string,
) (report Report, err error) {
	gzipStore := objectstore.GzipObjectStore{ObjectStore: store}
	body, err := gzipStore.GetObject(bucket, key)
	if err != nil {
		err = fmt.Errorf("importing report `%s/%s`: %w", bucket, key, err)
		return
	}
	defer func() { err = errors.Join(err, body.Close()) }()

	if err = json.NewDecoder(body).Decode(&report); err != nil {
		err = fmt.Errorf(
			"importing report `%s/%s`: decoding json: %w",
			bucket,
			key,
			err,
		)
	}
	return
}
