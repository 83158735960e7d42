package objectstore

import (
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestDirObjectStore(t *testing.T) {
	store := DirObjectStore{Root: t.TempDir()}

	for _, key := range []string{"reports/a.json", "reports/b.json", "other"} {
		if err := store.PutObject(
			"bucket",
			key,
			strings.NewReader("data:"+key),
		); err != nil {
			t.Fatalf("PutObject(): unexpected err: %v", err)
		}
	}

	keys, err := store.ListObjects("bucket", "reports/")
	if err != nil {
		t.Fatalf("ListObjects(): unexpected err: %v", err)
	}
	if wanted := []string{"reports/a.json", "reports/b.json"}; !reflect.DeepEqual(
		wanted,
		keys,
	) {
		t.Fatalf("ListObjects(): wanted `%v`; found `%v`", wanted, keys)
	}

	body, err := store.GetObject("bucket", "reports/b.json")
	if err != nil {
		t.Fatalf("GetObject(): unexpected err: %v", err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("reading object: unexpected err: %v", err)
	}
	if string(data) != "data:reports/b.json" {
		t.Fatalf(
			"GetObject(): wanted `data:reports/b.json`; found `%s`",
			data,
		)
	}

	if err := store.DeleteObject("bucket", "other"); err != nil {
		t.Fatalf("DeleteObject(): unexpected err: %v", err)
	}
	if _, err := store.GetObject("bucket", "other"); AsObjectNotFoundErr(
		err,
	) == nil {
		t.Fatalf("GetObject(): wanted `*ObjectNotFoundErr`; found `%v`", err)
	}
	if err := store.DeleteObject("bucket", "other"); AsObjectNotFoundErr(
		err,
	) == nil {
		t.Fatalf("DeleteObject(): wanted `*ObjectNotFoundErr`; found `%v`", err)
	}

	if keys, err := store.ListObjects("missing", ""); err != nil ||
		len(keys) != 0 {
		t.Fatalf("ListObjects(): wanted no keys; found `%v` (%v)", keys, err)
	}
}

func TestDirObjectStore_InvalidKey(t *testing.T) {
	store := DirObjectStore{Root: t.TempDir()}
	for _, testCase := range []struct {
		name   string
		bucket string
		key    string
	}{
		{name: "escaping-key", bucket: "bucket", key: "../escape"},
		{name: "absolute-key", bucket: "bucket", key: "/abs"},
		{name: "empty-bucket", bucket: "", key: "key"},
		{name: "nested-bucket", bucket: "a/b", key: "key"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			err := store.PutObject(
				testCase.bucket,
				testCase.key,
				strings.NewReader(""),
			)
			if err == nil {
				t.Fatal("PutObject(): wanted error")
			}
		})
	}
}
