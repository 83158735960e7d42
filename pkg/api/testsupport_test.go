package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/jobstore"
	"github.com/weberc2/dupes/pkg/objectstore"
	"github.com/weberc2/dupes/pkg/trash"
	pz "github.com/weberc2/httpeasy"
	pztest "github.com/weberc2/httpeasy/testsupport"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testManager(t *testing.T) *Manager {
	t.Helper()
	var ids int
	dir := t.TempDir()
	return &Manager{
		Searches:     &jobstore.MemorySearchStore{},
		Options:      dupes.Options{Workers: 2},
		Trash:        &trash.Trash{Dir: filepath.Join(dir, "trash")},
		Exports:      &objectstore.DirObjectStore{Root: filepath.Join(dir, "exports")},
		ExportBucket: "reports",
		ExportPrefix: "dupes/",
		IDFunc: func() string {
			ids++
			return fmt.Sprintf("search-%d", ids)
		},
		TimeFunc: func() time.Time { return now },
	}
}

// writeTree creates `files` (relative path to contents) beneath a fresh
// temporary directory and returns the directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating parent directory for `%s`: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("writing file `%s`: %v", name, err)
		}
	}
	return root
}

// waitFinished polls the search record until its outcome has been recorded.
func waitFinished(t *testing.T, m *Manager, id string) jobstore.Search {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		search, err := m.FetchSearch(context.Background(), id)
		if err != nil {
			t.Fatalf("fetching search `%s`: %v", id, err)
		}
		if search.Finished != nil {
			return search
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("search `%s` didn't finish in time", id)
	return jobstore.Search{}
}

func decode(t *testing.T, rsp pz.Response, v interface{}) {
	t.Helper()
	data, err := pztest.ReadAll(rsp.Data)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding response body `%s`: %v", data, err)
	}
}
