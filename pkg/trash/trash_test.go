package trash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var deleted = time.Date(2024, 3, 1, 12, 30, 45, 0, time.Local)

func newTrash(t *testing.T) (*Trash, string) {
	t.Helper()
	dir := t.TempDir()
	return &Trash{
		Dir:      filepath.Join(dir, "Trash"),
		TimeFunc: func() time.Time { return deleted },
	}, dir
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing file `%s`: %v", path, err)
	}
}

func TestTrash_Put(t *testing.T) {
	trash, dir := newTrash(t)
	first := filepath.Join(dir, "a", "file name.txt")
	second := filepath.Join(dir, "b", "file name.txt")
	writeFile(t, first, "first")
	writeFile(t, second, "second")

	for _, testCase := range []struct {
		path   string
		wanted string
	}{
		{path: first, wanted: "file name.txt"},
		{path: second, wanted: "file name.txt.2"},
	} {
		entry, err := trash.Put(testCase.path)
		if err != nil {
			t.Fatalf("Trash.Put(): unexpected err: %v", err)
		}
		if entry.Name != testCase.wanted {
			t.Fatalf(
				"Entry.Name: wanted `%s`; found `%s`",
				testCase.wanted,
				entry.Name,
			)
		}
		if entry.OriginalPath != testCase.path {
			t.Fatalf(
				"Entry.OriginalPath: wanted `%s`; found `%s`",
				testCase.path,
				entry.OriginalPath,
			)
		}
		if _, err := os.Stat(testCase.path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("wanted `%s` to be removed; found err `%v`", testCase.path, err)
		}
	}

	info, err := os.ReadFile(
		filepath.Join(trash.Dir, "info", "file name.txt.trashinfo"),
	)
	if err != nil {
		t.Fatalf("reading trash info: %v", err)
	}
	wantedInfo := "[Trash Info]\nPath=" +
		strings.ReplaceAll(first, " ", "%20") +
		"\nDeletionDate=2024-03-01T12:30:45\n"
	if string(info) != wantedInfo {
		t.Fatalf("trash info: wanted `%s`; found `%s`", wantedInfo, info)
	}

	contents, err := os.ReadFile(
		filepath.Join(trash.Dir, "files", "file name.txt.2"),
	)
	if err != nil {
		t.Fatalf("reading trashed file: %v", err)
	}
	if string(contents) != "second" {
		t.Fatalf("trashed file: wanted `second`; found `%s`", contents)
	}
}

func TestTrash_PutMissing(t *testing.T) {
	trash, dir := newTrash(t)
	if _, err := trash.Put(filepath.Join(dir, "missing")); !errors.Is(
		err,
		os.ErrNotExist,
	) {
		t.Fatalf("Trash.Put(): wanted `%v`; found `%v`", os.ErrNotExist, err)
	}
	if entries, err := trash.List(); err != nil || len(entries) != 0 {
		t.Fatalf("Trash.List(): wanted no entries; found `%v` (%v)", entries, err)
	}
}

func TestTrash_ListAndRestore(t *testing.T) {
	trash, dir := newTrash(t)
	path := filepath.Join(dir, "nested", "dir", "file.txt")
	writeFile(t, path, "contents")

	if _, err := trash.Put(path); err != nil {
		t.Fatalf("Trash.Put(): unexpected err: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(dir, "nested")); err != nil {
		t.Fatalf("removing parent directory: %v", err)
	}

	entries, err := trash.List()
	if err != nil {
		t.Fatalf("Trash.List(): unexpected err: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Trash.List(): wanted 1 entry; found `%d`", len(entries))
	}
	wanted := Entry{Name: "file.txt", OriginalPath: path, DeletionDate: deleted}
	if entries[0].Name != wanted.Name ||
		entries[0].OriginalPath != wanted.OriginalPath ||
		!entries[0].DeletionDate.Equal(wanted.DeletionDate) {
		t.Fatalf("Trash.List(): wanted `%+v`; found `%+v`", wanted, entries[0])
	}

	if _, err := trash.Restore("file.txt"); err != nil {
		t.Fatalf("Trash.Restore(): unexpected err: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(contents) != "contents" {
		t.Fatalf("restored file: wanted `contents`; found `%s`", contents)
	}
	if entries, err := trash.List(); err != nil || len(entries) != 0 {
		t.Fatalf("Trash.List(): wanted no entries; found `%v` (%v)", entries, err)
	}
}

func TestTrash_RestoreConflict(t *testing.T) {
	trash, dir := newTrash(t)
	path := filepath.Join(dir, "file.txt")
	writeFile(t, path, "old")

	if _, err := trash.Put(path); err != nil {
		t.Fatalf("Trash.Put(): unexpected err: %v", err)
	}
	writeFile(t, path, "new")

	_, err := trash.Restore("file.txt")
	if e := AsRestoreConflictErr(err); e == nil || e.Path != path {
		t.Fatalf("Trash.Restore(): wanted `*RestoreConflictErr`; found `%v`", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(contents) != "new" {
		t.Fatalf("file: wanted `new`; found `%s`", contents)
	}
}

func TestTrash_RestoreNotFound(t *testing.T) {
	trash, _ := newTrash(t)
	for _, name := range []string{"missing", "../escape", ""} {
		if _, err := trash.Restore(name); AsEntryNotFoundErr(err) == nil {
			t.Fatalf(
				"Trash.Restore(`%s`): wanted `*EntryNotFoundErr`; found `%v`",
				name,
				err,
			)
		}
	}
}
