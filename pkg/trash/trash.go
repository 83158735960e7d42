// Package trash moves files into a freedesktop.org-style trash directory
// from which they can be listed and restored.
package trash

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
)

const (
	filesDir     = "files"
	infoDir      = "info"
	infoSuffix   = ".trashinfo"
	infoHeader   = "[Trash Info]"
	deletionDate = "2006-01-02T15:04:05"
)

// Trash is a trash directory. Trashed files live in `Dir/files` and the
// metadata needed to restore them in `Dir/info`.
type Trash struct {
	Dir string

	// TimeFunc returns the deletion time recorded for trashed files.
	// Defaults to `time.Now`.
	TimeFunc func() time.Time
}

// Default returns the current user's home trash.
func Default() *Trash {
	return &Trash{Dir: filepath.Join(xdg.DataHome, "Trash")}
}

// Entry is a file in the trash.
type Entry struct {
	// Name is the file's name within the trash. It is unique among the
	// trash's entries.
	Name         string    `json:"name" yaml:"name"`
	OriginalPath string    `json:"originalPath" yaml:"originalPath"`
	DeletionDate time.Time `json:"deletionDate" yaml:"deletionDate"`
}

// Put moves the file at `path` into the trash. The trash must be on the same
// filesystem as the file; otherwise a `*CrossDeviceErr` is returned and the
// file is left in place.
func (t *Trash) Put(path string) (entry Entry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("trashing file `%s`: %w", path, err)
		}
	}()

	if entry.OriginalPath, err = filepath.Abs(path); err != nil {
		return
	}
	if _, err = os.Lstat(entry.OriginalPath); err != nil {
		return
	}
	if err = t.ensureDirs(); err != nil {
		return
	}

	entry.DeletionDate = t.now()

	// reserve a name by creating its info file exclusively
	var info *os.File
	base := filepath.Base(entry.OriginalPath)
	for i := 1; ; i++ {
		entry.Name = base
		if i > 1 {
			entry.Name = base + "." + strconv.Itoa(i)
		}

		info, err = os.OpenFile(
			t.infoPath(entry.Name),
			os.O_WRONLY|os.O_CREATE|os.O_EXCL,
			0600,
		)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			err = fmt.Errorf("creating trash info: %w", err)
			return
		}

		// an orphaned file without an info file also claims the name
		if _, statErr := os.Lstat(t.filePath(entry.Name)); statErr == nil {
			if err = errors.Join(
				info.Close(),
				os.Remove(t.infoPath(entry.Name)),
			); err != nil {
				return
			}
			continue
		}
		break
	}

	_, err = info.WriteString(formatInfo(&entry))
	if err = errors.Join(err, info.Close()); err != nil {
		err = errors.Join(
			fmt.Errorf("writing trash info: %w", err),
			os.Remove(t.infoPath(entry.Name)),
		)
		return
	}

	if err = os.Rename(entry.OriginalPath, t.filePath(entry.Name)); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			err = &CrossDeviceErr{Path: entry.OriginalPath, Trash: t.Dir}
		}
		err = errors.Join(err, os.Remove(t.infoPath(entry.Name)))
		return
	}
	return
}

// List returns the trash's entries ordered by name.
func (t *Trash) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(filepath.Join(t.Dir, infoDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing trash `%s`: %w", t.Dir, err)
	}

	var entries []Entry
	for _, dirEntry := range dirEntries {
		name, ok := strings.CutSuffix(dirEntry.Name(), infoSuffix)
		if !ok || dirEntry.IsDir() {
			continue
		}
		entry, err := t.readInfo(name)
		if err != nil {
			return nil, fmt.Errorf("listing trash `%s`: %w", t.Dir, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Restore moves the entry called `name` back to its original path. It never
// overwrites an existing file; a `*RestoreConflictErr` is returned instead.
func (t *Trash) Restore(name string) (entry Entry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("restoring trash entry `%s`: %w", name, err)
		}
	}()

	if name == "" || filepath.Base(name) != name {
		err = &EntryNotFoundErr{Name: name}
		return
	}

	if entry, err = t.readInfo(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &EntryNotFoundErr{Name: name}
		}
		return
	}

	if _, err = os.Lstat(entry.OriginalPath); err == nil {
		err = &RestoreConflictErr{Name: name, Path: entry.OriginalPath}
		return
	} else if !errors.Is(err, fs.ErrNotExist) {
		return
	}

	if err = os.MkdirAll(filepath.Dir(entry.OriginalPath), 0755); err != nil {
		err = fmt.Errorf("creating parent directory: %w", err)
		return
	}

	if err = os.Rename(t.filePath(name), entry.OriginalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &EntryNotFoundErr{Name: name}
		}
		return
	}

	if err = os.Remove(t.infoPath(name)); err != nil {
		err = fmt.Errorf("removing trash info: %w", err)
	}
	return
}

func (t *Trash) ensureDirs() error {
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(filepath.Join(t.Dir, dir), 0700); err != nil {
			return fmt.Errorf("creating trash directory: %w", err)
		}
	}
	return nil
}

func (t *Trash) readInfo(name string) (entry Entry, err error) {
	file, err := os.Open(t.infoPath(name))
	if err != nil {
		return
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	entry, err = parseInfo(bufio.NewScanner(file))
	entry.Name = name
	if err != nil {
		err = &InvalidInfoErr{Name: name, Err: err}
	}
	return
}

func (t *Trash) now() time.Time {
	if t.TimeFunc != nil {
		return t.TimeFunc()
	}
	return time.Now()
}

func (t *Trash) filePath(name string) string {
	return filepath.Join(t.Dir, filesDir, name)
}

func (t *Trash) infoPath(name string) string {
	return filepath.Join(t.Dir, infoDir, name+infoSuffix)
}

func formatInfo(entry *Entry) string {
	return fmt.Sprintf(
		"%s\nPath=%s\nDeletionDate=%s\n",
		infoHeader,
		(&url.URL{Path: entry.OriginalPath}).EscapedPath(),
		entry.DeletionDate.Format(deletionDate),
	)
}

func parseInfo(scanner *bufio.Scanner) (entry Entry, err error) {
	var header, path, date bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			header = line == infoHeader
			continue
		}
		if !header {
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		switch key {
		case "Path":
			if entry.OriginalPath, err = url.PathUnescape(value); err != nil {
				err = fmt.Errorf("parsing path: %w", err)
				return
			}
			path = true
		case "DeletionDate":
			if entry.DeletionDate, err = time.ParseInLocation(
				deletionDate,
				value,
				time.Local,
			); err != nil {
				err = fmt.Errorf("parsing deletion date: %w", err)
				return
			}
			date = true
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if !path || !date {
		err = errMissingKeys
	}
	return
}

var errMissingKeys = errors.New("missing `Path` or `DeletionDate`")
