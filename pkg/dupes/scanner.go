package dupes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Scanner walks a directory tree and buckets its regular files by size.
type Scanner struct {
	Logger *slog.Logger

	// OnSkip, if set, is called for every entry which can't be read.
	OnSkip func(Skipped)
}

// Scan collects the regular files beneath the directory `root` into size
// buckets, dropping buckets with a single member. Bucketed paths are
// absolute even if `root` is relative. `ctx` is checked once per file; if it
// is canceled, `ErrAborted` is returned.
func (s *Scanner) Scan(
	ctx context.Context,
	root string,
) (buckets SizeBuckets, err error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return SizeBuckets{}, &PathError{Path: root, Op: "resolving", Err: err}
	}
	root = abs

	logger := s.logger()
	logger.Debug("scanning directory", "root", root)

	files := newFileIter(root)
	var count int
	for {
		if ctx.Err() != nil {
			logger.Info("scan aborted", "root", root, "files", count)
			return SizeBuckets{}, ErrAborted
		}

		file, skip, ok := files.next()
		if !ok {
			break
		}
		if skip != nil {
			s.skip(skip)
			continue
		}

		count++
		buckets.Add(file)
	}

	dropped := buckets.Prune()
	logger.Debug(
		"scanned directory",
		"root", root,
		"files", count,
		"uniqueSizes", dropped,
		"sizeGroups", buckets.Len(),
	)
	return
}

func (s *Scanner) skip(skip *Skipped) {
	s.logger().Warn(
		"skipping file",
		"path", skip.Path,
		"stage", skip.Stage,
		"err", skip.Error,
	)
	if s.OnSkip != nil {
		s.OnSkip(*skip)
	}
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// fileIter visits the regular files beneath a directory breadth-first.
// Entries within a directory are visited in lexical order.
type fileIter struct {
	directory   string
	directories []string
	entries     []fs.DirEntry
	cursor      int
}

func newFileIter(directory string) (iter fileIter) {
	iter.directories = []string{directory}
	return
}

// next returns the next regular file. Entries which can't be read are
// reported through `skip`. `ok` is false once the tree is exhausted.
func (iter *fileIter) next() (file File, skip *Skipped, ok bool) {
	for {
		// loop over the remaining entries until we hit a regular file. if
		// the entry is a directory, push it onto the queue. anything else
		// (symlinks, sockets, devices, pipes) is ignored.
		for iter.cursor < len(iter.entries) {
			entry := iter.entries[iter.cursor]
			iter.cursor++
			path := filepath.Join(iter.directory, entry.Name())

			if entry.IsDir() {
				iter.directories = append(iter.directories, path)
				continue
			}

			if !entry.Type().IsRegular() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				skip = &Skipped{
					Path:  path,
					Stage: StageScan,
					Error: fmt.Sprintf("fetching file info: %v", err),
				}
				ok = true
				return
			}

			// the entry may have been replaced since the directory was read
			if !info.Mode().IsRegular() {
				continue
			}

			file = File{Path: path, Size: uint64(info.Size())}
			ok = true
			return
		}

		// load the next directory, if any
		iter.cursor = 0
		iter.entries = nil
		if len(iter.directories) < 1 {
			return
		}

		iter.directory = iter.directories[0]
		iter.directories = iter.directories[1:]

		// on error, `os.ReadDir` still returns the entries it managed to
		// read; they are visited on the next call.
		var err error
		if iter.entries, err = os.ReadDir(iter.directory); err != nil {
			skip = &Skipped{
				Path:  iter.directory,
				Stage: StageScan,
				Error: fmt.Sprintf("reading directory: %v", err),
			}
			ok = true
			return
		}
	}
}

// validateRoot resolves `root` to an absolute path and makes sure it is a
// directory whose entries can be listed.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &PathError{Path: root, Op: "resolving", Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &PathError{Path: abs, Op: "stat", Err: err}
	}
	if !info.IsDir() {
		return "", &PathError{Path: abs, Op: "stat", Err: ErrNotDirectory}
	}

	dir, err := os.Open(abs)
	if err != nil {
		return "", &PathError{Path: abs, Op: "open", Err: err}
	}
	defer dir.Close()

	if _, err := dir.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", &PathError{Path: abs, Op: "readdir", Err: err}
	}
	return abs, nil
}
