package dupes

import (
	"errors"
	"fmt"
	"hash/adler32"
	"io"
	"os"
)

// File is the metadata for a file.
type File struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the size of the file in bytes.
	Size uint64 `json:"size"`
}

// boundingChecksums computes the checksums of the first and final blocks of
// the file at `path`. Files of equal size and content always have equal
// bounding checksums, so unequal checksums prove files differ without reading
// them in full.
func boundingChecksums(
	path string,
	size uint64,
) (first uint32, final uint32, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"checksumming first/last blocks for file `%s`: %w",
				path,
				err,
			)
		}
	}()

	var file *os.File
	if file, err = os.Open(path); err != nil {
		return
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	var buf [boundingBlockSize]byte
	length := int64(boundingBlockSize)
	if int64(size) < length {
		length = int64(size)
	}

	if _, err = file.ReadAt(buf[:length], 0); err != nil && !errors.Is(
		err,
		io.EOF,
	) {
		err = fmt.Errorf("reading first block: %w", err)
		return
	}
	first = adler32.Checksum(buf[:length])

	if _, err = file.ReadAt(
		buf[:length],
		int64(size)-length,
	); err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("reading final block: %w", err)
		return
	}
	final = adler32.Checksum(buf[:length])
	err = nil
	return
}

const boundingBlockSize = 1024
