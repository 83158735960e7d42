package dupes

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// BlockSize is the size of the reads used to feed file contents into a
// digest.
const BlockSize = 1 << 20

// Algorithm names a content hash function.
type Algorithm string

const (
	AlgorithmMD5     Algorithm = "md5"
	AlgorithmSHA256  Algorithm = "sha256"
	AlgorithmBLAKE2b Algorithm = "blake2b"
)

// Algorithms lists the supported algorithms, default first.
var Algorithms = []Algorithm{AlgorithmMD5, AlgorithmSHA256, AlgorithmBLAKE2b}

// ParseAlgorithm parses an algorithm name. The empty string selects MD5.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return AlgorithmMD5, nil
	}
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", &UnknownAlgorithmErr{Algorithm: s}
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case AlgorithmMD5, "":
		return md5.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, &UnknownAlgorithmErr{Algorithm: string(a)}
	}
}

type UnknownAlgorithmErr struct {
	Algorithm string `json:"algorithm"`
}

func (err *UnknownAlgorithmErr) Error() string {
	return fmt.Sprintf("unknown digest algorithm: `%s`", err.Algorithm)
}

// Digest holds the raw bytes of a content hash. It is comparable, so it can
// key a map.
type Digest string

func (d Digest) String() string { return hex.EncodeToString([]byte(d)) }

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(data []byte) error {
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}
	*d = Digest(raw)
	return nil
}

// DigestFile hashes the full contents of the file at `path`, reading it in
// blocks of `len(buf)` bytes. `ctx` is checked between blocks.
func DigestFile(
	ctx context.Context,
	algorithm Algorithm,
	path string,
	buf []byte,
) (digest Digest, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("digesting file `%s`: %w", path, err)
		}
	}()

	var h hash.Hash
	if h, err = algorithm.New(); err != nil {
		return
	}

	var file *os.File
	if file, err = os.Open(path); err != nil {
		err = fmt.Errorf("opening file: %w", err)
		return
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	for {
		if err = ctx.Err(); err != nil {
			return
		}

		var n int
		n, err = file.Read(buf)
		if n > 0 {
			// hash.Hash.Write never returns an error
			h.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
				break
			}
			err = fmt.Errorf("reading file contents: %w", err)
			return
		}
	}

	digest = Digest(h.Sum(nil))
	return
}
