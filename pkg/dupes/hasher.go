package dupes

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Hasher confirms duplicates among files of equal size by digesting their
// full contents.
type Hasher struct {
	// Algorithm is the content hash. Defaults to MD5.
	Algorithm Algorithm

	// BlockSize is the read size. Defaults to `BlockSize`.
	BlockSize int

	// Workers is the number of files hashed concurrently. Values below two
	// hash sequentially.
	Workers int

	// Prefilter splits size buckets by the checksums of each file's first
	// and final blocks before any file is hashed in full.
	Prefilter bool

	Logger *slog.Logger

	// OnSkip, if set, is called for every file which can't be read. It is
	// only ever called from the goroutine which called `Group`.
	OnSkip func(Skipped)
}

// Group digests every file in `buckets` and returns the groups of files
// sharing both size and digest. After each file is processed (hashed or
// skipped), `progress` is called with the percentage of files processed so
// far; it is called with 100 immediately if there is nothing to hash. If
// `ctx` is canceled, `ErrAborted` is returned and any digests computed so
// far are discarded.
func (h *Hasher) Group(
	ctx context.Context,
	buckets SizeBuckets,
	progress func(int),
) (GroupSet, error) {
	if _, err := h.algorithm().New(); err != nil {
		return GroupSet{}, err
	}

	work := buckets.buckets()
	if h.Prefilter {
		var err error
		if work, err = h.prefilter(ctx, work); err != nil {
			return GroupSet{}, err
		}
	}

	var items []item
	for _, b := range work {
		for _, path := range b.paths {
			items = append(items, item{size: b.size, path: path})
		}
	}

	tracker := progressTracker{total: len(items), report: progress}
	if len(items) < 1 {
		tracker.finish()
		return GroupSet{Groups: []Group{}}, nil
	}

	h.logger().Debug(
		"hashing files",
		"files", len(items),
		"algorithm", h.algorithm(),
		"workers", h.workers(),
	)

	var err error
	if h.workers() < 2 {
		err = h.hashSequential(ctx, items, &tracker)
	} else {
		err = h.hashConcurrent(ctx, items, &tracker)
	}
	if err != nil {
		return GroupSet{}, err
	}

	var digests digestBuckets
	for i := range items {
		if items[i].ok {
			digests.add(
				digestKey{size: items[i].size, digest: items[i].digest},
				items[i].path,
			)
		}
	}
	return digests.groups(), nil
}

type item struct {
	size   uint64
	path   string
	digest Digest
	ok     bool
}

func (h *Hasher) hashSequential(
	ctx context.Context,
	items []item,
	tracker *progressTracker,
) error {
	buf := make([]byte, h.blockSize())
	for i := range items {
		if ctx.Err() != nil {
			return ErrAborted
		}

		digest, err := DigestFile(ctx, h.algorithm(), items[i].path, buf)
		if err != nil {
			if ctx.Err() != nil {
				return ErrAborted
			}
			h.skip(Skipped{
				Path:  items[i].path,
				Stage: StageHash,
				Error: err.Error(),
			})
		} else {
			items[i].digest = digest
			items[i].ok = true
		}
		tracker.done()
	}
	return nil
}

type hashResult struct {
	index  int
	digest Digest
	err    error
}

// hashConcurrent hashes `items` on a bounded pool of workers. Results funnel
// into the calling goroutine, which owns `items` and the progress tracker.
// Each worker writes only to its own result, and results are merged into
// `items` by index so the output matches `hashSequential`.
func (h *Hasher) hashConcurrent(
	ctx context.Context,
	items []item,
	tracker *progressTracker,
) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(h.workers())

	buffers := sync.Pool{
		New: func() any {
			buf := make([]byte, h.blockSize())
			return &buf
		},
	}

	results := make(chan hashResult)
	go func() {
		defer close(results)
		for i := range items {
			if gctx.Err() != nil {
				break
			}
			index, path := i, items[i].path
			group.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				buf := buffers.Get().(*[]byte)
				defer buffers.Put(buf)

				digest, err := DigestFile(gctx, h.algorithm(), path, *buf)
				select {
				case results <- hashResult{index, digest, err}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		// workers only return context errors
		_ = group.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ErrAborted
		case result, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return ErrAborted
				}
				return nil
			}
			if result.err != nil {
				if errors.Is(result.err, context.Canceled) && ctx.Err() != nil {
					return ErrAborted
				}
				h.skip(Skipped{
					Path:  items[result.index].path,
					Stage: StageHash,
					Error: result.err.Error(),
				})
			} else {
				items[result.index].digest = result.digest
				items[result.index].ok = true
			}
			tracker.done()
		}
	}
}

// prefilter splits each bucket by the bounding-block checksums of its files
// and drops the resulting buckets with a single member.
func (h *Hasher) prefilter(
	ctx context.Context,
	in []bucket,
) (out []bucket, err error) {
	type key struct{ first, final uint32 }
	var before, after int
	for _, b := range in {
		var keys []key
		paths := make(map[key][]string)
		for _, path := range b.paths {
			if ctx.Err() != nil {
				return nil, ErrAborted
			}
			before++

			first, final, err := boundingChecksums(path, b.size)
			if err != nil {
				h.skip(Skipped{
					Path:  path,
					Stage: StagePrefilter,
					Error: err.Error(),
				})
				continue
			}

			k := key{first, final}
			if _, exists := paths[k]; !exists {
				keys = append(keys, k)
			}
			paths[k] = append(paths[k], path)
		}

		for _, k := range keys {
			if len(paths[k]) > 1 {
				out = append(out, bucket{size: b.size, paths: paths[k]})
				after += len(paths[k])
			}
		}
	}

	h.logger().Debug(
		"prefiltered size groups",
		"files", before,
		"remaining", after,
	)
	return
}

func (h *Hasher) skip(skip Skipped) {
	h.logger().Warn(
		"skipping file",
		"path", skip.Path,
		"stage", skip.Stage,
		"err", skip.Error,
	)
	if h.OnSkip != nil {
		h.OnSkip(skip)
	}
}

func (h *Hasher) algorithm() Algorithm {
	if h.Algorithm == "" {
		return AlgorithmMD5
	}
	return h.Algorithm
}

func (h *Hasher) blockSize() int {
	if h.BlockSize < 1 {
		return BlockSize
	}
	return h.BlockSize
}

func (h *Hasher) workers() int {
	if h.Workers < 1 {
		return 1
	}
	return h.Workers
}

func (h *Hasher) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// progressTracker converts completed file counts into percentages. It is not
// safe for concurrent use.
type progressTracker struct {
	total     int
	completed int
	report    func(int)
}

func (t *progressTracker) done() {
	t.completed++
	if t.report != nil {
		t.report(t.completed * 100 / t.total)
	}
}

func (t *progressTracker) finish() {
	if t.report != nil {
		t.report(100)
	}
}
