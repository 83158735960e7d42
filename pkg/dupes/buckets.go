package dupes

// SizeBuckets groups file paths by size. Sizes are kept in the order they
// were first seen and paths in the order they were added, so iteration is
// reproducible for a given directory tree.
type SizeBuckets struct {
	Sizes []uint64
	Paths map[uint64][]string
}

func (b *SizeBuckets) Add(file File) {
	if b.Paths == nil {
		b.Paths = make(map[uint64][]string)
	}
	paths, exists := b.Paths[file.Size]
	if !exists {
		b.Sizes = append(b.Sizes, file.Size)
	}
	b.Paths[file.Size] = append(paths, file.Path)
}

// Prune drops the buckets with fewer than two members and returns the number
// of files dropped.
func (b *SizeBuckets) Prune() (dropped int) {
	sizes := b.Sizes[:0]
	for _, size := range b.Sizes {
		if len(b.Paths[size]) < 2 {
			dropped += len(b.Paths[size])
			delete(b.Paths, size)
			continue
		}
		sizes = append(sizes, size)
	}
	b.Sizes = sizes
	return
}

// Len returns the number of buckets.
func (b *SizeBuckets) Len() int { return len(b.Sizes) }

// Files returns the number of files across all buckets.
func (b *SizeBuckets) Files() (n int) {
	for _, size := range b.Sizes {
		n += len(b.Paths[size])
	}
	return
}

func (b *SizeBuckets) buckets() []bucket {
	out := make([]bucket, len(b.Sizes))
	for i, size := range b.Sizes {
		out[i] = bucket{size: size, paths: b.Paths[size]}
	}
	return out
}

type bucket struct {
	size  uint64
	paths []string
}

type digestKey struct {
	size   uint64
	digest Digest
}

// digestBuckets groups paths by size and digest, preserving the order in
// which each key was first seen.
type digestBuckets struct {
	keys  []digestKey
	paths map[digestKey][]string
}

func (b *digestBuckets) add(key digestKey, path string) {
	if b.paths == nil {
		b.paths = make(map[digestKey][]string)
	}
	paths, exists := b.paths[key]
	if !exists {
		b.keys = append(b.keys, key)
	}
	b.paths[key] = append(paths, path)
}

// groups returns the buckets with at least two members.
func (b *digestBuckets) groups() GroupSet {
	set := GroupSet{Groups: []Group{}}
	for _, key := range b.keys {
		if paths := b.paths[key]; len(paths) > 1 {
			set.Groups = append(set.Groups, Group{
				Digest: key.digest,
				Size:   key.size,
				Paths:  paths,
			})
		}
	}
	return set
}
