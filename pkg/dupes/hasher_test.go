package dupes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func scan(t *testing.T, root string) SizeBuckets {
	t.Helper()
	var scanner Scanner
	buckets, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scanner.Scan(): unexpected err: %v", err)
	}
	return buckets
}

func TestHasher_CancelMidHash(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("%02d", i)] = "same"
	}
	root := writeTree(t, files)
	buckets := scan(t, root)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers-%d", workers), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hasher := Hasher{Workers: workers}
			var calls int
			groups, err := hasher.Group(ctx, buckets, func(int) {
				calls++
				cancel()
			})
			if err != ErrAborted {
				t.Fatalf("Hasher.Group(): wanted `%v`; found `%v`", ErrAborted, err)
			}
			if groups.Len() != 0 {
				t.Fatalf("Hasher.Group(): wanted no groups; found `%d`", groups.Len())
			}
			if calls < 1 {
				t.Fatal("progress: wanted at least one call")
			}
		})
	}
}

func TestHasher_SequentialMatchesPooled(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 60; i++ {
		// ten distinct contents across two sizes
		files[fmt.Sprintf("dir%d/file%02d", i%3, i)] = fmt.Sprintf(
			"%0*d",
			4+i%2,
			i%10,
		)
	}
	root := writeTree(t, files)
	buckets := scan(t, root)

	var results []GroupSet
	for _, workers := range []int{1, 2, 8} {
		hasher := Hasher{Workers: workers, Algorithm: AlgorithmSHA256}
		groups, err := hasher.Group(context.Background(), buckets, nil)
		if err != nil {
			t.Fatalf("Hasher.Group(): unexpected err: %v", err)
		}
		results = append(results, groups)
	}

	if results[0].Len() != 10 {
		t.Fatalf("groups: wanted `10`; found `%d`", results[0].Len())
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf(
				"wanted pooled result to match sequential:\n%v\n%v",
				results[0],
				results[i],
			)
		}
	}
}

func TestHasher_Progress(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a": "Xaaa",
		"b": "Xaaa",
		"c": "Yaaa",
	})
	buckets := scan(t, root)

	for _, testCase := range []struct {
		name      string
		prefilter bool
		wanted    []int
	}{
		{name: "full", prefilter: false, wanted: []int{33, 66, 100}},
		{name: "prefiltered", prefilter: true, wanted: []int{50, 100}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			hasher := Hasher{Workers: 1, Prefilter: testCase.prefilter}
			var progress []int
			groups, err := hasher.Group(
				context.Background(),
				buckets,
				func(percent int) { progress = append(progress, percent) },
			)
			if err != nil {
				t.Fatalf("Hasher.Group(): unexpected err: %v", err)
			}
			if !reflect.DeepEqual(testCase.wanted, progress) {
				t.Fatalf(
					"progress: wanted `%v`; found `%v`",
					testCase.wanted,
					progress,
				)
			}
			if found := relativeGroups(t, root, &groups); !reflect.DeepEqual(
				found,
				[][]string{{"a", "b"}},
			) {
				t.Fatalf("groups: wanted `[[a b]]`; found `%v`", found)
			}
		})
	}
}

func TestHasher_PrefilterKeepsDifferingMiddles(t *testing.T) {
	// same first and final blocks; differ only in the middle
	prefix := make([]byte, boundingBlockSize)
	a := string(prefix) + "A" + string(prefix)
	b := string(prefix) + "B" + string(prefix)
	root := writeTree(t, map[string]string{"a": a, "b": b, "c": a})

	hasher := Hasher{Workers: 1, Prefilter: true}
	groups, err := hasher.Group(context.Background(), scan(t, root), nil)
	if err != nil {
		t.Fatalf("Hasher.Group(): unexpected err: %v", err)
	}
	if found := relativeGroups(t, root, &groups); !reflect.DeepEqual(
		found,
		[][]string{{"a", "c"}},
	) {
		t.Fatalf("groups: wanted `[[a c]]`; found `%v`", found)
	}
}

func TestHasher_Empty(t *testing.T) {
	var hasher Hasher
	var progress []int
	groups, err := hasher.Group(
		context.Background(),
		SizeBuckets{},
		func(percent int) { progress = append(progress, percent) },
	)
	if err != nil {
		t.Fatalf("Hasher.Group(): unexpected err: %v", err)
	}
	if groups.Groups == nil || groups.Len() != 0 {
		t.Fatalf("groups: wanted empty set; found `%v`", groups)
	}
	if !reflect.DeepEqual(progress, []int{100}) {
		t.Fatalf("progress: wanted `[100]`; found `%v`", progress)
	}
}

func TestDigestBuckets_KeyedBySize(t *testing.T) {
	// buckets which claim the same digest for different sizes must never
	// merge; exercise the keying directly.
	var digests digestBuckets
	digests.add(digestKey{size: 1, digest: "d"}, "/a")
	digests.add(digestKey{size: 2, digest: "d"}, "/b")
	digests.add(digestKey{size: 1, digest: "d"}, "/c")

	groups := digests.groups()
	if groups.Len() != 1 {
		t.Fatalf("groups: wanted `1`; found `%d`", groups.Len())
	}
	if !reflect.DeepEqual(groups.Groups[0].Paths, []string{"/a", "/c"}) {
		t.Fatalf(
			"Group.Paths: wanted `[/a /c]`; found `%v`",
			groups.Groups[0].Paths,
		)
	}
}

func TestHasher_VanishedFile(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers-%d", workers), func(t *testing.T) {
			root := writeTree(t, map[string]string{
				"a": "same",
				"b": "same",
				"c": "same",
			})
			buckets := scan(t, root)

			// `b` disappears between the scan and the hash
			vanished := filepath.Join(root, "b")
			if err := os.Remove(vanished); err != nil {
				t.Fatalf("removing `%s`: %v", vanished, err)
			}

			var skipped []Skipped
			var progress []int
			hasher := Hasher{
				Workers: workers,
				OnSkip:  func(skip Skipped) { skipped = append(skipped, skip) },
			}
			set, err := hasher.Group(
				context.Background(),
				buckets,
				func(percent int) { progress = append(progress, percent) },
			)
			if err != nil {
				t.Fatalf("Hasher.Group(): unexpected err: %v", err)
			}

			wanted := [][]string{{"a", "c"}}
			if found := relativeGroups(t, root, &set); !reflect.DeepEqual(
				wanted,
				found,
			) {
				t.Fatalf("groups: wanted `%v`; found `%v`", wanted, found)
			}
			if len(skipped) != 1 || skipped[0].Path != vanished ||
				skipped[0].Stage != StageHash {
				t.Fatalf(
					"skipped: wanted `%s` at `%s`; found `%v`",
					vanished,
					StageHash,
					skipped,
				)
			}
			if wanted := []int{33, 66, 100}; !reflect.DeepEqual(
				wanted,
				progress,
			) {
				t.Fatalf("progress: wanted `%v`; found `%v`", wanted, progress)
			}
		})
	}
}
