package dupes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTree creates the files in `files` (relative path to contents) beneath
// a fresh temporary directory and returns the directory.
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

// relativeGroups returns the paths of each group relative to `root`.
func relativeGroups(t *testing.T, root string, set *GroupSet) [][]string {
	t.Helper()
	out := [][]string{}
	if set == nil {
		return out
	}
	for _, group := range set.Groups {
		paths := make([]string, len(group.Paths))
		for i, path := range group.Paths {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				t.Fatalf("relativizing `%s`: %v", path, err)
			}
			paths[i] = filepath.ToSlash(rel)
		}
		out = append(out, paths)
	}
	return out
}

// drain collects every progress value and the outcome of `job`.
func drain(t *testing.T, job *Job) ([]int, Outcome) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var progress []int
	for {
		select {
		case percent, ok := <-job.Progress():
			if !ok {
				outcome, err := job.Wait(ctx)
				if err != nil {
					t.Fatalf("Job.Wait(): unexpected err: %v", err)
				}
				return progress, outcome
			}
			progress = append(progress, percent)
		case <-ctx.Done():
			t.Fatal("timed out waiting for job")
		}
	}
}
