// Package api runs duplicate searches on behalf of HTTP clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/jobstore"
	"github.com/weberc2/dupes/pkg/logger"
	"github.com/weberc2/dupes/pkg/objectstore"
	"github.com/weberc2/dupes/pkg/report"
	"github.com/weberc2/dupes/pkg/trash"
)

// Manager owns the running search jobs and records their progress and
// outcomes in `Searches`.
type Manager struct {
	Searches jobstore.SearchStore
	Options  dupes.Options
	Trash    *trash.Trash

	// Exports is where reports are exported to. `nil` disables exports.
	Exports      objectstore.ObjectStore
	ExportBucket string
	ExportPrefix string

	Logger   *slog.Logger
	IDFunc   func() string
	TimeFunc func() time.Time

	lock sync.Mutex
	jobs map[string]*dupes.Job
	wg   sync.WaitGroup
}

// StartSearch starts a search of `root`. If `root` can't be searched, the
// `*dupes.PathError` is returned and nothing is recorded.
func (m *Manager) StartSearch(
	ctx context.Context,
	root string,
) (search jobstore.Search, err error) {
	search.ID = m.newID()
	log := m.logger().With("search", search.ID)

	// the job outlives the request which started it
	jobCtx := logger.Set(context.WithoutCancel(ctx), log)
	job := dupes.NewJob(root, m.Options)
	if err = job.Start(jobCtx); err != nil {
		err = fmt.Errorf("starting search `%s`: %w", search.ID, err)
		return
	}

	search.Root = job.Root()
	search.State = dupes.StateRunning
	search.Created = m.now()
	if err = m.Searches.CreateSearch(ctx, &search); err != nil {
		job.Cancel()
		return
	}

	m.lock.Lock()
	if m.jobs == nil {
		m.jobs = map[string]*dupes.Job{}
	}
	m.jobs[search.ID] = job
	m.lock.Unlock()

	m.wg.Add(1)
	go m.track(log, search, job)

	log.Info("started search", "root", search.Root)
	return
}

// track records the job's progress as it arrives and its outcome once it
// finishes. It is the only writer of the search record after creation.
func (m *Manager) track(
	log *slog.Logger,
	search jobstore.Search,
	job *dupes.Job,
) {
	defer m.wg.Done()
	ctx := context.Background()

	for percent := range job.Progress() {
		search.Progress = percent
		if err := m.Searches.PutSearch(ctx, &search); err != nil {
			log.Error("recording search progress", "err", err.Error())
		}
	}

	<-job.Done()
	outcome := job.Outcome()
	finished := m.now()
	search.State = outcome.State
	search.Groups = outcome.Groups
	search.Skipped = outcome.Skipped
	search.Finished = &finished
	if outcome.Err != nil {
		search.Error = outcome.Err.Error()
	}
	if err := m.Searches.PutSearch(ctx, &search); err != nil {
		log.Error("recording search outcome", "err", err.Error())
	}

	m.lock.Lock()
	delete(m.jobs, search.ID)
	m.lock.Unlock()
}

func (m *Manager) FetchSearch(
	ctx context.Context,
	id string,
) (jobstore.Search, error) {
	return m.Searches.FetchSearch(ctx, id)
}

func (m *Manager) ListSearches(ctx context.Context) ([]jobstore.Search, error) {
	return m.Searches.ListSearches(ctx)
}

// CancelSearch asks a running search to stop. Canceling a finished search
// has no effect.
func (m *Manager) CancelSearch(ctx context.Context, id string) error {
	if _, err := m.Searches.FetchSearch(ctx, id); err != nil {
		return err
	}

	m.lock.Lock()
	job, running := m.jobs[id]
	m.lock.Unlock()
	if running {
		job.Cancel()
		m.logger().Info("canceled search", "search", id)
	}
	return nil
}

// Page returns the `index`th group of a completed search.
func (m *Manager) Page(
	ctx context.Context,
	id string,
	index int,
) (report.Page, error) {
	search, err := m.completedSearch(ctx, id)
	if err != nil {
		return report.Page{}, err
	}
	return report.GetPage(search.Groups, index)
}

// TrashResult reports the fate of one file passed to `TrashFiles`. Exactly
// one of `Entry` and `Error` is set.
type TrashResult struct {
	Path  string       `json:"path"`
	Entry *trash.Entry `json:"entry,omitempty"`
	Error string       `json:"error,omitempty"`
}

// TrashFiles moves `paths` to the trash. Every path must belong to one of
// the search's groups; otherwise nothing is trashed and a
// `*PathNotReportedErr` is returned. Unless `all` is set, `paths` must leave
// at least one member of every group in place; otherwise nothing is trashed
// and a `*LastCopyErr` is returned. Failures to trash individual files are
// reported per file.
func (m *Manager) TrashFiles(
	ctx context.Context,
	id string,
	paths []string,
	all bool,
) ([]TrashResult, error) {
	search, err := m.completedSearch(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(paths) < 1 {
		return nil, &PathNotReportedErr{Search: id}
	}
	for _, path := range paths {
		if !search.Groups.Contains(path) {
			return nil, &PathNotReportedErr{Search: id, Path: path}
		}
	}
	if !all {
		if err := checkKeepsCopy(id, search.Groups, paths); err != nil {
			return nil, err
		}
	}

	log := m.logger().With("search", id)
	results := make([]TrashResult, len(paths))
	for i, path := range paths {
		results[i].Path = path
		entry, err := m.Trash.Put(path)
		if err != nil {
			log.Warn("trashing file", "path", path, "err", err.Error())
			results[i].Error = err.Error()
			continue
		}
		log.Info("trashed file", "path", path, "name", entry.Name)
		results[i].Entry = &entry
	}
	return results, nil
}

// Export writes the report of a completed search to the export store and
// returns its key.
func (m *Manager) Export(ctx context.Context, id string) (string, error) {
	if m.Exports == nil {
		return "", ErrExportsDisabled
	}
	search, err := m.completedSearch(ctx, id)
	if err != nil {
		return "", err
	}

	r := report.New(search.Root, search.Groups, search.Skipped)
	r.ID = search.ID
	key, err := report.Export(m.Exports, m.ExportBucket, m.ExportPrefix, &r)
	if err != nil {
		return "", err
	}
	m.logger().Info(
		"exported report",
		"search", id,
		"bucket", m.ExportBucket,
		"key", key,
	)
	return key, nil
}

// Shutdown cancels every running search and waits for their outcomes to be
// recorded or for `ctx` to be done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lock.Lock()
	for _, job := range m.jobs {
		job.Cancel()
	}
	m.lock.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for searches to stop: %w", ctx.Err())
	}
}

func (m *Manager) completedSearch(
	ctx context.Context,
	id string,
) (jobstore.Search, error) {
	search, err := m.Searches.FetchSearch(ctx, id)
	if err != nil {
		return search, err
	}
	if search.State != dupes.StateCompleted || search.Groups == nil {
		return search, &SearchNotCompletedErr{ID: id, State: search.State}
	}
	return search, nil
}

// checkKeepsCopy returns a `*LastCopyErr` if `paths` covers every member of
// one of the groups in `set`.
func checkKeepsCopy(id string, set *dupes.GroupSet, paths []string) error {
	selected := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		selected[path] = struct{}{}
	}

	for i := range set.Groups {
		kept := false
		for _, path := range set.Groups[i].Paths {
			if _, found := selected[path]; !found {
				kept = true
				break
			}
		}
		if !kept {
			return &LastCopyErr{
				Search: id,
				Digest: set.Groups[i].Digest.String(),
				Paths:  set.Groups[i].Paths,
			}
		}
	}
	return nil
}

func (m *Manager) newID() string {
	if m.IDFunc != nil {
		return m.IDFunc()
	}
	return uuid.NewString()
}

func (m *Manager) now() time.Time {
	if m.TimeFunc != nil {
		return m.TimeFunc()
	}
	return time.Now()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

var ErrExportsDisabled = errors.New("report exports are not configured")
