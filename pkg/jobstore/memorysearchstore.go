package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/weberc2/dupes/pkg/dupes"
)

type MemorySearchStore struct {
	lock     sync.RWMutex
	searches []Search
}

var _ SearchStore = (*MemorySearchStore)(nil)

func (store *MemorySearchStore) ListSearches(
	ctx context.Context,
) (searches []Search, err error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	searches = make([]Search, len(store.searches))
	for i := range store.searches {
		searches[i] = copySearch(&store.searches[i])
	}
	return
}

func (store *MemorySearchStore) FetchSearch(
	ctx context.Context,
	id string,
) (Search, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	for i := range store.searches {
		if store.searches[i].ID == id {
			return copySearch(&store.searches[i]), nil
		}
	}
	return Search{}, fmt.Errorf("fetching search: %w", &SearchNotFoundErr{ID: id})
}

func (store *MemorySearchStore) CreateSearch(
	ctx context.Context,
	search *Search,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range store.searches {
		if store.searches[i].ID == search.ID {
			return fmt.Errorf(
				"creating search: %w",
				&SearchExistsErr{ID: search.ID},
			)
		}
	}

	store.searches = append(store.searches, copySearch(search))
	return nil
}

func (store *MemorySearchStore) PutSearch(
	ctx context.Context,
	search *Search,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range store.searches {
		if store.searches[i].ID == search.ID {
			store.searches[i] = copySearch(search)
			return nil
		}
	}
	store.searches = append(store.searches, copySearch(search))
	return nil
}

func (store *MemorySearchStore) DeleteSearch(
	ctx context.Context,
	id string,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range store.searches {
		if store.searches[i].ID == id {
			store.searches = append(store.searches[:i], store.searches[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("deleting search: %w", &SearchNotFoundErr{ID: id})
}

// copySearch copies the mutable parts of a search. Group sets are never
// modified once published, so they are shared.
func copySearch(search *Search) Search {
	out := *search
	if search.Skipped != nil {
		out.Skipped = make([]dupes.Skipped, len(search.Skipped))
		copy(out.Skipped, search.Skipped)
	}
	if search.Finished != nil {
		finished := *search.Finished
		out.Finished = &finished
	}
	return out
}
