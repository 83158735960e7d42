// Package jobstore persists the records of duplicate searches.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/weberc2/dupes/pkg/dupes"
	pz "github.com/weberc2/httpeasy"
)

// Search is the record of a duplicate search. `Groups` is set once the
// search has completed.
type Search struct {
	ID       string          `json:"id"`
	Root     string          `json:"root"`
	State    dupes.State     `json:"state"`
	Progress int             `json:"progress"`
	Groups   *dupes.GroupSet `json:"groups,omitempty"`
	Skipped  []dupes.Skipped `json:"skipped,omitempty"`
	Error    string          `json:"error,omitempty"`
	Created  time.Time       `json:"created"`
	Finished *time.Time      `json:"finished,omitempty"`
}

// Summary returns the summary of the search's groups, if it has any.
func (search *Search) Summary() *dupes.Summary {
	if search.Groups == nil {
		return nil
	}
	summary := search.Groups.Summary()
	return &summary
}

type SearchStore interface {
	CreateSearch(ctx context.Context, search *Search) error
	PutSearch(ctx context.Context, search *Search) error
	FetchSearch(ctx context.Context, id string) (Search, error)
	ListSearches(ctx context.Context) ([]Search, error)
	DeleteSearch(ctx context.Context, id string) error
}

type SearchExistsErr struct {
	ID string `json:"id"`
}

func (err *SearchExistsErr) Error() string {
	return fmt.Sprintf("search exists: %s", err.ID)
}

func (err *SearchExistsErr) HTTPError() *pz.HTTPError {
	return &pz.HTTPError{Status: http.StatusConflict, Message: "search exists"}
}

func AsSearchExistsErr(err error) (e *SearchExistsErr) {
	errors.As(err, &e)
	return
}

type SearchNotFoundErr struct {
	ID string `json:"id"`
}

func (err *SearchNotFoundErr) Error() string {
	return fmt.Sprintf("search not found: %s", err.ID)
}

func (err *SearchNotFoundErr) HTTPError() *pz.HTTPError {
	return &pz.HTTPError{
		Status:  http.StatusNotFound,
		Message: "search not found",
	}
}

func AsSearchNotFoundErr(err error) (e *SearchNotFoundErr) {
	errors.As(err, &e)
	return
}

var (
	_ pz.Error = &SearchExistsErr{}
	_ pz.Error = &SearchNotFoundErr{}
)
