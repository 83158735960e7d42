package api

import (
	"fmt"
	"net/http"

	"github.com/weberc2/dupes/pkg/dupes"
	pz "github.com/weberc2/httpeasy"
)

type SearchNotCompletedErr struct {
	ID    string      `json:"id"`
	State dupes.State `json:"state"`
}

func (err *SearchNotCompletedErr) Error() string {
	return fmt.Sprintf("search `%s` is not completed: %s", err.ID, err.State)
}

func (err *SearchNotCompletedErr) HTTPError() *pz.HTTPError {
	return &pz.HTTPError{
		Status:  http.StatusConflict,
		Message: "search not completed",
	}
}

// PathNotReportedErr is returned when asked to trash a file which isn't a
// member of any of a search's groups.
type PathNotReportedErr struct {
	Search string `json:"search"`
	Path   string `json:"path"`
}

func (err *PathNotReportedErr) Error() string {
	if err.Path == "" {
		return fmt.Sprintf("no paths given for search `%s`", err.Search)
	}
	return fmt.Sprintf(
		"path `%s` is not a reported duplicate of search `%s`",
		err.Path,
		err.Search,
	)
}

func (err *PathNotReportedErr) HTTPError() *pz.HTTPError {
	return &pz.HTTPError{
		Status:  http.StatusBadRequest,
		Message: "path is not a reported duplicate",
	}
}

// LastCopyErr is returned when asked to trash every member of a group
// without explicitly opting in.
type LastCopyErr struct {
	Search string   `json:"search"`
	Digest string   `json:"digest"`
	Paths  []string `json:"paths"`
}

func (err *LastCopyErr) Error() string {
	return fmt.Sprintf(
		"refusing to trash every copy of group `%s` of search `%s` "+
			"without `all`",
		err.Digest,
		err.Search,
	)
}

func (err *LastCopyErr) HTTPError() *pz.HTTPError {
	return &pz.HTTPError{
		Status:  http.StatusConflict,
		Message: "request would trash every copy of a file; set `all` to confirm",
	}
}

var (
	_ pz.Error = &LastCopyErr{}
	_ pz.Error = &SearchNotCompletedErr{}
	_ pz.Error = &PathNotReportedErr{}
)
