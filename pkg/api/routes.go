package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/jobstore"
	"github.com/weberc2/dupes/pkg/report"
	pz "github.com/weberc2/httpeasy"
)

// HTTPService exposes a `Manager` over HTTP. Routes which start, cancel,
// trash, or export searches are wrapped by `Auth`.
type HTTPService struct {
	Manager *Manager
	Auth    Authorizer
}

func (hs *HTTPService) Routes() []pz.Route {
	return []pz.Route{
		hs.StartSearchRoute(),
		hs.ListSearchesRoute(),
		hs.FetchSearchRoute(),
		hs.PageRoute(),
		hs.CancelSearchRoute(),
		hs.TrashRoute(),
		hs.ExportRoute(),
	}
}

func (hs *HTTPService) StartSearchRoute() pz.Route {
	return pz.Route{
		Method:  "POST",
		Path:    "/api/searches",
		Handler: hs.authorize(hs.StartSearch),
	}
}

func (hs *HTTPService) ListSearchesRoute() pz.Route {
	return pz.Route{
		Method:  "GET",
		Path:    "/api/searches",
		Handler: hs.ListSearches,
	}
}

func (hs *HTTPService) FetchSearchRoute() pz.Route {
	return pz.Route{
		Method:  "GET",
		Path:    "/api/searches/{id}",
		Handler: hs.FetchSearch,
	}
}

func (hs *HTTPService) PageRoute() pz.Route {
	return pz.Route{
		Method:  "GET",
		Path:    "/api/searches/{id}/groups/{page}",
		Handler: hs.Page,
	}
}

func (hs *HTTPService) CancelSearchRoute() pz.Route {
	return pz.Route{
		Method:  "DELETE",
		Path:    "/api/searches/{id}",
		Handler: hs.authorize(hs.CancelSearch),
	}
}

func (hs *HTTPService) TrashRoute() pz.Route {
	return pz.Route{
		Method:  "POST",
		Path:    "/api/searches/{id}/trash",
		Handler: hs.authorize(hs.TrashFiles),
	}
}

func (hs *HTTPService) ExportRoute() pz.Route {
	return pz.Route{
		Method:  "POST",
		Path:    "/api/searches/{id}/export",
		Handler: hs.authorize(hs.Export),
	}
}

// SearchView is the representation of a search served by the API. Groups
// are served one page at a time.
type SearchView struct {
	ID       string          `json:"id"`
	Root     string          `json:"root"`
	State    dupes.State     `json:"state"`
	Progress int             `json:"progress"`
	Summary  *dupes.Summary  `json:"summary,omitempty"`
	Skipped  []dupes.Skipped `json:"skipped,omitempty"`
	Error    string          `json:"error,omitempty"`
	Created  time.Time       `json:"created"`
	Finished *time.Time      `json:"finished,omitempty"`
}

func NewSearchView(search *jobstore.Search) SearchView {
	return SearchView{
		ID:       search.ID,
		Root:     search.Root,
		State:    search.State,
		Progress: search.Progress,
		Summary:  search.Summary(),
		Skipped:  search.Skipped,
		Error:    search.Error,
		Created:  search.Created,
		Finished: search.Finished,
	}
}

type StartSearchRequest struct {
	Root string `json:"root"`
}

func (hs *HTTPService) StartSearch(r pz.Request) pz.Response {
	var req StartSearchRequest
	if err := r.JSON(&req); err != nil {
		return badRequest("parsing start-search request", err)
	}

	search, err := hs.Manager.StartSearch(context.Background(), req.Root)
	if err != nil {
		return handleError("starting search", err)
	}

	view := NewSearchView(&search)
	return pz.Created(pz.JSON(&view), &logging{
		Message: "started search",
		Search:  search.ID,
	})
}

func (hs *HTTPService) ListSearches(r pz.Request) pz.Response {
	searches, err := hs.Manager.ListSearches(context.Background())
	if err != nil {
		return handleError("listing searches", err)
	}

	views := make([]SearchView, len(searches))
	for i := range searches {
		views[i] = NewSearchView(&searches[i])
	}
	return pz.Ok(pz.JSON(views))
}

func (hs *HTTPService) FetchSearch(r pz.Request) pz.Response {
	search, err := hs.Manager.FetchSearch(context.Background(), r.Vars["id"])
	if err != nil {
		return handleError("fetching search", err)
	}
	view := NewSearchView(&search)
	return pz.Ok(pz.JSON(&view))
}

// PageView is a page of a search's groups along with its `page/total` label.
type PageView struct {
	report.Page
	Label string `json:"label"`
}

func (hs *HTTPService) Page(r pz.Request) pz.Response {
	// pages are numbered from one in URLs
	number, err := strconv.Atoi(r.Vars["page"])
	if err != nil {
		return badRequest("parsing page number", err)
	}

	page, err := hs.Manager.Page(
		context.Background(),
		r.Vars["id"],
		number-1,
	)
	if err != nil {
		return handleError("fetching page", err)
	}
	return pz.Ok(pz.JSON(&PageView{Page: page, Label: page.Label()}))
}

func (hs *HTTPService) CancelSearch(r pz.Request) pz.Response {
	id := r.Vars["id"]
	if err := hs.Manager.CancelSearch(context.Background(), id); err != nil {
		return handleError("canceling search", err)
	}
	return pz.Accepted(
		pz.JSON(struct {
			ID string `json:"id"`
		}{ID: id}),
		&logging{Message: "canceled search", Search: id},
	)
}

type TrashRequest struct {
	Paths []string `json:"paths"`

	// All permits trashing every member of a group.
	All bool `json:"all"`
}

func (hs *HTTPService) TrashFiles(r pz.Request) pz.Response {
	var req TrashRequest
	if err := r.JSON(&req); err != nil {
		return badRequest("parsing trash request", err)
	}

	id := r.Vars["id"]
	results, err := hs.Manager.TrashFiles(
		context.Background(),
		id,
		req.Paths,
		req.All,
	)
	if err != nil {
		return handleError("trashing files", err)
	}
	return pz.Ok(
		pz.JSON(results),
		&logging{Message: "trashed files", Search: id},
	)
}

type ExportResponse struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (hs *HTTPService) Export(r pz.Request) pz.Response {
	id := r.Vars["id"]
	key, err := hs.Manager.Export(context.Background(), id)
	if err != nil {
		return handleError("exporting report", err)
	}
	return pz.Created(
		pz.JSON(&ExportResponse{Bucket: hs.Manager.ExportBucket, Key: key}),
		&logging{Message: "exported report", Search: id},
	)
}

func (hs *HTTPService) authorize(h pz.Handler) pz.Handler {
	if hs.Auth == nil {
		return h
	}
	return hs.Auth.AuthZ(h)
}

type logging struct {
	Message   string `json:"message"`
	Search    string `json:"search,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
	Error     string `json:"error,omitempty"`
}

func badRequest(message string, err error) pz.Response {
	return errorResponse(
		&pz.HTTPError{Status: http.StatusBadRequest, Message: err.Error()},
		message,
		err,
	)
}

// handleError responds with the HTTP status of `err`. Errors which don't
// carry a status are internal server errors and their details are only
// logged.
func handleError(message string, err error) pz.Response {
	httpErr := &pz.HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
	}

	var e pz.Error
	var pathErr *dupes.PathError
	var algErr *dupes.UnknownAlgorithmErr
	var pageErr *report.PageNotFoundErr
	switch {
	case errors.As(err, &e):
		httpErr = e.HTTPError()
	case errors.As(err, &pathErr):
		httpErr = &pz.HTTPError{
			Status:  http.StatusBadRequest,
			Message: pathErr.Error(),
		}
	case errors.As(err, &algErr):
		httpErr = &pz.HTTPError{
			Status:  http.StatusBadRequest,
			Message: algErr.Error(),
		}
	case errors.As(err, &pageErr):
		httpErr = &pz.HTTPError{
			Status:  http.StatusNotFound,
			Message: pageErr.Error(),
		}
	case errors.Is(err, ErrExportsDisabled):
		httpErr = &pz.HTTPError{
			Status:  http.StatusNotImplemented,
			Message: err.Error(),
		}
	}
	return errorResponse(httpErr, message, err)
}

func errorResponse(httpErr *pz.HTTPError, message string, err error) pz.Response {
	return pz.Response{
		Status: httpErr.Status,
		Data:   pz.JSON(httpErr),
	}.WithLogging(&logging{
		Message:   fmt.Sprintf("%s: %s", message, http.StatusText(httpErr.Status)),
		ErrorType: reflect.TypeOf(err).String(),
		Error:     err.Error(),
	})
}
