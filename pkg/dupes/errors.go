package dupes

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned when a search observes a cancellation request.
	// It is a normal terminal outcome rather than a failure.
	ErrAborted = errors.New("search aborted")

	// ErrJobStarted is returned when starting a job which isn't idle.
	ErrJobStarted = errors.New("search job already started")

	// ErrNotDirectory is wrapped by a `PathError` when the root is a file.
	ErrNotDirectory = errors.New("not a directory")
)

// PathError reports a root path which cannot be searched. It is the only
// error which fails a job.
type PathError struct {
	Path string `json:"path"`
	Op   string `json:"op"`
	Err  error  `json:"-"`
}

func (err *PathError) Error() string {
	return fmt.Sprintf("%s `%s`: %v", err.Op, err.Path, err.Err)
}

func (err *PathError) Unwrap() error { return err.Err }

func AsPathError(err error) (e *PathError) {
	errors.As(err, &e)
	return
}

// Stage identifies the phase in which a file was skipped.
type Stage string

const (
	StageScan      Stage = "SCAN"
	StagePrefilter Stage = "PREFILTER"
	StageHash      Stage = "HASH"
)

// Skipped records a file which was excluded from the results because it
// couldn't be sized or read.
type Skipped struct {
	Path  string `json:"path"`
	Stage Stage  `json:"stage"`
	Error string `json:"error"`
}
