package trash

import (
	"errors"
	"fmt"
)

// CrossDeviceErr is returned when a file can't be renamed into the trash
// because they are on different filesystems.
type CrossDeviceErr struct {
	Path  string `json:"path"`
	Trash string `json:"trash"`
}

func (err *CrossDeviceErr) Error() string {
	return fmt.Sprintf(
		"file `%s` is not on the same device as trash `%s`",
		err.Path,
		err.Trash,
	)
}

func AsCrossDeviceErr(err error) (e *CrossDeviceErr) {
	errors.As(err, &e)
	return
}

// RestoreConflictErr is returned when restoring an entry whose original path
// is occupied.
type RestoreConflictErr struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (err *RestoreConflictErr) Error() string {
	return fmt.Sprintf("original path is occupied: `%s`", err.Path)
}

func AsRestoreConflictErr(err error) (e *RestoreConflictErr) {
	errors.As(err, &e)
	return
}

type EntryNotFoundErr struct {
	Name string `json:"name"`
}

func (err *EntryNotFoundErr) Error() string {
	return fmt.Sprintf("trash entry not found: `%s`", err.Name)
}

func AsEntryNotFoundErr(err error) (e *EntryNotFoundErr) {
	errors.As(err, &e)
	return
}

type InvalidInfoErr struct {
	Name string
	Err  error
}

func (err *InvalidInfoErr) Error() string {
	return fmt.Sprintf("invalid trash info for `%s`: %v", err.Name, err.Err)
}

func (err *InvalidInfoErr) Unwrap() error { return err.Err }
