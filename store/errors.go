package store

import (
	"errors"
	"fmt"
)

// ConnectionError means no session could be established. It is fatal: the
// run aborts before producing any rows.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s store: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// ResolutionError means a named store or folder path does not exist. It is
// fatal: the run aborts before scanning.
type ResolutionError struct {
	Kind string // "store" or "folder"
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
