package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive is returned when a live session already holds
	// the marker. No state is changed.
	ErrAlreadyActive = errors.New("a blocking session is already active")

	// ErrNoActiveSession is returned by stop/status paths when no
	// session marker exists. Reported, not fatal.
	ErrNoActiveSession = errors.New("no active blocking session")

	// ErrConfigInvalid marks malformed persisted configuration.
	// Fatal: no session starts.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// CriticalRestoreError reports that the hosts file could not be
// returned to its unblocked state on teardown. The block persists
// invisibly until the file at Path is fixed by hand, so callers must
// surface this loudly and exit non-zero.
type CriticalRestoreError struct {
	Path string
	Err  error
}

func (e *CriticalRestoreError) Error() string {
	return fmt.Sprintf("failed to restore hosts file, fix manually at %s: %v", e.Path, e.Err)
}

func (e *CriticalRestoreError) Unwrap() error { return e.Err }
