package domain

import "time"

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// Terminate asks a process to shut down (SIGTERM).
	Terminate(pid int) error

	// CurrentPID returns the current process PID.
	CurrentPID() int
}

// HostsFile is whole-file text access to the OS host-resolution file.
// Append and Replace are the only write shapes the engine ever needs;
// there is deliberately no partial-edit operation.
type HostsFile interface {
	// Path returns the underlying file path (for error messages).
	Path() string

	// Read returns the full current content.
	Read() (string, error)

	// Append writes text at the end of the file without touching
	// existing content.
	Append(text string) error

	// Replace overwrites the whole file with text.
	Replace(text string) error
}

// SessionStore persists the single-session PID marker.
// At most one marker exists at a time.
type SessionStore interface {
	// MarkerPath returns the marker file path.
	MarkerPath() string

	// EnsureInactive discards a stale marker (dead PID) and returns
	// ErrAlreadyActive when a live session holds the marker.
	EnsureInactive() error

	// DiscardStale removes a marker whose PID is no longer running.
	// Returns true when a stale marker was removed.
	DiscardStale() (bool, error)

	// Begin writes the marker for pid.
	Begin(pid int) error

	// End removes the marker; a missing marker is not an error.
	End() error

	// Active reports whether a marker exists. Liveness is not
	// re-verified here; stale detection is a startup concern.
	Active() bool

	// Pid returns the PID recorded in the marker, or
	// ErrNoActiveSession when no marker exists.
	Pid() (int, error)
}

// HistoryStore records finished and running sessions for the status
// command. Implementation: SQLCipher encrypted SQLite database.
type HistoryStore interface {
	// RecordStart inserts an open session row and returns its id.
	RecordStart(startedAt time.Time, sites int, duration time.Duration) (int64, error)

	// RecordEnd closes a session row with its termination trigger.
	RecordEnd(id int64, endedAt time.Time, trigger Trigger) error

	// Last returns the most recent session row, or nil when empty.
	Last() (*SessionRecord, error)

	// Close releases the database connection.
	Close() error
}

// CacheFlusher invalidates the system resolver cache after the hosts
// file changed. Best effort; failures are logged, never fatal.
type CacheFlusher interface {
	Flush() error
}

// Notifier plays the start/end audio cues for foreground sessions.
type Notifier interface {
	SessionStarted()
	SessionEnded()
}
