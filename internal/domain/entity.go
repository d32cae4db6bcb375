// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Trigger identifies which path ended a blocking session.
type Trigger string

const (
	TriggerExpiry    Trigger = "expiry"    // configured duration elapsed
	TriggerInterrupt Trigger = "interrupt" // SIGINT/SIGTERM in the session process
	TriggerStop      Trigger = "stop"      // out-of-process stop command
)

// SessionRecord is a session row from the history store.
type SessionRecord struct {
	ID        int64
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is still open
	Sites     int
	Duration  time.Duration
	Trigger   Trigger // empty while the session is still open
}

// Status is what the status command reports.
type Status struct {
	Running bool // a session marker exists
	Blocked bool // the block region is present in the hosts file
	Last    *SessionRecord
}
