// Package session implements the daily-usage-gated conversation session core:
// a per-identity usage ledger with lazy day-boundary reset, bounded
// conversation windows, and the gate that admits or denies chat requests.
package session

import "time"

// Clock supplies the current civil date. Injected so tests can control
// day-boundary behavior without real-time delay.
type Clock interface {
	// Today returns the current date as YYYY-MM-DD. The day boundary is
	// UTC midnight, consistent within a process.
	Today() string
}

type utcClock struct{}

func (utcClock) Today() string { return time.Now().UTC().Format(time.DateOnly) }

// NewClock returns a Clock backed by the real time in UTC.
func NewClock() Clock { return utcClock{} }
