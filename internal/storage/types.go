package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite busy_timeout; 0 means default
}

// SentEntry records one successful delivery.
type SentEntry struct {
	At      time.Time
	Body    string
	Attempt int
	LagMS   int64
}

// DeadEntry records a message dropped after exhausting its attempt budget.
type DeadEntry struct {
	At      time.Time
	Body    string
	Attempt int
	Reason  string
}
