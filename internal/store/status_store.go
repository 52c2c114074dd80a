package store

import (
	"context"
	"time"
)

// StatusStore holds the single global agent-status row.
type StatusStore interface {
	// Active reports whether the agent is enabled. A missing status row
	// reads as inactive.
	Active(ctx context.Context) (bool, error)

	// LastInitDate returns the calendar day (UTC midnight) of the last
	// daily initialization. Zero time when never initialized.
	LastInitDate(ctx context.Context) (time.Time, error)

	// SetLastInitDate records the daily initialization day.
	SetLastInitDate(ctx context.Context, day time.Time) error
}
