package store

import (
	"context"
	"time"
)

// ContactStore tracks which users the agent already contacted on a given
// calendar day, to suppress duplicate same-day outreach across all trigger
// paths (public reply and lead DM alike).
type ContactStore interface {
	// ContactedToday reports whether the user was contacted on the given day.
	ContactedToday(ctx context.Context, userID int64, day time.Time) (bool, error)

	// RecordContact upserts the contact record for the user and day.
	RecordContact(ctx context.Context, userID int64, day time.Time) error
}
