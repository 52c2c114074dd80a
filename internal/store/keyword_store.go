package store

import "context"

// KeywordStore serves the configured trigger keywords. An empty list is a
// valid "alarm disabled" configuration, not an error.
type KeywordStore interface {
	Keywords(ctx context.Context) ([]string, error)
}
