package store

import (
	"context"
	"time"
)

// StateStore holds per-conversation processing state, keyed by the resolved
// processing id (the linked discussion chat for channels, the chat itself
// otherwise).
type StateStore interface {
	// LastMessageID returns the watermark: the newest message id already
	// processed for the conversation. Zero when the conversation has no state.
	LastMessageID(ctx context.Context, chatID int64) (int64, error)

	// SetLastMessageID upserts the watermark. Callers must only move it
	// forward; the store does not enforce monotonicity itself.
	SetLastMessageID(ctx context.Context, chatID, messageID int64) error

	// LastPostTime returns when the agent last posted a public reply in the
	// conversation. Zero time when the agent has not posted yet.
	LastPostTime(ctx context.Context, chatID int64) (time.Time, error)

	// SetLastPostTime upserts the last-post timestamp.
	SetLastPostTime(ctx context.Context, chatID int64, t time.Time) error

	// Watermarks returns all stored per-conversation watermarks.
	Watermarks(ctx context.Context) (map[int64]int64, error)
}
