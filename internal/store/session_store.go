package store

import "context"

// SessionStore persists MTProto session blobs keyed by agent name, so the
// same authorized account survives across scheduled runs and hosts.
type SessionStore interface {
	// Session returns the stored session blob, or ErrNotFound.
	Session(ctx context.Context, agentName string) ([]byte, error)

	// SaveSession upserts the session blob for the agent.
	SaveSession(ctx context.Context, agentName string, data []byte) error
}
