package telegram

import (
	"context"
	"errors"

	"github.com/gotd/td/session"

	"github.com/hrvisionhq/visionagent/internal/store"
)

// StoreSession adapts the session store to gotd's session.Storage, so the
// authorized session survives across hosts instead of living in a local file.
type StoreSession struct {
	AgentName string
	Sessions  store.SessionStore
}

var _ session.Storage = (*StoreSession)(nil)

func (s *StoreSession) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.Sessions.Session(ctx, s.AgentName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *StoreSession) StoreSession(ctx context.Context, data []byte) error {
	return s.Sessions.SaveSession(ctx, s.AgentName, data)
}
