package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hrvisionhq/visionagent/internal/store"
)

// SessionStore implements store.SessionStore backed by Postgres.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Session(ctx context.Context, agentName string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT session_data FROM sessions WHERE agent_name = $1`,
		agentName,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, agentName string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (agent_name, session_data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agent_name) DO UPDATE SET session_data = $2, updated_at = $3`,
		agentName, data, time.Now().UTC(),
	)
	return err
}
