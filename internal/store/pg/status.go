package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// StatusStore implements store.StatusStore backed by Postgres.
// The agent_status table holds a single row with id = 1.
type StatusStore struct {
	db *sql.DB
}

func NewStatusStore(db *sql.DB) *StatusStore {
	return &StatusStore{db: db}
}

func (s *StatusStore) Active(ctx context.Context) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_active FROM agent_status WHERE id = 1`,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return active, nil
}

func (s *StatusStore) LastInitDate(ctx context.Context) (time.Time, error) {
	var day sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_initialization_date FROM agent_status WHERE id = 1`,
	).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !day.Valid {
		return time.Time{}, nil
	}
	return day.Time.UTC().Truncate(24 * time.Hour), nil
}

func (s *StatusStore) SetLastInitDate(ctx context.Context, day time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agent_status SET last_initialization_date = $1 WHERE id = 1`,
		day.UTC().Format("2006-01-02"),
	)
	return err
}
