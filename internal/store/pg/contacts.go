package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ContactStore implements store.ContactStore backed by Postgres.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) ContactedToday(ctx context.Context, userID int64, day time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM daily_user_contacts WHERE user_id = $1 AND last_contact_date = $2`,
		userID, day.UTC().Format("2006-01-02"),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ContactStore) RecordContact(ctx context.Context, userID int64, day time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_user_contacts (user_id, last_contact_date) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET last_contact_date = $2`,
		userID, day.UTC().Format("2006-01-02"),
	)
	return err
}
