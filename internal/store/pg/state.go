package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// StateStore implements store.StateStore backed by Postgres.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) LastMessageID(ctx context.Context, chatID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_message_id FROM channel_state WHERE chat_id = $1`,
		chatID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *StateStore) SetLastMessageID(ctx context.Context, chatID, messageID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_state (chat_id, last_message_id) VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE SET last_message_id = $2`,
		chatID, messageID,
	)
	return err
}

func (s *StateStore) LastPostTime(ctx context.Context, chatID int64) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_agent_post_timestamp FROM channel_state WHERE chat_id = $1`,
		chatID,
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

func (s *StateStore) SetLastPostTime(ctx context.Context, chatID int64, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_state (chat_id, last_agent_post_timestamp) VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE SET last_agent_post_timestamp = $2`,
		chatID, t.UTC(),
	)
	return err
}

func (s *StateStore) Watermarks(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, last_message_id FROM channel_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(map[int64]int64)
	for rows.Next() {
		var chatID, msgID int64
		if err := rows.Scan(&chatID, &msgID); err != nil {
			return nil, err
		}
		marks[chatID] = msgID
	}
	return marks, rows.Err()
}
