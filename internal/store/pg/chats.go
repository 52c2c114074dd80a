package pg

import (
	"context"
	"database/sql"

	"github.com/hrvisionhq/visionagent/internal/store"
)

// ChatStore implements store.ChatStore backed by Postgres.
type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) List(ctx context.Context) ([]store.TargetChat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, chat_type FROM target_chats ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []store.TargetChat
	for rows.Next() {
		var c store.TargetChat
		if err := rows.Scan(&c.ChatID, &c.Kind); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *ChatStore) Add(ctx context.Context, chat store.TargetChat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO target_chats (chat_id, chat_type) VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE SET chat_type = $2`,
		chat.ChatID, chat.Kind,
	)
	return err
}
