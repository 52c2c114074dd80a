package pg

import (
	"context"
	"database/sql"
)

// KeywordStore implements store.KeywordStore backed by Postgres.
type KeywordStore struct {
	db *sql.DB
}

func NewKeywordStore(db *sql.DB) *KeywordStore {
	return &KeywordStore{db: db}
}

func (s *KeywordStore) Keywords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT keyword FROM keyword_triggers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}
