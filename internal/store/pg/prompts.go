package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hrvisionhq/visionagent/internal/store"
)

// PromptStore implements store.PromptStore backed by Postgres.
type PromptStore struct {
	db *sql.DB
}

func NewPromptStore(db *sql.DB) *PromptStore {
	return &PromptStore{db: db}
}

func (s *PromptStore) Template(ctx context.Context, name string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompts WHERE name = $1`,
		name,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	// Templates are edited in web UIs that save CRLF.
	return strings.ReplaceAll(content, "\r\n", "\n"), nil
}

func (s *PromptStore) Examples(ctx context.Context, promptName, status string, limit int) ([]store.Example, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT original_message_text, ai_generated_text
		 FROM ai_suggestions_log
		 WHERE prompt_version = $1 AND status = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		promptName, status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examples []store.Example
	for rows.Next() {
		var ex store.Example
		if err := rows.Scan(&ex.OriginalText, &ex.GeneratedText); err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}
