package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hrvisionhq/visionagent/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	agent_name TEXT PRIMARY KEY,
	session_data BLOB,
	updated_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS target_chats (
	chat_id INTEGER PRIMARY KEY,
	chat_type TEXT NOT NULL DEFAULT 'group'
);
CREATE TABLE IF NOT EXISTS channel_state (
	chat_id INTEGER PRIMARY KEY,
	last_message_id INTEGER NOT NULL DEFAULT 0,
	last_agent_post_timestamp TIMESTAMP
);
CREATE TABLE IF NOT EXISTS prompts (
	name TEXT PRIMARY KEY,
	content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ai_suggestions_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_version TEXT NOT NULL,
	status TEXT NOT NULL,
	original_message_text TEXT,
	ai_generated_text TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS pending_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action_type TEXT,
	target_chat_id INTEGER,
	target_user_id INTEGER,
	reply_to_message_id INTEGER,
	message_text TEXT,
	lead_user_id INTEGER,
	pitch_text TEXT,
	is_completed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS agent_status (
	id INTEGER PRIMARY KEY,
	is_active INTEGER NOT NULL DEFAULT 0,
	last_initialization_date TEXT
);
INSERT OR IGNORE INTO agent_status (id, is_active) VALUES (1, 0);
CREATE TABLE IF NOT EXISTS keyword_triggers (
	keyword TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS daily_user_contacts (
	user_id INTEGER PRIMARY KEY,
	last_contact_date TEXT NOT NULL
);
`

// OpenDB opens (and creates if needed) the standalone sqlite database.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

// NewStores creates all stores backed by a local sqlite file (standalone mode).
func NewStores(cfg store.Config) (*store.Stores, error) {
	db, err := OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &store.Stores{
		Sessions: &SessionStore{db: db},
		Chats:    &ChatStore{db: db},
		State:    &StateStore{db: db},
		Prompts:  &PromptStore{db: db},
		Actions:  &ActionStore{db: db},
		Status:   &StatusStore{db: db},
		Keywords: &KeywordStore{db: db},
		Contacts: &ContactStore{db: db},
	}, nil
}
