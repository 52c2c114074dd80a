package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Callers that treat absence as a default (zero watermark, no session)
// branch on it with errors.Is.
var ErrNotFound = errors.New("store: not found")

// Stores is the top-level container for all storage backends.
// Constructed once at run start and passed into every component, so tests
// can substitute in-memory fakes per store.
type Stores struct {
	Sessions SessionStore
	Chats    ChatStore
	State    StateStore
	Prompts  PromptStore
	Actions  ActionStore
	Status   StatusStore
	Keywords KeywordStore
	Contacts ContactStore
}

// Config selects and configures a storage backend.
type Config struct {
	Driver      string // "postgres" or "sqlite"
	PostgresDSN string // from env only, never persisted in config files
	SQLitePath  string
}
