package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hrvisionhq/visionagent/internal/store"
)

const dayFormat = "2006-01-02"

// SessionStore implements store.SessionStore on sqlite.
type SessionStore struct {
	db *sql.DB
}

func (s *SessionStore) Session(ctx context.Context, agentName string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT session_data FROM sessions WHERE agent_name = ?`, agentName,
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
		`INSERT INTO sessions (agent_name, session_data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (agent_name) DO UPDATE SET session_data = excluded.session_data, updated_at = excluded.updated_at`,
		agentName, data, time.Now().UTC(),
	)
	return err
}

// ChatStore implements store.ChatStore on sqlite.
type ChatStore struct {
	db *sql.DB
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
		`INSERT INTO target_chats (chat_id, chat_type) VALUES (?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET chat_type = excluded.chat_type`,
		chat.ChatID, chat.Kind,
	)
	return err
}

// StateStore implements store.StateStore on sqlite.
type StateStore struct {
	db *sql.DB
}

func (s *StateStore) LastMessageID(ctx context.Context, chatID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_message_id FROM channel_state WHERE chat_id = ?`, chatID,
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
		`INSERT INTO channel_state (chat_id, last_message_id) VALUES (?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET last_message_id = excluded.last_message_id`,
		chatID, messageID,
	)
	return err
}

func (s *StateStore) LastPostTime(ctx context.Context, chatID int64) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_agent_post_timestamp FROM channel_state WHERE chat_id = ?`, chatID,
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
		`INSERT INTO channel_state (chat_id, last_agent_post_timestamp) VALUES (?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET last_agent_post_timestamp = excluded.last_agent_post_timestamp`,
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

// PromptStore implements store.PromptStore on sqlite.
type PromptStore struct {
	db *sql.DB
}

func (s *PromptStore) Template(ctx context.Context, name string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompts WHERE name = ?`, name,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(content, "\r\n", "\n"), nil
}

func (s *PromptStore) Examples(ctx context.Context, promptName, status string, limit int) ([]store.Example, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT original_message_text, ai_generated_text
		 FROM ai_suggestions_log
		 WHERE prompt_version = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
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

// ActionStore implements store.ActionStore on sqlite.
type ActionStore struct {
	db *sql.DB
}

func (s *ActionStore) Pending(ctx context.Context) ([]store.PendingAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action_type, target_chat_id, target_user_id,
		        reply_to_message_id, message_text, lead_user_id, pitch_text
		 FROM pending_actions
		 WHERE is_completed = 0
		 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []store.PendingAction
	for rows.Next() {
		var (
			a                                  store.PendingAction
			actionType, messageText, pitchText sql.NullString
			chatID, userID, replyTo, leadID    sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &actionType, &chatID, &userID, &replyTo, &messageText, &leadID, &pitchText); err != nil {
			return nil, err
		}
		a.ActionType = actionType.String
		a.TargetChatID = chatID.Int64
		a.TargetUserID = userID.Int64
		a.ReplyToMessageID = replyTo.Int64
		a.MessageText = messageText.String
		a.LeadUserID = leadID.Int64
		a.PitchText = pitchText.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *ActionStore) MarkCompleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_actions SET is_completed = 1 WHERE id = ?`, id)
	return err
}

// StatusStore implements store.StatusStore on sqlite.
type StatusStore struct {
	db *sql.DB
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
	var day sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_initialization_date FROM agent_status WHERE id = 1`,
	).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !day.Valid || day.String == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dayFormat, day.String, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (s *StatusStore) SetLastInitDate(ctx context.Context, day time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agent_status SET last_initialization_date = ? WHERE id = 1`,
		day.UTC().Format(dayFormat),
	)
	return err
}

// KeywordStore implements store.KeywordStore on sqlite.
type KeywordStore struct {
	db *sql.DB
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

// ContactStore implements store.ContactStore on sqlite.
type ContactStore struct {
	db *sql.DB
}

func (s *ContactStore) ContactedToday(ctx context.Context, userID int64, day time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM daily_user_contacts WHERE user_id = ? AND last_contact_date = ?`,
		userID, day.UTC().Format(dayFormat),
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
		`INSERT INTO daily_user_contacts (user_id, last_contact_date) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET last_contact_date = excluded.last_contact_date`,
		userID, day.UTC().Format(dayFormat),
	)
	return err
}
