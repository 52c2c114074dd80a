package pg

import (
	"context"
	"database/sql"

	"github.com/hrvisionhq/visionagent/internal/store"
)

// ActionStore implements store.ActionStore backed by Postgres.
type ActionStore struct {
	db *sql.DB
}

func NewActionStore(db *sql.DB) *ActionStore {
	return &ActionStore{db: db}
}

func (s *ActionStore) Pending(ctx context.Context) ([]store.PendingAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action_type, target_chat_id, target_user_id,
		        reply_to_message_id, message_text, lead_user_id, pitch_text
		 FROM pending_actions
		 WHERE is_completed = FALSE
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
		`UPDATE pending_actions SET is_completed = TRUE WHERE id = $1`,
		id,
	)
	return err
}
