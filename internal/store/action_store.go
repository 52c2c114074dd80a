package store

import "context"

// Action types as stored in the pending-action queue. The approval workflow
// writes rows with these types; the dispatcher picks the send mode from them.
const (
	ActionReply        = "reply"
	ActionKeywordAlert = "keyword_alert"
	ActionLeadOutreach = "lead_outreach"
)

// PendingAction is an approved action awaiting delivery. Rows are created
// externally by the approval workflow; the dispatcher only reads them and
// flips IsCompleted. A row left incomplete is retried on the next run
// (at-least-once delivery).
type PendingAction struct {
	ID               int64
	ActionType       string
	TargetChatID     int64
	TargetUserID     int64
	ReplyToMessageID int64
	MessageText      string
	LeadUserID       int64
	PitchText        string
	IsCompleted      bool
}

// ActionStore reads and completes pending-action rows.
type ActionStore interface {
	// Pending returns all rows with is_completed = false, oldest first.
	Pending(ctx context.Context) ([]PendingAction, error)

	// MarkCompleted flips a row's completion flag.
	MarkCompleted(ctx context.Context, id int64) error
}
