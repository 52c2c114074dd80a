package store

import "context"

// Chat kinds. A channel is processed through its linked discussion chat;
// a group is processed directly.
const (
	ChatKindChannel = "channel"
	ChatKindGroup   = "group"
)

// TargetChat is one conversation the agent watches. ChatID is the logical
// (configured) identifier; the resolved processing id may differ for
// channels with a linked discussion chat.
type TargetChat struct {
	ChatID int64
	Kind   string
}

// ChatStore manages the set of watched conversations.
type ChatStore interface {
	List(ctx context.Context) ([]TargetChat, error)
	Add(ctx context.Context, chat TargetChat) error
}
