// Package telegram wraps the MTProto client behind the narrow surface the
// pipeline needs: entity resolution, bounded history reads, and sends.
package telegram

import (
	"context"
	"errors"
	"time"
)

// ErrNotAuthorized is returned when the stored session is missing or stale.
// Login is an out-of-band operation; a run cannot recover from this.
var ErrNotAuthorized = errors.New("telegram: session not authorized")

// EntityKind discriminates the closed set of peer variants.
type EntityKind int

const (
	KindChannel EntityKind = iota // broadcast channel or supergroup
	KindGroup                     // basic group chat
	KindUser
)

// botAPIChannelOffset converts between bare MTProto channel ids and the
// -100-prefixed ids used in configuration and the pending-action queue.
const botAPIChannelOffset = int64(1000000000000)

// Entity is a resolved conversation target. LinkedChatID is non-zero only
// for broadcast channels with a linked discussion chat; it is a bare
// channel id resolvable with Resolve(-100...).
type Entity struct {
	Kind         EntityKind
	ID           int64 // bare MTProto id
	AccessHash   int64
	LinkedChatID int64
}

// Key returns the canonical external identifier for the entity, the form
// used to key watermarks and rate-limit state.
func (e Entity) Key() int64 {
	switch e.Kind {
	case KindChannel:
		return -(botAPIChannelOffset + e.ID)
	case KindGroup:
		return -e.ID
	default:
		return e.ID
	}
}

// ChannelKey converts a bare channel id to its external identifier.
func ChannelKey(bare int64) int64 {
	return -(botAPIChannelOffset + bare)
}

// SplitID classifies an external identifier into its entity kind and bare id.
func SplitID(id int64) (EntityKind, int64) {
	switch {
	case id <= -botAPIChannelOffset:
		return KindChannel, -id - botAPIChannelOffset
	case id < 0:
		return KindGroup, -id
	default:
		return KindUser, id
	}
}

// Sender is the author of a message, as far as the history response reveals.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
}

// Message is one conversation message. Ephemeral: sourced fresh each run,
// never persisted.
type Message struct {
	ID       int64
	ChatID   int64 // external key of the conversation it was read from
	SenderID int64 // zero for anonymous channel posts
	Sender   *Sender
	Text     string // empty for non-text messages
	Time     time.Time
}

// Account identifies the logged-in agent account.
type Account struct {
	ID        int64
	Username  string
	FirstName string
}

// HistoryOptions bounds a history read.
type HistoryOptions struct {
	MinID int64     // only messages with id strictly greater
	Since time.Time // only messages at or after this instant
}

// Client is the platform surface consumed by the pipeline and dispatcher.
// Implementations must perform resolution fresh on each call: access-hash
// caches may live for the lifetime of one client, never across runs.
type Client interface {
	// Self returns the logged-in account.
	Self(ctx context.Context) (Account, error)

	// Resolve maps an external identifier to a live entity, including the
	// linked discussion chat id for broadcast channels.
	Resolve(ctx context.Context, id int64) (Entity, error)

	// History returns messages matching opts in chronological order,
	// including the agent's own and non-text messages; callers filter.
	History(ctx context.Context, ent Entity, opts HistoryOptions) ([]Message, error)

	// LatestMessageID returns the newest message id in the conversation,
	// or zero for an empty one.
	LatestMessageID(ctx context.Context, ent Entity) (int64, error)

	// Send posts text into the conversation, optionally as a reply.
	Send(ctx context.Context, ent Entity, replyTo int64, text string) error

	// SendUser sends a direct message to a user by id.
	SendUser(ctx context.Context, userID int64, text string) error
}
