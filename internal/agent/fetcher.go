package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// ErrNoDiscussion marks a broadcast channel with comments disabled. The
// conversation is skipped for the run; there is nowhere to engage.
var ErrNoDiscussion = errors.New("channel has no linked discussion chat")

// window is the result of one fetch cycle for a conversation.
type window struct {
	messages []telegram.Message // candidates: new, today, not ours, text-bearing
	prevID   int64              // watermark before the fetch
	maxID    int64              // newest id observed, candidates or not
}

// resolveTarget resolves the logical chat to the entity actually processed.
// Channels redirect to their linked discussion chat; resolution is repeated
// every run because linked chats can be attached or detached at any time.
func (r *Runner) resolveTarget(ctx context.Context, chat store.TargetChat) (telegram.Entity, error) {
	ent, err := r.client.Resolve(ctx, chat.ChatID)
	if err != nil {
		return telegram.Entity{}, fmt.Errorf("resolve chat %d: %w", chat.ChatID, err)
	}
	if chat.Kind != store.ChatKindChannel {
		return ent, nil
	}
	if ent.LinkedChatID == 0 {
		return telegram.Entity{}, ErrNoDiscussion
	}
	linked, err := r.client.Resolve(ctx, telegram.ChannelKey(ent.LinkedChatID))
	if err != nil {
		return telegram.Entity{}, fmt.Errorf("resolve linked chat of %d: %w", chat.ChatID, err)
	}
	return linked, nil
}

// fetchWindow pulls this run's candidate messages for the resolved entity.
// maxID advances past self-authored and non-text messages too, so the
// watermark never re-reads them on the next run. The caller persists the
// watermark only after downstream processing has been attempted.
func (r *Runner) fetchWindow(ctx context.Context, ent telegram.Entity, selfID int64, dayStart time.Time) (*window, error) {
	procID := ent.Key()
	prev, err := r.stores.State.LastMessageID(ctx, procID)
	if err != nil {
		return nil, fmt.Errorf("load watermark: %w", err)
	}

	raw, err := r.client.History(ctx, ent, telegram.HistoryOptions{MinID: prev, Since: dayStart})
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	w := &window{prevID: prev, maxID: prev}
	for _, m := range raw {
		if m.ID <= prev {
			continue
		}
		if m.ID > w.maxID {
			w.maxID = m.ID
		}
		if m.SenderID == selfID {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		w.messages = append(w.messages, m)
	}
	return w, nil
}
