// Package outbox delivers approved pending actions to Telegram. Rows are
// written by the external approval workflow; the dispatcher drains them with
// at-least-once semantics, leaving failed rows incomplete for the next run.
package outbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// Dispatcher drains the pending-action queue. Sends are paced with a rate
// limiter so a backlog does not burst-flood the account.
type Dispatcher struct {
	stores  store.Stores
	client  telegram.Client
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
}

func NewDispatcher(stores store.Stores, client telegram.Client, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		stores: stores,
		client: client,
		// One send per 3s, small burst for the common single-action case.
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		log:     log,
		now:     time.Now,
	}
}

// Drain sends every incomplete action and reports how many succeeded. Rows
// with unusable data are skipped but left incomplete so they stay visible;
// send failures are left incomplete for retry on the next run.
func (d *Dispatcher) Drain(ctx context.Context) (sent, total int) {
	actions, err := d.stores.Actions.Pending(ctx)
	if err != nil {
		d.log.Error("load pending actions", "error", err)
		return 0, 0
	}
	if len(actions) == 0 {
		return 0, 0
	}
	d.log.Info("draining outbox", "pending", len(actions))

	for _, action := range actions {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn("outbox drain interrupted", "error", err)
			return sent, len(actions)
		}
		if d.dispatch(ctx, action) {
			sent++
		}
	}
	return sent, len(actions)
}

// dispatch sends one action and records the aftermath. Returns true when
// the send succeeded and the row was marked completed.
func (d *Dispatcher) dispatch(ctx context.Context, action store.PendingAction) bool {
	// Rows written without a type are replies, and carry a reply's full
	// aftermath including the post-timestamp update.
	if action.ActionType == "" {
		action.ActionType = store.ActionReply
	}
	log := d.log.With("action_id", action.ID, "action_type", action.ActionType)

	var (
		contactUserID int64
		err           error
	)
	switch action.ActionType {
	case store.ActionLeadOutreach:
		if action.LeadUserID == 0 || strings.TrimSpace(action.PitchText) == "" {
			log.Warn("lead action missing user or pitch, skipping")
			return false
		}
		err = d.client.SendUser(ctx, action.LeadUserID, action.PitchText)
		contactUserID = action.LeadUserID

	default: // reply and keyword_alert both post into the chat
		if action.TargetChatID == 0 || strings.TrimSpace(action.MessageText) == "" {
			log.Warn("action missing chat or text, skipping")
			return false
		}
		var ent telegram.Entity
		ent, err = d.client.Resolve(ctx, action.TargetChatID)
		if err == nil {
			err = d.client.Send(ctx, ent, action.ReplyToMessageID, action.MessageText)
		}
		contactUserID = action.TargetUserID
	}

	if err != nil {
		log.Error("send failed, action left for retry", "error", err)
		return false
	}

	if err := d.stores.Actions.MarkCompleted(ctx, action.ID); err != nil {
		// The message went out; an incomplete row now means a duplicate
		// send on the next run. Loud log, nothing else to do.
		log.Error("sent but failed to mark completed", "error", err)
		return true
	}
	log.Info("action delivered")

	if contactUserID != 0 {
		day := dayOf(d.now())
		if err := d.stores.Contacts.RecordContact(ctx, contactUserID, day); err != nil {
			log.Error("record user contact", "user", contactUserID, "error", err)
		}
	}
	if action.ActionType == store.ActionReply {
		if err := d.stores.State.SetLastPostTime(ctx, action.TargetChatID, d.now()); err != nil {
			log.Error("record last post time", "chat", action.TargetChatID, "error", err)
		}
	}
	return true
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
