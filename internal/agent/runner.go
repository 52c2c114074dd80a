// Package agent implements the per-run orchestration: daily initialization,
// the engagement pass over each watched chat, the keyword alarm, the
// two-stage model pipeline, the lead hunt, and the outbox drain.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hrvisionhq/visionagent/internal/approval"
	"github.com/hrvisionhq/visionagent/internal/providers"
	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// OutboxDrainer delivers approved pending actions. Satisfied by the outbox
// dispatcher; tests substitute a fake.
type OutboxDrainer interface {
	Drain(ctx context.Context) (sent, total int)
}

// Config carries the per-run tunables.
type Config struct {
	RouterModel    string
	GeneratorModel string
	ContextWindow  int
	ExampleLimit   int
	ReplyCooldown  time.Duration
}

// Runner executes one agent run end to end. It holds no cross-run state;
// everything durable lives behind the stores.
type Runner struct {
	stores store.Stores
	client telegram.Client
	llm    providers.TextGenerator
	sink   approval.Sink
	outbox OutboxDrainer
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

func NewRunner(stores store.Stores, client telegram.Client, llm providers.TextGenerator, sink approval.Sink, outbox OutboxDrainer, cfg Config, log *slog.Logger) *Runner {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 7
	}
	if cfg.ExampleLimit <= 0 {
		cfg.ExampleLimit = 10
	}
	return &Runner{
		stores: stores,
		client: client,
		llm:    llm,
		sink:   sink,
		outbox: outbox,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Run executes one complete agent cycle. The first run of a calendar day
// only seeds watermarks and returns; engagement starts with the next run.
func (r *Runner) Run(ctx context.Context) error {
	ctx, span := otel.Tracer("agent").Start(ctx, "agent.run")
	defer span.End()

	active, err := r.stores.Status.Active(ctx)
	if err != nil {
		return fmt.Errorf("read agent status: %w", err)
	}
	if !active {
		r.log.Info("agent is inactive, run cancelled")
		return nil
	}

	today := dayOf(r.now())
	lastInit, err := r.stores.Status.LastInitDate(ctx)
	if err != nil {
		return fmt.Errorf("read last initialization date: %w", err)
	}
	if lastInit.Before(today) {
		return r.initializeDay(ctx, today)
	}

	self, err := r.client.Self(ctx)
	if err != nil {
		return fmt.Errorf("identify agent account: %w", err)
	}
	r.log.Info("run started", "account", self.FirstName, "account_id", self.ID)

	// Approved actions go out before engagement, so a delivered reply's
	// post timestamp gates this run's own pipeline.
	sent, total := r.outbox.Drain(ctx)
	if total > 0 {
		r.log.Info("outbox drained", "sent", sent, "total", total)
	}

	chats, err := r.stores.Chats.List(ctx)
	if err != nil {
		return fmt.Errorf("load target chats: %w", err)
	}
	if len(chats) == 0 {
		r.log.Info("no target chats configured")
		return nil
	}

	keywords, err := r.stores.Keywords.Keywords(ctx)
	if err != nil {
		r.log.Error("load keyword triggers, alarm disabled for this run", "error", err)
		keywords = nil
	}

	// Per-chat failures are isolated; the windows that did fetch still feed
	// the lead hunt afterwards.
	var pool []telegram.Message
	for _, chat := range chats {
		msgs := r.engageChat(ctx, chat, self.ID, today, keywords)
		pool = append(pool, msgs...)
	}

	if len(pool) > 0 {
		r.huntLeads(ctx, pool)
	} else {
		r.log.Info("no new messages collected, lead hunt skipped")
	}

	r.log.Info("run finished", "chats", len(chats), "pooled_messages", len(pool))
	return nil
}

// initializeDay seeds every watched conversation's watermark to its current
// newest message, so the working runs of the day only see messages posted
// after this point.
func (r *Runner) initializeDay(ctx context.Context, today time.Time) error {
	ctx, span := otel.Tracer("agent").Start(ctx, "agent.initialize_day")
	defer span.End()

	r.log.Info("first run of the day, initializing watermarks", "day", today.Format("2006-01-02"))

	chats, err := r.stores.Chats.List(ctx)
	if err != nil {
		return fmt.Errorf("load target chats: %w", err)
	}

	for _, chat := range chats {
		ent, err := r.resolveTarget(ctx, chat)
		if errors.Is(err, ErrNoDiscussion) {
			// No comment section to watch; seed the channel itself so a
			// later linked chat starts from a sane baseline.
			ent, err = r.client.Resolve(ctx, chat.ChatID)
		}
		if err != nil {
			r.log.Error("initialize chat failed", "chat", chat.ChatID, "error", err)
			continue
		}

		latest, err := r.client.LatestMessageID(ctx, ent)
		if err != nil {
			r.log.Error("read latest message id", "chat", chat.ChatID, "error", err)
			continue
		}
		if latest == 0 {
			r.log.Info("conversation is empty, skipping", "chat", chat.ChatID)
			continue
		}
		if err := r.stores.State.SetLastMessageID(ctx, ent.Key(), latest); err != nil {
			r.log.Error("seed watermark", "chat", chat.ChatID, "error", err)
			continue
		}
		r.log.Info("watermark seeded", "chat", chat.ChatID, "processing_id", ent.Key(), "message_id", latest)
	}

	if err := r.stores.Status.SetLastInitDate(ctx, today); err != nil {
		return fmt.Errorf("record initialization date: %w", err)
	}
	r.log.Info("daily initialization complete")
	return nil
}

// engageChat runs the engagement pass for one conversation and returns the
// fetched window for the cross-chat lead hunt. All failures are logged and
// isolated to this chat.
func (r *Runner) engageChat(ctx context.Context, chat store.TargetChat, selfID int64, today time.Time, keywords []string) []telegram.Message {
	ctx, span := otel.Tracer("agent").Start(ctx, "agent.engage_chat")
	span.SetAttributes(attribute.Int64("chat.id", chat.ChatID))
	defer span.End()

	log := r.log.With("chat", chat.ChatID)

	ent, err := r.resolveTarget(ctx, chat)
	if errors.Is(err, ErrNoDiscussion) {
		log.Info("channel comments disabled, skipping")
		return nil
	}
	if err != nil {
		log.Error("resolve target", "error", err)
		return nil
	}
	procID := ent.Key()
	log = log.With("processing_id", procID)

	// Cooldown skips the conversation outright: nothing is fetched, the
	// watermark stays put, and the messages surface again next run.
	if !r.replyAllowed(ctx, procID, log) {
		return nil
	}

	w, err := r.fetchWindow(ctx, ent, selfID, today)
	if err != nil {
		log.Error("fetch window", "error", err)
		return nil
	}
	if len(w.messages) == 0 {
		log.Info("no new messages today")
		return nil
	}
	log.Info("window fetched", "messages", len(w.messages), "watermark", w.prevID)

	for _, alert := range KeywordAlerts(w.messages, keywords) {
		log.Info("keyword trigger matched", "keyword", alert.Keyword, "message_id", alert.Message.ID)
		r.submit(ctx, approval.Action{
			ActionType:          store.ActionKeywordAlert,
			TargetChatID:        procID,
			OriginalMessageText: alert.Message.Text,
			ReplyToMessageID:    alert.Message.ID,
		})
	}

	r.runPipeline(ctx, ent, selfID, w.messages)

	// The watermark moves even when the pipeline produced nothing: these
	// messages were considered and must not be re-fed next run.
	if w.maxID > w.prevID {
		if err := r.stores.State.SetLastMessageID(ctx, procID, w.maxID); err != nil {
			log.Error("advance watermark", "message_id", w.maxID, "error", err)
		}
	}
	return w.messages
}

// replyAllowed enforces the per-chat public-post cooldown. While the
// cooldown is active the whole engagement pass for the conversation is
// skipped, leaving its watermark untouched for the next run.
func (r *Runner) replyAllowed(ctx context.Context, procID int64, log *slog.Logger) bool {
	if r.cfg.ReplyCooldown <= 0 {
		return true
	}
	last, err := r.stores.State.LastPostTime(ctx, procID)
	if err != nil {
		log.Error("read last post time", "error", err)
		return false
	}
	if last.IsZero() {
		return true
	}
	if since := r.now().Sub(last); since < r.cfg.ReplyCooldown {
		log.Info("reply cooldown active, conversation skipped", "since_last_post", since.Round(time.Second))
		return false
	}
	return true
}

// submit hands one action to the approval sink. A failed submission is
// logged and dropped, never retried in-process.
func (r *Runner) submit(ctx context.Context, action approval.Action) {
	if err := r.sink.Submit(ctx, action); err != nil {
		r.log.Error("submit action for approval", "action_type", action.ActionType, "error", err)
		return
	}
	r.log.Info("action submitted for approval", "action_type", action.ActionType, "chat", action.TargetChatID)
}

// dayOf truncates t to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
