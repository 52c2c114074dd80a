package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hrvisionhq/visionagent/internal/approval"
	"github.com/hrvisionhq/visionagent/internal/prompt"
	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

const routerPromptName = "router_prompt"

// routerMessage is one entry in the router's input payload.
type routerMessage struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// historyEntry is one entry in the generator's conversation window payload.
type historyEntry struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// routeMessages runs stage one: the fast model classifies the window and
// tags reply candidates with a persona. Every failure mode is soft; a run
// with a broken router simply proposes nothing.
func (r *Runner) routeMessages(ctx context.Context, messages []telegram.Message) []RoutingDecision {
	tpl, err := r.stores.Prompts.Template(ctx, routerPromptName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn("router prompt missing, skipping routing", "prompt", routerPromptName)
		} else {
			r.log.Error("load router prompt", "error", err)
		}
		return nil
	}

	payload := make([]routerMessage, 0, len(messages))
	for _, m := range messages {
		payload = append(payload, routerMessage{MessageID: m.ID, Text: strings.TrimSpace(m.Text)})
	}
	body, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		r.log.Error("encode router payload", "error", err)
		return nil
	}

	raw, err := r.llm.Generate(ctx, r.cfg.RouterModel, prompt.Render(tpl, prompt.Vars{Messages: string(body)}))
	if err != nil {
		r.log.Error("router model call failed", "model", r.cfg.RouterModel, "error", err)
		return nil
	}

	decisions, err := decodeModelArray[RoutingDecision](raw)
	if err != nil {
		r.log.Error("router returned malformed output", "error", err, "raw", truncateForLog(raw))
		return nil
	}
	r.log.Info("routing complete", "candidates", len(payload), "decisions", len(decisions))
	return decisions
}

// selectReply applies the one-reply-per-run rule: the first reply decision
// wins, any surplus is logged and discarded.
func selectReply(decisions []RoutingDecision) (RoutingDecision, int) {
	var (
		chosen  RoutingDecision
		replies int
	)
	for _, d := range decisions {
		if !strings.EqualFold(d.Decision, DecisionReply) {
			continue
		}
		if replies == 0 {
			chosen = d
		}
		replies++
	}
	return chosen, replies
}

// runPipeline runs both model stages over one fetched window and submits at
// most one reply proposal for approval.
func (r *Runner) runPipeline(ctx context.Context, ent telegram.Entity, selfID int64, messages []telegram.Message) {
	decisions := r.routeMessages(ctx, messages)
	chosen, replies := selectReply(decisions)
	if replies == 0 {
		return
	}
	if replies > 1 {
		r.log.Warn("router proposed multiple replies, keeping first", "proposed", replies, "chat", ent.Key())
	}

	target, ok := findMessage(messages, chosen.MessageID)
	if !ok {
		r.log.Warn("router referenced unknown message id", "message_id", chosen.MessageID, "chat", ent.Key())
		return
	}

	// Same-day contact suppression runs before the expensive generator call.
	if target.SenderID != 0 {
		contacted, err := r.stores.Contacts.ContactedToday(ctx, target.SenderID, dayOf(r.now()))
		if err != nil {
			r.log.Error("contact lookup failed", "user", target.SenderID, "error", err)
			return
		}
		if contacted {
			r.log.Info("user already contacted today, skipping reply", "user", target.SenderID, "chat", ent.Key())
			return
		}
	}

	win := ContextWindow(messages, target.ID, r.cfg.ContextWindow)
	if win == nil {
		win = []telegram.Message{target}
	}

	action := r.generateReply(ctx, ent, win, chosen.Persona, selfID)
	if action == nil {
		return
	}
	r.submit(ctx, *action)
}

// generateReply runs stage two: the quality model writes the reply under
// the persona's prompt, with approved and declined examples as in-context
// guidance. Returns nil whenever anything prevents a usable reply.
func (r *Runner) generateReply(ctx context.Context, ent telegram.Entity, win []telegram.Message, persona string, selfID int64) *approval.Action {
	promptName := strings.ToLower(strings.TrimSpace(persona)) + "_prompt"
	tpl, err := r.stores.Prompts.Template(ctx, promptName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn("persona prompt missing, skipping reply", "prompt", promptName)
		} else {
			r.log.Error("load persona prompt", "prompt", promptName, "error", err)
		}
		return nil
	}

	good := r.exampleBlock(ctx, promptName, store.ExampleApproved)
	bad := r.exampleBlock(ctx, promptName, store.ExampleDeclined)

	history := make([]historyEntry, 0, len(win))
	for _, m := range win {
		author := "user"
		if m.SenderID == selfID {
			author = "me"
		}
		history = append(history, historyEntry{ID: m.ID, Author: author, Text: strings.TrimSpace(m.Text)})
	}
	historyJSON, err := json.MarshalIndent(history, "", "    ")
	if err != nil {
		r.log.Error("encode conversation history", "error", err)
		return nil
	}

	raw, err := r.llm.Generate(ctx, r.cfg.GeneratorModel, prompt.Render(tpl, prompt.Vars{
		History:      string(historyJSON),
		GoodExamples: good,
		BadExamples:  bad,
	}))
	if err != nil {
		r.log.Error("generator model call failed", "model", r.cfg.GeneratorModel, "error", err)
		return nil
	}

	replies, err := decodeModelArray[generatedReply](raw)
	if err != nil {
		r.log.Error("generator returned malformed output", "error", err, "raw", truncateForLog(raw))
		return nil
	}
	if len(replies) == 0 {
		r.log.Info("persona declined to reply", "persona", persona, "chat", ent.Key())
		return nil
	}

	reply := replies[0]
	if strings.TrimSpace(reply.MessageText) == "" {
		r.log.Warn("generator produced empty reply text", "persona", persona, "chat", ent.Key())
		return nil
	}

	last := win[len(win)-1]
	if reply.ReplyToMessageID == 0 {
		reply.ReplyToMessageID = last.ID
	}
	return &approval.Action{
		ActionType:          store.ActionReply,
		TargetChatID:        ent.Key(),
		TargetUserID:        last.SenderID,
		ReplyToMessageID:    reply.ReplyToMessageID,
		MessageText:         reply.MessageText,
		Persona:             persona,
		ModelVersion:        r.cfg.GeneratorModel,
		PromptVersion:       promptName,
		OriginalMessageText: last.Text,
	}
}

// exampleBlock loads examples of one status and formats them as a prompt
// fragment. Empty on any failure so a broken example log never blocks a run.
func (r *Runner) exampleBlock(ctx context.Context, promptName, status string) string {
	examples, err := r.stores.Prompts.Examples(ctx, promptName, status, r.cfg.ExampleLimit)
	if err != nil {
		r.log.Error("load examples", "prompt", promptName, "status", status, "error", err)
		return ""
	}
	// The store returns newest first; the prompt wants oldest first so
	// recent examples land closest to the instruction.
	var parts []string
	for i := len(examples) - 1; i >= 0; i-- {
		ex := examples[i]
		if ex.OriginalText == "" || ex.GeneratedText == "" {
			continue
		}
		switch status {
		case store.ExampleApproved:
			parts = append(parts, "Исходное сообщение: "+ex.OriginalText+"\nТвой удачный ответ: "+ex.GeneratedText)
		default:
			parts = append(parts, "Исходное сообщение: "+ex.OriginalText+"\nТвой НЕУДАЧНЫЙ ответ: "+ex.GeneratedText)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	joined := strings.Join(parts, "\n---\n")
	if status == store.ExampleApproved {
		return "Вот несколько свежих примеров твоих удачных ответов в этой роли. Изучи их, чтобы сохранить свой стиль:\n" + joined
	}
	return "\nА вот так делать НЕ НАДО. Это примеры твоих недавних неудачных ответов, которые были отклонены. Изучи их, чтобы не повторять ошибок:\n" + joined
}

func findMessage(messages []telegram.Message, id int64) (telegram.Message, bool) {
	for _, m := range messages {
		if m.ID == id {
			return m, true
		}
	}
	return telegram.Message{}, false
}
