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

const (
	leadRouterPromptName   = "lead_router_prompt"
	leadOutreachPromptName = "lead_outreach_prompt"
)

// huntLeads classifies the window for hiring intent and submits one outreach
// proposal per identified lead. Independent of the reply pipeline: the same
// window feeds both, and lead outreach does not count against the one-reply
// rule because it produces DMs, not public posts.
func (r *Runner) huntLeads(ctx context.Context, messages []telegram.Message) {
	decisions := r.classifyLeads(ctx, messages)
	if len(decisions) == 0 {
		return
	}

	var hot, cold []LeadDecision
	for _, d := range decisions {
		switch d.LeadType {
		case LeadHot:
			hot = append(hot, d)
		case LeadCold:
			cold = append(cold, d)
		}
	}
	if len(hot) == 0 && len(cold) == 0 {
		return
	}
	r.log.Info("leads identified", "hot", len(hot), "cold", len(cold))

	// Hot leads first so they reach the approval queue ahead of cold ones.
	for _, d := range append(hot, cold...) {
		target, ok := findMessage(messages, d.MessageID)
		if !ok {
			r.log.Warn("lead classifier referenced unknown message id", "message_id", d.MessageID)
			continue
		}
		if target.Sender == nil {
			r.log.Warn("lead message has no resolvable author, skipping", "message_id", d.MessageID)
			continue
		}

		pitch := r.generatePitch(ctx, target)
		if pitch == "" {
			continue
		}

		r.submit(ctx, approval.Action{
			ActionType:          store.ActionLeadOutreach,
			LeadType:            d.LeadType,
			LeadUserID:          target.Sender.ID,
			LeadUsername:        target.Sender.Username,
			LeadFirstName:       target.Sender.FirstName,
			OriginalMessageText: target.Text,
			OriginalMessageID:   target.ID,
			SourceChatID:        target.ChatID,
			PitchText:           pitch,
		})
	}
}

// classifyLeads runs the fast model over the window with the lead
// classification prompt. Soft-fails to an empty result.
func (r *Runner) classifyLeads(ctx context.Context, messages []telegram.Message) []LeadDecision {
	tpl, err := r.stores.Prompts.Template(ctx, leadRouterPromptName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn("lead router prompt missing, skipping lead hunt", "prompt", leadRouterPromptName)
		} else {
			r.log.Error("load lead router prompt", "error", err)
		}
		return nil
	}

	payload := make([]routerMessage, 0, len(messages))
	for _, m := range messages {
		payload = append(payload, routerMessage{MessageID: m.ID, Text: strings.TrimSpace(m.Text)})
	}
	body, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		r.log.Error("encode lead payload", "error", err)
		return nil
	}

	raw, err := r.llm.Generate(ctx, r.cfg.RouterModel, prompt.Render(tpl, prompt.Vars{Messages: string(body)}))
	if err != nil {
		r.log.Error("lead classifier call failed", "model", r.cfg.RouterModel, "error", err)
		return nil
	}

	decisions, err := decodeModelArray[LeadDecision](raw)
	if err != nil {
		r.log.Error("lead classifier returned malformed output", "error", err, "raw", truncateForLog(raw))
		return nil
	}
	return decisions
}

// generatePitch writes a personalized outreach message for one lead.
// Returns the empty string on any failure.
func (r *Runner) generatePitch(ctx context.Context, target telegram.Message) string {
	tpl, err := r.stores.Prompts.Template(ctx, leadOutreachPromptName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn("lead outreach prompt missing, skipping pitch", "prompt", leadOutreachPromptName)
		} else {
			r.log.Error("load lead outreach prompt", "error", err)
		}
		return ""
	}

	body, err := json.MarshalIndent([]routerMessage{{MessageID: target.ID, Text: strings.TrimSpace(target.Text)}}, "", "    ")
	if err != nil {
		r.log.Error("encode lead message", "error", err)
		return ""
	}

	raw, err := r.llm.Generate(ctx, r.cfg.GeneratorModel, prompt.Render(tpl, prompt.Vars{Messages: string(body)}))
	if err != nil {
		r.log.Error("pitch generation failed", "model", r.cfg.GeneratorModel, "error", err)
		return ""
	}

	pitch, err := decodeModelObject[generatedPitch](raw)
	if err != nil {
		r.log.Error("pitch generator returned malformed output", "error", err, "raw", truncateForLog(raw))
		return ""
	}
	if strings.TrimSpace(pitch.PitchText) == "" {
		r.log.Warn("pitch generator produced no text", "message_id", target.ID)
		return ""
	}
	return pitch.PitchText
}
