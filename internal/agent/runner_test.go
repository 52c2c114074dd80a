package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// Fixed run instant: mid-day UTC so "today" is unambiguous.
var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func testToday() time.Time { return dayOf(testNow) }

// stageGroup wires one watched group with the given messages and a seeded
// watermark, returning its external key.
func (env *testEnv) stageGroup(chatID int64, watermark int64, msgs ...telegram.Message) int64 {
	_, bare := telegram.SplitID(chatID)
	ent := telegram.Entity{Kind: telegram.KindGroup, ID: bare}
	env.chats.chats = append(env.chats.chats, store.TargetChat{ChatID: chatID, Kind: store.ChatKindGroup})
	env.client.entities[chatID] = ent
	env.client.histories[ent.Key()] = msgs
	if watermark > 0 {
		env.state.watermarks[ent.Key()] = watermark
	}
	return ent.Key()
}

func msg(id, senderID int64, text string) telegram.Message {
	return telegram.Message{
		ID:       id,
		SenderID: senderID,
		Sender:   &telegram.Sender{ID: senderID, Username: "user", FirstName: "User"},
		Text:     text,
		Time:     testNow.Add(-time.Hour),
	}
}

func initializedEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.runner.now = func() time.Time { return testNow }
	env.status.lastInit = testToday()
	return env
}

func TestRunInactiveAgentDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.runner.now = func() time.Time { return testNow }
	env.status.active = false
	env.stageGroup(-200, 0, msg(1, 10, "hello"))

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(env.llm.calls) != 0 || len(env.sink.actions) != 0 || env.drainer.drains != 0 {
		t.Fatal("inactive agent must not process anything")
	}
}

func TestRunFirstOfDayOnlyInitializes(t *testing.T) {
	env := newTestEnv(t)
	env.runner.now = func() time.Time { return testNow }
	env.status.lastInit = testToday().AddDate(0, 0, -1)
	key := env.stageGroup(-200, 0, msg(1, 10, "old"), msg(2, 11, "newer"))

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := env.state.watermarks[key]; got != 2 {
		t.Errorf("watermark = %d, want 2 (latest message)", got)
	}
	if !env.status.lastInit.Equal(testToday()) {
		t.Errorf("lastInit = %v, want %v", env.status.lastInit, testToday())
	}
	// Initialization runs never engage or drain.
	if len(env.llm.calls) != 0 {
		t.Errorf("unexpected model calls during initialization: %d", len(env.llm.calls))
	}
	if env.drainer.drains != 0 {
		t.Error("outbox must not drain on an initialization run")
	}
}

func TestRunEngagementRoundTrip(t *testing.T) {
	env := initializedEnv(t)
	key := env.stageGroup(-200, 5,
		msg(6, 10, "кто-нибудь знает, как нанять курьеров быстро?"),
	)
	env.prompts.templates["router_prompt"] = "route these: {messages_for_prompt}"
	env.prompts.templates["recruiter_prompt"] = "reply in style. history: {conversation_history_json} good: {dynamic_examples} bad: {bad_examples}"
	env.llm.responses = []llmResponse{
		{contains: "route these", output: `[{"message_id": 6, "decision": "reply", "persona": "Recruiter"}]`},
		{contains: "reply in style", output: "```json\n[{\"message_text\": \"Могу помочь с наймом.\", \"reply_to_message_id\": 6}]\n```"},
	}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Both pipeline stages plus the lead classifier (whose prompt is
	// missing, so it soft-skips before calling the model).
	if len(env.llm.calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(env.llm.calls))
	}
	if env.llm.calls[0].model != "flash-test" || env.llm.calls[1].model != "pro-test" {
		t.Errorf("stage models = %q, %q", env.llm.calls[0].model, env.llm.calls[1].model)
	}

	if len(env.sink.actions) != 1 {
		t.Fatalf("submitted actions = %d, want 1", len(env.sink.actions))
	}
	act := env.sink.actions[0]
	if act.ActionType != store.ActionReply {
		t.Errorf("action type = %q", act.ActionType)
	}
	if act.TargetChatID != key || act.ReplyToMessageID != 6 || act.TargetUserID != 10 {
		t.Errorf("routing fields = chat %d reply_to %d user %d", act.TargetChatID, act.ReplyToMessageID, act.TargetUserID)
	}
	if act.MessageText != "Могу помочь с наймом." {
		t.Errorf("message text = %q", act.MessageText)
	}
	if act.Persona != "Recruiter" || act.PromptVersion != "recruiter_prompt" || act.ModelVersion != "pro-test" {
		t.Errorf("provenance = %q %q %q", act.Persona, act.PromptVersion, act.ModelVersion)
	}

	if got := env.state.watermarks[key]; got != 6 {
		t.Errorf("watermark = %d, want 6", got)
	}
	if env.drainer.drains != 1 {
		t.Errorf("outbox drains = %d, want 1", env.drainer.drains)
	}
}

func TestRunKeepsOnlyFirstReplyDecision(t *testing.T) {
	env := initializedEnv(t)
	env.stageGroup(-200, 0,
		msg(1, 10, "first"),
		msg(2, 11, "second"),
	)
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.prompts.templates["hr_prompt"] = "generate: {conversation_history_json}"
	env.llm.responses = []llmResponse{
		{contains: "route:", output: `[
			{"message_id": 1, "decision": "reply", "persona": "HR"},
			{"message_id": 2, "decision": "reply", "persona": "HR"}
		]`},
		{contains: "generate:", output: `[{"message_text": "ok", "reply_to_message_id": 1}]`},
	}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.sink.actions) != 1 {
		t.Fatalf("submitted actions = %d, want exactly 1", len(env.sink.actions))
	}
	if env.sink.actions[0].ReplyToMessageID != 1 {
		t.Errorf("reply targets message %d, want the first decision's message 1", env.sink.actions[0].ReplyToMessageID)
	}
}

func TestRunSkipsOwnAndEmptyMessages(t *testing.T) {
	env := initializedEnv(t)
	key := env.stageGroup(-200, 0,
		msg(1, 555, "my own message"), // agent's account id
		msg(2, 10, "   "),
		msg(3, 11, "real question"),
	)
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.llm.responses = []llmResponse{{contains: "route:", output: `[]`}}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.llm.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(env.llm.calls))
	}
	prompt := env.llm.calls[0].prompt
	if !strings.Contains(prompt, "real question") {
		t.Errorf("router prompt missing candidate text: %q", prompt)
	}
	if strings.Contains(prompt, "my own message") {
		t.Error("router prompt includes the agent's own message")
	}
	// The watermark still covers the filtered messages.
	if got := env.state.watermarks[key]; got != 3 {
		t.Errorf("watermark = %d, want 3", got)
	}
}

func TestRunCooldownSkipsConversationEntirely(t *testing.T) {
	env := initializedEnv(t)
	key := env.stageGroup(-200, 0, msg(1, 10, "Нужен массовый подбор на склад"))
	env.state.lastPosts[key] = testNow.Add(-30 * time.Minute)
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.keywords.keywords = []string{"массовый"}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A conversation in cooldown is skipped before fetching: no history
	// call, no model call, no keyword alert, and its messages stay above
	// the watermark for the next run.
	if env.client.historyCalls != 0 {
		t.Errorf("history fetches during cooldown = %d, want 0", env.client.historyCalls)
	}
	if len(env.llm.calls) != 0 {
		t.Errorf("pipeline ran despite cooldown: %d model calls", len(env.llm.calls))
	}
	if len(env.sink.actions) != 0 {
		t.Errorf("submitted actions = %d, want 0", len(env.sink.actions))
	}
	if got := env.state.watermarks[key]; got != 0 {
		t.Errorf("watermark = %d, want unchanged (0) during cooldown", got)
	}
}

func TestRunKeywordAlertAfterCooldownElapsed(t *testing.T) {
	env := initializedEnv(t)
	key := env.stageGroup(-200, 0, msg(1, 10, "Нужен массовый подбор на склад"))
	env.state.lastPosts[key] = testNow.Add(-2 * time.Hour)
	env.keywords.keywords = []string{"массовый"}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.sink.actions) != 1 {
		t.Fatalf("submitted actions = %d, want 1 keyword alert", len(env.sink.actions))
	}
	act := env.sink.actions[0]
	if act.ActionType != store.ActionKeywordAlert {
		t.Errorf("action type = %q", act.ActionType)
	}
	if act.TargetChatID != key || act.ReplyToMessageID != 1 {
		t.Errorf("alert routing = chat %d message %d", act.TargetChatID, act.ReplyToMessageID)
	}
	if act.OriginalMessageText != "Нужен массовый подбор на склад" {
		t.Errorf("alert text = %q", act.OriginalMessageText)
	}
}

func TestRunSuppressesAlreadyContactedUser(t *testing.T) {
	env := initializedEnv(t)
	env.stageGroup(-200, 0, msg(1, 10, "hello"))
	env.contacts.contacts[contactKey(10, testToday())] = true
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.prompts.templates["hr_prompt"] = "generate: {conversation_history_json}"
	env.llm.responses = []llmResponse{
		{contains: "route:", output: `[{"message_id": 1, "decision": "reply", "persona": "HR"}]`},
		{contains: "generate:", output: `[{"message_text": "ok"}]`},
	}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Router runs, but the generator is never reached and nothing is submitted.
	if len(env.llm.calls) != 1 {
		t.Errorf("model calls = %d, want 1 (router only)", len(env.llm.calls))
	}
	if len(env.sink.actions) != 0 {
		t.Errorf("submitted actions = %d, want 0", len(env.sink.actions))
	}
}

func TestRunMalformedRouterOutputIsSoftFailure(t *testing.T) {
	env := initializedEnv(t)
	key := env.stageGroup(-200, 0, msg(1, 10, "hello"))
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.llm.responses = []llmResponse{{contains: "route:", output: "sorry, I cannot help with that"}}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(env.sink.actions) != 0 {
		t.Errorf("submitted actions = %d, want 0", len(env.sink.actions))
	}
	if got := env.state.watermarks[key]; got != 1 {
		t.Errorf("watermark = %d, want 1 (advance despite pipeline failure)", got)
	}
}

func TestRunChannelWithoutDiscussionIsSkipped(t *testing.T) {
	env := initializedEnv(t)
	chatID := telegram.ChannelKey(777)
	env.chats.chats = append(env.chats.chats, store.TargetChat{ChatID: chatID, Kind: store.ChatKindChannel})
	env.client.entities[chatID] = telegram.Entity{Kind: telegram.KindChannel, ID: 777} // no linked chat

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(env.llm.calls) != 0 || len(env.sink.actions) != 0 {
		t.Error("channel without discussion must be skipped entirely")
	}
}

func TestRunChannelResolvesLinkedDiscussion(t *testing.T) {
	env := initializedEnv(t)
	chatID := telegram.ChannelKey(777)
	linkedID := telegram.ChannelKey(888)
	linked := telegram.Entity{Kind: telegram.KindChannel, ID: 888}
	env.chats.chats = append(env.chats.chats, store.TargetChat{ChatID: chatID, Kind: store.ChatKindChannel})
	env.client.entities[chatID] = telegram.Entity{Kind: telegram.KindChannel, ID: 777, LinkedChatID: 888}
	env.client.entities[linkedID] = linked
	env.client.histories[linked.Key()] = []telegram.Message{msg(4, 10, "comment in discussion")}
	env.prompts.templates["router_prompt"] = "route: {messages_for_prompt}"
	env.llm.responses = []llmResponse{{contains: "route:", output: `[]`}}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// State is keyed by the discussion chat, not the configured channel.
	if got := env.state.watermarks[linked.Key()]; got != 4 {
		t.Errorf("discussion watermark = %d, want 4", got)
	}
	if _, ok := env.state.watermarks[chatID]; ok {
		t.Error("watermark stored under the channel id instead of the discussion chat")
	}
}

func TestInitializeDayFallsBackToChannelWithoutDiscussion(t *testing.T) {
	env := newTestEnv(t)
	env.runner.now = func() time.Time { return testNow }
	env.status.lastInit = time.Time{} // never initialized

	chatID := telegram.ChannelKey(777)
	ent := telegram.Entity{Kind: telegram.KindChannel, ID: 777}
	env.chats.chats = append(env.chats.chats, store.TargetChat{ChatID: chatID, Kind: store.ChatKindChannel})
	env.client.entities[chatID] = ent
	env.client.histories[ent.Key()] = []telegram.Message{{ID: 42, Text: "post"}}

	if err := env.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := env.state.watermarks[ent.Key()]; got != 42 {
		t.Errorf("channel watermark = %d, want 42", got)
	}
}

