package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hrvisionhq/visionagent/internal/approval"
	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// In-memory fakes for every dependency the runner touches. Tests mutate the
// fields directly to stage a scenario.

type fakeStatusStore struct {
	active   bool
	lastInit time.Time
}

func (s *fakeStatusStore) Active(context.Context) (bool, error)           { return s.active, nil }
func (s *fakeStatusStore) LastInitDate(context.Context) (time.Time, error) { return s.lastInit, nil }
func (s *fakeStatusStore) SetLastInitDate(_ context.Context, day time.Time) error {
	s.lastInit = day
	return nil
}

type fakeChatStore struct {
	chats []store.TargetChat
}

func (s *fakeChatStore) List(context.Context) ([]store.TargetChat, error) { return s.chats, nil }
func (s *fakeChatStore) Add(_ context.Context, chat store.TargetChat) error {
	s.chats = append(s.chats, chat)
	return nil
}

type fakeStateStore struct {
	watermarks map[int64]int64
	lastPosts  map[int64]time.Time
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{
		watermarks: make(map[int64]int64),
		lastPosts:  make(map[int64]time.Time),
	}
}

func (s *fakeStateStore) LastMessageID(_ context.Context, chatID int64) (int64, error) {
	return s.watermarks[chatID], nil
}

func (s *fakeStateStore) SetLastMessageID(_ context.Context, chatID, messageID int64) error {
	s.watermarks[chatID] = messageID
	return nil
}

func (s *fakeStateStore) LastPostTime(_ context.Context, chatID int64) (time.Time, error) {
	return s.lastPosts[chatID], nil
}

func (s *fakeStateStore) SetLastPostTime(_ context.Context, chatID int64, t time.Time) error {
	s.lastPosts[chatID] = t
	return nil
}

func (s *fakeStateStore) Watermarks(context.Context) (map[int64]int64, error) {
	return s.watermarks, nil
}

type fakePromptStore struct {
	templates map[string]string
	examples  map[string][]store.Example // keyed promptName + "/" + status
}

func (s *fakePromptStore) Template(_ context.Context, name string) (string, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return "", store.ErrNotFound
	}
	return tpl, nil
}

func (s *fakePromptStore) Examples(_ context.Context, promptName, status string, limit int) ([]store.Example, error) {
	exs := s.examples[promptName+"/"+status]
	if len(exs) > limit {
		exs = exs[:limit]
	}
	return exs, nil
}

type fakeActionStore struct {
	pending   []store.PendingAction
	completed []int64
}

func (s *fakeActionStore) Pending(context.Context) ([]store.PendingAction, error) {
	var out []store.PendingAction
	for _, a := range s.pending {
		if !a.IsCompleted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeActionStore) MarkCompleted(_ context.Context, id int64) error {
	for i := range s.pending {
		if s.pending[i].ID == id {
			s.pending[i].IsCompleted = true
		}
	}
	s.completed = append(s.completed, id)
	return nil
}

type fakeKeywordStore struct {
	keywords []string
}

func (s *fakeKeywordStore) Keywords(context.Context) ([]string, error) { return s.keywords, nil }

type fakeContactStore struct {
	contacts map[string]bool // userID/day
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[string]bool)}
}

func contactKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", userID, day.Format("2006-01-02"))
}

func (s *fakeContactStore) ContactedToday(_ context.Context, userID int64, day time.Time) (bool, error) {
	return s.contacts[contactKey(userID, day)], nil
}

func (s *fakeContactStore) RecordContact(_ context.Context, userID int64, day time.Time) error {
	s.contacts[contactKey(userID, day)] = true
	return nil
}

type fakeSessionStore struct {
	data []byte
}

func (s *fakeSessionStore) Session(_ context.Context, _ string) ([]byte, error) {
	if s.data == nil {
		return nil, store.ErrNotFound
	}
	return s.data, nil
}

func (s *fakeSessionStore) SaveSession(_ context.Context, _ string, data []byte) error {
	s.data = data
	return nil
}

// fakeClient serves scripted entities and histories keyed by external id.
type fakeClient struct {
	self         telegram.Account
	entities     map[int64]telegram.Entity
	histories    map[int64][]telegram.Message // keyed by entity external key
	historyCalls int
	sends        []sendCall
	dmSends      []dmCall
}

type sendCall struct {
	chatID  int64
	replyTo int64
	text    string
}

type dmCall struct {
	userID int64
	text   string
}

func (c *fakeClient) Self(context.Context) (telegram.Account, error) { return c.self, nil }

func (c *fakeClient) Resolve(_ context.Context, id int64) (telegram.Entity, error) {
	ent, ok := c.entities[id]
	if !ok {
		return telegram.Entity{}, fmt.Errorf("unknown entity %d", id)
	}
	return ent, nil
}

func (c *fakeClient) History(_ context.Context, ent telegram.Entity, opts telegram.HistoryOptions) ([]telegram.Message, error) {
	c.historyCalls++
	var out []telegram.Message
	for _, m := range c.histories[ent.Key()] {
		if m.ID <= opts.MinID {
			continue
		}
		if !opts.Since.IsZero() && m.Time.Before(opts.Since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *fakeClient) LatestMessageID(_ context.Context, ent telegram.Entity) (int64, error) {
	msgs := c.histories[ent.Key()]
	if len(msgs) == 0 {
		return 0, nil
	}
	return msgs[len(msgs)-1].ID, nil
}

func (c *fakeClient) Send(_ context.Context, ent telegram.Entity, replyTo int64, text string) error {
	c.sends = append(c.sends, sendCall{chatID: ent.Key(), replyTo: replyTo, text: text})
	return nil
}

func (c *fakeClient) SendUser(_ context.Context, userID int64, text string) error {
	c.dmSends = append(c.dmSends, dmCall{userID: userID, text: text})
	return nil
}

// fakeLLM returns canned output for prompts containing a marker substring,
// in registration order.
type fakeLLM struct {
	responses []llmResponse
	calls     []llmCall
}

type llmResponse struct {
	contains string
	output   string
}

type llmCall struct {
	model  string
	prompt string
}

func (l *fakeLLM) Generate(_ context.Context, model, prompt string) (string, error) {
	l.calls = append(l.calls, llmCall{model: model, prompt: prompt})
	for _, r := range l.responses {
		if strings.Contains(prompt, r.contains) {
			return r.output, nil
		}
	}
	return "[]", nil
}

type fakeSink struct {
	actions []approval.Action
}

func (s *fakeSink) Submit(_ context.Context, action approval.Action) error {
	s.actions = append(s.actions, action)
	return nil
}

type fakeDrainer struct {
	drains int
}

func (d *fakeDrainer) Drain(context.Context) (int, int) {
	d.drains++
	return 0, 0
}

// testEnv bundles a fully wired runner over fakes.
type testEnv struct {
	status   *fakeStatusStore
	chats    *fakeChatStore
	state    *fakeStateStore
	prompts  *fakePromptStore
	actions  *fakeActionStore
	keywords *fakeKeywordStore
	contacts *fakeContactStore
	client   *fakeClient
	llm      *fakeLLM
	sink     *fakeSink
	drainer  *fakeDrainer
	runner   *Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		status:   &fakeStatusStore{active: true},
		chats:    &fakeChatStore{},
		state:    newFakeStateStore(),
		prompts:  &fakePromptStore{templates: map[string]string{}, examples: map[string][]store.Example{}},
		actions:  &fakeActionStore{},
		keywords: &fakeKeywordStore{},
		contacts: newFakeContactStore(),
		client:   &fakeClient{self: telegram.Account{ID: 555, FirstName: "Agent"}, entities: map[int64]telegram.Entity{}, histories: map[int64][]telegram.Message{}},
		llm:      &fakeLLM{},
		sink:     &fakeSink{},
		drainer:  &fakeDrainer{},
	}
	stores := store.Stores{
		Sessions: &fakeSessionStore{},
		Chats:    env.chats,
		State:    env.state,
		Prompts:  env.prompts,
		Actions:  env.actions,
		Status:   env.status,
		Keywords: env.keywords,
		Contacts: env.contacts,
	}
	env.runner = NewRunner(stores, env.client, env.llm, env.sink, env.drainer, Config{
		RouterModel:    "flash-test",
		GeneratorModel: "pro-test",
		ContextWindow:  7,
		ExampleLimit:   10,
		ReplyCooldown:  time.Hour,
	}, slog.New(slog.DiscardHandler))
	return env
}
