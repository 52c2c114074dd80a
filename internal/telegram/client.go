package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
)

const historyPageSize = 100

// Options configures the MTProto client.
type Options struct {
	APIID         int
	APIHash       string
	Session       session.Storage
	DeviceModel   string
	SystemVersion string
	AppVersion    string
}

// MTProto implements Client over gotd. One instance serves one run; the
// access-hash caches are per-instance, so resolution is repeated each run.
type MTProto struct {
	td     *tdclient.Client
	api    *tg.Client
	sender *message.Sender

	channelHashes map[int64]int64
	userHashes    map[int64]int64
}

// NewMTProto builds an MTProto client from options. The connection is not
// established until Run.
func NewMTProto(opts Options) *MTProto {
	td := tdclient.NewClient(opts.APIID, opts.APIHash, tdclient.Options{
		SessionStorage: opts.Session,
		Device: tdclient.DeviceConfig{
			DeviceModel:   opts.DeviceModel,
			SystemVersion: opts.SystemVersion,
			AppVersion:    opts.AppVersion,
		},
	})
	api := td.API()
	return &MTProto{
		td:            td,
		api:           api,
		sender:        message.NewSender(api),
		channelHashes: make(map[int64]int64),
		userHashes:    make(map[int64]int64),
	}
}

// Run connects, verifies the stored session is authorized, and invokes f
// while the connection is alive. An unauthorized session is fatal: creating
// a session is an out-of-band interactive step, not something a scheduled
// run can do.
func (m *MTProto) Run(ctx context.Context, f func(ctx context.Context) error) error {
	return m.td.Run(ctx, func(ctx context.Context) error {
		status, err := m.td.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("check auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}
		return f(ctx)
	})
}

func (m *MTProto) Self(ctx context.Context) (Account, error) {
	me, err := m.td.Self(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("get self: %w", err)
	}
	return Account{ID: me.ID, Username: me.Username, FirstName: me.FirstName}, nil
}

func (m *MTProto) Resolve(ctx context.Context, id int64) (Entity, error) {
	kind, bare := SplitID(id)
	switch kind {
	case KindChannel:
		return m.resolveChannel(ctx, bare)
	case KindGroup:
		return Entity{Kind: KindGroup, ID: bare}, nil
	default:
		hash, err := m.userHash(ctx, bare)
		if err != nil {
			return Entity{}, err
		}
		return Entity{Kind: KindUser, ID: bare, AccessHash: hash}, nil
	}
}

func (m *MTProto) resolveChannel(ctx context.Context, id int64) (Entity, error) {
	hash, err := m.channelHash(ctx, id)
	if err != nil {
		return Entity{}, err
	}
	ent := Entity{Kind: KindChannel, ID: id, AccessHash: hash}

	full, err := m.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  id,
		AccessHash: hash,
	})
	if err != nil {
		return Entity{}, fmt.Errorf("get full channel %d: %w", id, err)
	}
	if fc, ok := full.FullChat.(*tg.ChannelFull); ok {
		if linked, ok := fc.GetLinkedChatID(); ok {
			ent.LinkedChatID = linked
		}
	}
	return ent, nil
}

func (m *MTProto) channelHash(ctx context.Context, id int64) (int64, error) {
	if h, ok := m.channelHashes[id]; ok {
		return h, nil
	}
	res, err := m.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: id},
	})
	if err != nil {
		return 0, fmt.Errorf("get channel %d: %w", id, err)
	}
	for _, c := range res.GetChats() {
		if ch, ok := c.(*tg.Channel); ok && ch.ID == id {
			m.channelHashes[id] = ch.AccessHash
			return ch.AccessHash, nil
		}
	}
	return 0, fmt.Errorf("channel %d not returned by resolution", id)
}

func (m *MTProto) userHash(ctx context.Context, id int64) (int64, error) {
	if h, ok := m.userHashes[id]; ok {
		return h, nil
	}
	res, err := m.api.UsersGetUsers(ctx, []tg.InputUserClass{
		&tg.InputUser{UserID: id},
	})
	if err != nil {
		return 0, fmt.Errorf("get user %d: %w", id, err)
	}
	for _, u := range res {
		if user, ok := u.(*tg.User); ok && user.ID == id {
			m.userHashes[id] = user.AccessHash
			return user.AccessHash, nil
		}
	}
	return 0, fmt.Errorf("user %d not returned by resolution", id)
}

func (m *MTProto) inputPeer(ent Entity) tg.InputPeerClass {
	switch ent.Kind {
	case KindChannel:
		return &tg.InputPeerChannel{ChannelID: ent.ID, AccessHash: ent.AccessHash}
	case KindGroup:
		return &tg.InputPeerChat{ChatID: ent.ID}
	default:
		return &tg.InputPeerUser{UserID: ent.ID, AccessHash: ent.AccessHash}
	}
}

// History pages backwards from the newest message, stopping at the MinID /
// Since boundary, and returns the kept messages oldest-first.
func (m *MTProto) History(ctx context.Context, ent Entity, opts HistoryOptions) ([]Message, error) {
	peer := m.inputPeer(ent)
	chatKey := ent.Key()

	var collected []Message
	offsetID := 0
	for {
		res, err := m.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    historyPageSize,
			MinID:    int(opts.MinID),
		})
		if err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}
		modified, ok := res.AsModified()
		if !ok {
			break
		}
		batch := modified.GetMessages()
		if len(batch) == 0 {
			break
		}

		senders := indexUsers(modified.GetUsers())

		reachedBoundary := false
		for _, mc := range batch { // newest first
			// Every element moves the paging cursor, including service
			// messages, or a page full of them would repeat forever.
			offsetID = mc.GetID()
			msg, ok := mc.(*tg.Message)
			if !ok {
				continue // service messages carry no text
			}
			when := time.Unix(int64(msg.Date), 0).UTC()
			if int64(msg.ID) <= opts.MinID || when.Before(opts.Since) {
				reachedBoundary = true
				break
			}
			collected = append(collected, buildMessage(msg, chatKey, when, senders))
		}
		if reachedBoundary || len(batch) < historyPageSize {
			break
		}
	}

	// Chronological order for the pipeline.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

func (m *MTProto) LatestMessageID(ctx context.Context, ent Entity) (int64, error) {
	res, err := m.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  m.inputPeer(ent),
		Limit: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("get latest message: %w", err)
	}
	modified, ok := res.AsModified()
	if !ok {
		return 0, nil
	}
	for _, mc := range modified.GetMessages() {
		if msg, ok := mc.(*tg.Message); ok {
			return int64(msg.ID), nil
		}
	}
	return 0, nil
}

func (m *MTProto) Send(ctx context.Context, ent Entity, replyTo int64, text string) error {
	builder := m.sender.To(m.inputPeer(ent))
	if replyTo > 0 {
		if _, err := builder.Reply(int(replyTo)).Text(ctx, text); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
		return nil
	}
	if _, err := builder.Text(ctx, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (m *MTProto) SendUser(ctx context.Context, userID int64, text string) error {
	hash, err := m.userHash(ctx, userID)
	if err != nil {
		return err
	}
	peer := &tg.InputPeerUser{UserID: userID, AccessHash: hash}
	if _, err := m.sender.To(peer).Text(ctx, text); err != nil {
		return fmt.Errorf("send direct message: %w", err)
	}
	return nil
}

func indexUsers(users []tg.UserClass) map[int64]*tg.User {
	out := make(map[int64]*tg.User, len(users))
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			out[u.ID] = u
		}
	}
	return out
}

func buildMessage(msg *tg.Message, chatKey int64, when time.Time, senders map[int64]*tg.User) Message {
	out := Message{
		ID:     int64(msg.ID),
		ChatID: chatKey,
		Text:   msg.Message,
		Time:   when,
	}
	if from, ok := msg.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			out.SenderID = pu.UserID
			if u, ok := senders[pu.UserID]; ok {
				out.Sender = &Sender{ID: u.ID, Username: u.Username, FirstName: u.FirstName}
			}
		}
	}
	if out.SenderID == 0 {
		slog.Debug("message without user sender", "chat", chatKey, "message_id", msg.ID)
	}
	return out
}
