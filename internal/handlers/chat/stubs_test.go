package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

const (
	testChatID = int64(-100123)
	adminID    = int64(1)
	memberID   = int64(7)
)

type answer struct {
	text  string
	alert bool
}

type gatewayStub struct {
	mu           sync.Mutex
	nextID       int
	sent         []bot.OutgoingMessage
	edited       []string
	deleted      []int
	restricted   []int64
	unrestricted []int64
	banned       []int64
	unbanned     []int64
	senderBans   []int64
	answers      []answer
	member       bot.ChatMember
	memberCount  int
	sendErr      func(bot.OutgoingMessage) error
}

var _ bot.Gateway = (*gatewayStub)(nil)

func (g *gatewayStub) Restrict(_ context.Context, _, userID int64, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restricted = append(g.restricted, userID)
	return nil
}

func (g *gatewayStub) Unrestrict(_ context.Context, _, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unrestricted = append(g.unrestricted, userID)
	return nil
}

func (g *gatewayStub) Ban(_ context.Context, _, userID int64, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.banned = append(g.banned, userID)
	return nil
}

func (g *gatewayStub) Unban(_ context.Context, _, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unbanned = append(g.unbanned, userID)
	return nil
}

func (g *gatewayStub) BanSenderChat(_ context.Context, _, senderChatID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.senderBans = append(g.senderBans, senderChatID)
	return nil
}

func (g *gatewayStub) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *gatewayStub) SendMessage(_ context.Context, msg bot.OutgoingMessage) (*bot.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		if err := g.sendErr(msg); err != nil {
			return nil, err
		}
	}
	g.nextID++
	g.sent = append(g.sent, msg)
	return &bot.Message{MessageID: 1000 + g.nextID, Chat: bot.Chat{ID: msg.ChatID}, Text: msg.Text}, nil
}

func (g *gatewayStub) EditMessageText(_ context.Context, _ int64, _ int, text string, _ bot.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edited = append(g.edited, text)
	return nil
}

func (g *gatewayStub) AnswerCallback(_ context.Context, _, text string, alert bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer{text: text, alert: alert})
	return nil
}

func (g *gatewayStub) GetChatMember(_ context.Context, _, userID int64) (bot.ChatMember, error) {
	m := g.member
	if m.User == nil {
		m.User = &bot.User{ID: userID}
	}
	if m.Status == "" {
		m.Status = bot.MemberMember
	}
	return m, nil
}

func (g *gatewayStub) GetChatAdministrators(context.Context, int64) ([]bot.ChatMember, error) {
	return nil, errors.New("not used")
}

func (g *gatewayStub) GetChatMemberCount(context.Context, int64) (int, error) {
	return g.memberCount, nil
}

func (g *gatewayStub) DownloadFile(context.Context, string, io.Writer) error {
	return errors.New("not used")
}

func (g *gatewayStub) Self() bot.User {
	return bot.User{ID: 42, IsBot: true, FirstName: "Waffle", UserName: "waffle_bot"}
}

func (g *gatewayStub) lastSent() bot.OutgoingMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return bot.OutgoingMessage{}
	}
	return g.sent[len(g.sent)-1]
}

type settingsStub[T any] struct {
	value      T
	byCategory map[db.Category]T
}

func (s settingsStub[T]) Get(_ context.Context, _ int64, category db.Category) T {
	if v, ok := s.byCategory[category]; ok {
		return v
	}
	return s.value
}

func defaultFeatures() Features {
	moderation := map[db.Category]db.Moderation{}
	for _, c := range []db.Category{db.CategoryWarn, db.CategoryMute, db.CategoryBan, db.CategoryKick} {
		m := db.DefaultModeration(c)
		m.DeleteMessage = true
		moderation[c] = m
	}
	return Features{
		Warns:         settingsStub[db.Warns]{value: db.DefaultWarns()},
		Meeting:       settingsStub[db.Meeting]{value: db.DefaultMeeting()},
		Captcha:       settingsStub[db.Captcha]{value: db.DefaultCaptcha()},
		Moderation:    settingsStub[db.Moderation]{byCategory: moderation},
		Reports:       settingsStub[db.Reports]{value: db.DefaultReports()},
		Rules:         settingsStub[db.Rules]{value: db.DefaultRules()},
		BlockChannels: settingsStub[db.BlockChannels]{value: db.DefaultBlockChannels()},
	}
}

type registryStub struct {
	mu     sync.Mutex
	users  map[int64]*db.User
	chats  map[int64]*db.Chat
	titles map[int64]string
	idle   []int64
}

func newRegistryStub() *registryStub {
	return &registryStub{
		users:  map[int64]*db.User{},
		chats:  map[int64]*db.Chat{},
		titles: map[int64]string{},
	}
}

func (r *registryStub) UpsertUser(_ context.Context, user *db.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *registryStub) GetUser(_ context.Context, userID int64) (*db.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID], nil
}

func (r *registryStub) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if "@"+u.UserName == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *registryStub) UpsertChat(_ context.Context, chat *db.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *chat
	r.chats[chat.ID] = &c
	return nil
}

func (r *registryStub) GetChat(_ context.Context, chatID int64) (*db.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats[chatID], nil
}

func (r *registryStub) UpdateChatTitle(_ context.Context, chatID int64, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.titles[chatID] != title
	r.titles[chatID] = title
	return changed, nil
}

func (r *registryStub) SetChatWork(_ context.Context, chatID int64, work bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !work {
		r.idle = append(r.idle, chatID)
	}
	return nil
}

type adminsStub struct {
	members     []bot.ChatMember
	invalidated int
	listed      int
}

func (a *adminsStub) List(context.Context, int64) ([]bot.ChatMember, error) {
	a.listed++
	return a.members, nil
}

func (a *adminsStub) Member(_ context.Context, _, userID int64) (*bot.ChatMember, error) {
	for i := range a.members {
		if a.members[i].User != nil && a.members[i].User.ID == userID {
			return &a.members[i], nil
		}
	}
	return nil, nil
}

func (a *adminsStub) Invalidate(int64) { a.invalidated++ }

func moderators() *adminsStub {
	return &adminsStub{members: []bot.ChatMember{
		{User: &bot.User{ID: adminID, FirstName: "Owner"}, Status: bot.MemberCreator},
		{User: &bot.User{ID: 2, FirstName: "Helper"}, Status: bot.MemberAdministrator},
	}}
}

type chainStub struct {
	runs int
}

func (c *chainStub) Run(context.Context, *bot.Message) string {
	c.runs++
	return ""
}

type applyCall struct {
	target punish.Target
	action db.Action
	dur    string
}

type enforcerStub struct {
	calls   []applyCall
	outcome punish.Outcome
}

func (e *enforcerStub) Apply(_ context.Context, t punish.Target, action db.Action, dur string) punish.Outcome {
	e.calls = append(e.calls, applyCall{target: t, action: action, dur: dur})
	out := e.outcome
	out.Action = action
	return out
}

type ledgerStub struct {
	counts  map[int64]int
	removed int
	reset   int
}

func (l *ledgerStub) Remove(_ context.Context, _, userID int64) (int, error) {
	l.removed++
	if l.counts[userID] > 0 {
		l.counts[userID]--
	}
	return l.counts[userID], nil
}

func (l *ledgerStub) Reset(_ context.Context, _, userID int64) (bool, error) {
	l.reset++
	existed := l.counts[userID] > 0
	delete(l.counts, userID)
	return existed, nil
}

func (l *ledgerStub) Count(_ context.Context, _, userID int64) (int, error) {
	return l.counts[userID], nil
}

type journalStub struct {
	events []event.Queueable
}

func (j *journalStub) Enqueue(e event.Queueable) bool {
	j.events = append(j.events, e)
	return true
}

type reactorFixture struct {
	reactor  *Reactor
	gateway  *gatewayStub
	registry *registryStub
	admins   *adminsStub
	chain    *chainStub
	enforcer *enforcerStub
	ledger   *ledgerStub
	journal  *journalStub
}

func newReactorFixture(features Features) *reactorFixture {
	f := &reactorFixture{
		gateway:  &gatewayStub{},
		registry: newRegistryStub(),
		admins:   moderators(),
		chain:    &chainStub{},
		enforcer: &enforcerStub{},
		ledger:   &ledgerStub{counts: map[int64]int{}},
		journal:  &journalStub{},
	}
	f.reactor = NewReactor(f.gateway, f.registry, f.admins, f.chain, f.enforcer, f.ledger, features, f.journal)
	return f
}

func groupChat() bot.Chat {
	return bot.Chat{ID: testChatID, Type: bot.ChatTypeSupergroup, Title: "Waffles"}
}

func messageFrom(userID int64, id int, text string) *bot.Message {
	return &bot.Message{
		MessageID: id,
		From:      &bot.User{ID: userID, FirstName: "User", UserName: "user"},
		Chat:      groupChat(),
		Text:      text,
	}
}

func replyTo(msg *bot.Message, target *bot.Message) *bot.Message {
	msg.ReplyToMessage = target
	return msg
}

func (f *reactorFixture) handle(t testing.TB, msg *bot.Message) {
	t.Helper()
	u := &bot.Update{Message: msg}
	if _, err := f.reactor.Handle(context.Background(), u, u.Chat(), u.Sender()); err != nil {
		t.Fatalf("handle: %v", err)
	}
}
