package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/db/sqlite"
	"github.com/iamwavecut/wafflebot/internal/settings"
)

type meetingStub struct {
	history map[int64]*db.MeetingHistory
}

func (m *meetingStub) GetMeetingHistory(_ context.Context, _, userID int64) (*db.MeetingHistory, error) {
	return m.history[userID], nil
}

func (m *meetingStub) UpsertMeetingHistory(_ context.Context, h *db.MeetingHistory) error {
	c := *h
	m.history[h.UserID] = &c
	return nil
}

func newcomer() *bot.User {
	return &bot.User{ID: memberID, FirstName: "Newbie"}
}

func joinUpdate(users ...bot.User) *bot.Update {
	return &bot.Update{Message: &bot.Message{
		MessageID:      5,
		From:           &users[0],
		Chat:           groupChat(),
		NewChatMembers: users,
	}}
}

func TestJoinWelcomesOnceWithStoredHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	store := settings.NewStore(client, settings.NewMemoryCache(16, time.Minute))

	gateway := &gatewayStub{}
	g := NewGatekeeper(gateway, client, Features{Meeting: store.Meeting, Captcha: store.Captcha})
	chat := groupChat()

	state, err := g.Join(ctx, &chat, newcomer())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if state != JoinStateWelcomeSent {
		t.Fatalf("state = %s", state)
	}
	if len(gateway.sent) != 1 || !strings.Contains(gateway.sent[0].Text, "Приветствуем в нашем чате!") {
		t.Fatalf("unexpected welcome %+v", gateway.sent)
	}

	history, err := client.GetMeetingHistory(ctx, testChatID, memberID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if history == nil || history.MessageID != 1001 {
		t.Fatalf("unexpected history %+v", history)
	}

	state, err = g.Join(ctx, &chat, newcomer())
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if state != JoinStateJoined || len(gateway.sent) != 1 {
		t.Fatalf("rejoin welcomed again: state=%s sent=%d", state, len(gateway.sent))
	}
}

func TestJoinAlwaysSendReplacesPreviousWelcome(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	store := settings.NewStore(client, settings.NewMemoryCache(16, time.Minute))
	if _, err := store.Meeting.Save(ctx, testChatID, db.CategoryNone, func(m *db.Meeting) {
		m.AlwaysSend = true
		m.Text = "Hi %%__mention__%% in %%__chat_title__%%"
	}); err != nil {
		t.Fatalf("save meeting: %v", err)
	}

	gateway := &gatewayStub{}
	g := NewGatekeeper(gateway, client, Features{Meeting: store.Meeting, Captcha: store.Captcha})
	chat := groupChat()

	for i := 0; i < 2; i++ {
		if state, err := g.Join(ctx, &chat, newcomer()); err != nil || state != JoinStateWelcomeSent {
			t.Fatalf("join %d: state=%s err=%v", i, state, err)
		}
	}
	if len(gateway.sent) != 2 {
		t.Fatalf("sent = %d", len(gateway.sent))
	}
	if len(gateway.deleted) != 1 || gateway.deleted[0] != 1001 {
		t.Fatalf("previous welcome not deleted: %v", gateway.deleted)
	}
	if !strings.Contains(gateway.sent[1].Text, "in Waffles") {
		t.Fatalf("template not rendered: %q", gateway.sent[1].Text)
	}
	history, _ := client.GetMeetingHistory(ctx, testChatID, memberID)
	if history == nil || history.MessageID != 1002 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestWelcomeFallsBackWithoutMedia(t *testing.T) {
	t.Parallel()

	meeting := db.DefaultMeeting()
	meeting.MediaLink = "https://example.com/waffle.gif"
	meeting.Buttons = "Rules - example.com/rules"

	gateway := &gatewayStub{sendErr: func(m bot.OutgoingMessage) error {
		if m.PreviewURL != "" {
			return errors.New("bad preview")
		}
		return nil
	}}
	meetings := &meetingStub{history: map[int64]*db.MeetingHistory{}}
	g := NewGatekeeper(gateway, meetings, Features{
		Meeting: settingsStub[db.Meeting]{value: meeting},
		Captcha: settingsStub[db.Captcha]{},
	})
	chat := groupChat()

	state, err := g.Join(context.Background(), &chat, newcomer())
	if err != nil || state != JoinStateWelcomeSent {
		t.Fatalf("state=%s err=%v", state, err)
	}
	if len(gateway.sent) != 1 || gateway.sent[0].PreviewURL != "" || len(gateway.sent[0].Keyboard) != 1 {
		t.Fatalf("unexpected sent %+v", gateway.sent)
	}
	if meetings.history[memberID] == nil {
		t.Fatalf("history not stored")
	}
}

func TestBotsAreNotGreeted(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{}
	g := NewGatekeeper(gateway, &meetingStub{history: map[int64]*db.MeetingHistory{}}, defaultFeatures())
	chat := groupChat()

	state, err := g.Join(context.Background(), &chat, &bot.User{ID: 5, IsBot: true})
	if err != nil || state != JoinStateJoined || len(gateway.sent) != 0 {
		t.Fatalf("bot greeted: state=%s err=%v sent=%d", state, err, len(gateway.sent))
	}
}

func captchaFeatures() Features {
	features := defaultFeatures()
	features.Captcha = settingsStub[db.Captcha]{value: db.Captcha{Enable: true}}
	return features
}

func TestCaptchaFlow(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{}
	meetings := &meetingStub{history: map[int64]*db.MeetingHistory{}}
	g := NewGatekeeper(gateway, meetings, captchaFeatures())

	if proceed := handleUpdate(t, g, joinUpdate(*newcomer())); !proceed {
		t.Fatalf("join message consumed")
	}
	if len(gateway.restricted) != 1 || gateway.restricted[0] != memberID {
		t.Fatalf("restricted = %v", gateway.restricted)
	}
	prompt := gateway.lastSent()
	if len(prompt.Keyboard) != 1 || prompt.Keyboard[0][0].Data != "captcha;7" || prompt.Keyboard[0][0].Text != "Я не робот 🤖" {
		t.Fatalf("unexpected prompt %+v", prompt)
	}

	if proceed := handleUpdate(t, g, callback(99, "captcha;7")); proceed {
		t.Fatalf("captcha callback proceeded")
	}
	if len(gateway.unrestricted) != 0 {
		t.Fatalf("stranger solved the captcha")
	}
	if last := gateway.answers[len(gateway.answers)-1]; !last.alert || last.text != "Это не ваша капча!" {
		t.Fatalf("unexpected answer %+v", last)
	}

	handleUpdate(t, g, callback(memberID, "captcha;7"))
	if len(gateway.unrestricted) != 1 || gateway.unrestricted[0] != memberID {
		t.Fatalf("unrestricted = %v", gateway.unrestricted)
	}
	if len(gateway.deleted) != 1 || gateway.deleted[0] != 77 {
		t.Fatalf("prompt not deleted: %v", gateway.deleted)
	}
	if !strings.Contains(gateway.lastSent().Text, "Приветствуем в нашем чате!") {
		t.Fatalf("no welcome after captcha: %+v", gateway.lastSent())
	}
	if meetings.history[memberID] == nil {
		t.Fatalf("history not stored after captcha")
	}
}

func TestCaptchaSkipsRestrictedAndKnownMembers(t *testing.T) {
	t.Parallel()

	chat := groupChat()

	restricted := &gatewayStub{member: bot.ChatMember{Status: bot.MemberRestricted}}
	g := NewGatekeeper(restricted, &meetingStub{history: map[int64]*db.MeetingHistory{}}, captchaFeatures())
	if state, err := g.Join(context.Background(), &chat, newcomer()); err != nil || state != JoinStateJoined {
		t.Fatalf("restricted member: state=%s err=%v", state, err)
	}
	if len(restricted.restricted) != 0 {
		t.Fatalf("restricted member challenged")
	}

	known := &gatewayStub{}
	meetings := &meetingStub{history: map[int64]*db.MeetingHistory{memberID: {ChatID: testChatID, UserID: memberID}}}
	g = NewGatekeeper(known, meetings, captchaFeatures())
	if state, err := g.Join(context.Background(), &chat, newcomer()); err != nil || state != JoinStateJoined {
		t.Fatalf("known member: state=%s err=%v", state, err)
	}
	if len(known.restricted) != 0 {
		t.Fatalf("known member challenged")
	}
}

func TestCaptchaSendFailureUnrestricts(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{sendErr: func(bot.OutgoingMessage) error { return errors.New("boom") }}
	g := NewGatekeeper(gateway, &meetingStub{history: map[int64]*db.MeetingHistory{}}, captchaFeatures())
	chat := groupChat()

	state, err := g.Join(context.Background(), &chat, newcomer())
	if err == nil || state != JoinStateJoined {
		t.Fatalf("state=%s err=%v", state, err)
	}
	if len(gateway.unrestricted) != 1 {
		t.Fatalf("member left restricted")
	}
}
