package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/db/sqlite"
	"github.com/iamwavecut/wafflebot/internal/settings"
)

const (
	groupID    = int64(-100777)
	ownerID    = int64(1)
	strangerID = int64(9)
)

type editorFixture struct {
	editor  *Editor
	gateway *gatewayStub
	admins  *adminsStub
	client  db.Client
	store   *settings.Store
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()

	ctx := context.Background()
	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.UpsertChat(ctx, &db.Chat{ID: groupID, Title: "Waffles", Work: true, Admins: db.IDList{ownerID}, AllAdmins: db.IDList{ownerID}}); err != nil {
		t.Fatalf("upsert chat: %v", err)
	}

	f := &editorFixture{
		gateway: &gatewayStub{},
		admins: &adminsStub{members: map[int64]bot.ChatMember{
			ownerID: {User: &bot.User{ID: ownerID}, Status: bot.MemberCreator},
		}},
		client: client,
		store:  settings.NewStore(client, settings.NewMemoryCache(64, time.Minute)),
	}
	f.editor = NewEditor(f.gateway, client, f.admins, f.store)
	return f
}

func (f *editorFixture) handle(t *testing.T, u *bot.Update) bool {
	t.Helper()
	proceed, err := f.editor.Handle(context.Background(), u, u.Chat(), u.Sender())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return proceed
}

func (f *editorFixture) private(t *testing.T, userID int64, text string) bool {
	t.Helper()
	return f.handle(t, &bot.Update{Message: &bot.Message{
		MessageID: 10,
		From:      &bot.User{ID: userID, FirstName: "Admin"},
		Chat:      bot.Chat{ID: userID, Type: bot.ChatTypePrivate},
		Text:      text,
	}})
}

func (f *editorFixture) click(t *testing.T, userID int64, data string) bool {
	t.Helper()
	return f.handle(t, &bot.Update{CallbackQuery: &bot.CallbackQuery{
		ID:      "cb",
		From:    &bot.User{ID: userID},
		Message: &bot.Message{MessageID: f.gateway.screen().messageID, Chat: bot.Chat{ID: userID, Type: bot.ChatTypePrivate}},
		Data:    data,
	}})
}

func button(t *testing.T, keyboard bot.Keyboard, label string) bot.Button {
	t.Helper()
	for _, row := range keyboard {
		for _, b := range row {
			if strings.Contains(b.Text, label) {
				return b
			}
		}
	}
	t.Fatalf("no button %q in %+v", label, keyboard)
	return bot.Button{}
}

func (f *editorFixture) press(t *testing.T, label string) {
	t.Helper()
	f.click(t, ownerID, button(t, f.gateway.screen().keyboard, label).Data)
}

func (f *editorFixture) openPanel(t *testing.T) {
	t.Helper()
	if proceed := f.private(t, ownerID, "/start"); proceed {
		t.Fatalf("/start proceeded")
	}
	list := f.gateway.screen()
	if !strings.Contains(list.text, "Waffle") {
		t.Fatalf("unexpected greeting %q", list.text)
	}
	if proceed := f.click(t, ownerID, button(t, list.keyboard, "Waffles").Data); proceed {
		t.Fatalf("chat selection proceeded")
	}
}

func TestEditorFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)
	f.openPanel(t)

	home := f.gateway.screen()
	if !strings.Contains(home.text, "Настройки чата Waffles") || home.messageID != 501 {
		t.Fatalf("unexpected home %+v", home)
	}
	session, err := f.client.GetEditorSession(ctx, ownerID, groupID)
	if err != nil || session == nil || session.Page != "home" || session.MessageID != 501 {
		t.Fatalf("session = %+v err=%v", session, err)
	}

	f.press(t, "Антифлуд")
	if text := f.gateway.screen().text; !strings.Contains(text, "Сообщения: 5") {
		t.Fatalf("antiflood page missing values: %q", text)
	}

	f.press(t, "Включено")
	if f.store.Antiflood.Get(ctx, groupID, db.CategoryNone).Enable {
		t.Fatalf("antiflood still enabled")
	}
	button(t, f.gateway.screen().keyboard, "❌ Включено")

	f.press(t, "Действие")
	if got := f.store.Antiflood.Get(ctx, groupID, db.CategoryNone).Action; got != db.ActionKick {
		t.Fatalf("action = %s", got)
	}

	f.press(t, "Срок")
	if text := f.gateway.screen().text; !strings.Contains(text, "Отправьте новое значение") {
		t.Fatalf("prompt not shown: %q", text)
	}

	if proceed := f.private(t, ownerID, "abc"); proceed {
		t.Fatalf("prompt input proceeded")
	}
	if text := f.gateway.screen().text; !strings.Contains(text, "Некорректное значение") {
		t.Fatalf("invalid input not reported: %q", text)
	}
	if got := f.store.Antiflood.Get(ctx, groupID, db.CategoryNone).Duration; got != "60s" {
		t.Fatalf("duration changed to %q", got)
	}

	f.private(t, ownerID, "10 m")
	if got := f.store.Antiflood.Get(ctx, groupID, db.CategoryNone).Duration; got != "10m" {
		t.Fatalf("duration = %q", got)
	}
	saved := f.gateway.screen()
	if !strings.Contains(saved.text, "Сохранено.") || !strings.Contains(saved.text, "Срок: 10 минут") {
		t.Fatalf("unexpected page after save: %q", saved.text)
	}
	if len(f.gateway.deleted) == 0 {
		t.Fatalf("stale panel not deleted")
	}

	f.press(t, "Назад")
	if text := f.gateway.screen().text; !strings.Contains(text, "Выберите один из параметров") {
		t.Fatalf("back did not return home: %q", text)
	}

	closeData := button(t, f.gateway.screen().keyboard, "Закрыть").Data
	f.click(t, ownerID, closeData)
	if got, _ := f.client.GetEditorSessionByID(ctx, session.ID); got != nil {
		t.Fatalf("session not closed: %+v", got)
	}
	f.click(t, ownerID, closeData)
	if last := f.gateway.lastAnswer(); !last.alert || !strings.Contains(last.text, "Сессия устарела") {
		t.Fatalf("unexpected answer %+v", last)
	}
}

func TestEditorCategoryPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)
	f.openPanel(t)

	f.press(t, "Пересылка")
	if text := f.gateway.screen().text; !strings.Contains(text, "Выберите категорию") {
		t.Fatalf("category picker not shown: %q", text)
	}
	f.press(t, "каналы")
	f.press(t, "Включено")
	if !f.store.Forward.Get(ctx, groupID, db.CategoryChannels).Enable {
		t.Fatalf("channel forwards not enabled")
	}
	if f.store.Forward.Get(ctx, groupID, db.CategoryUsers).Enable {
		t.Fatalf("other category changed")
	}

	f.press(t, "Исключения")
	f.private(t, ownerID, "@News, t.me/Digest")
	if got := f.store.Forward.Get(ctx, groupID, db.CategoryChannels).Exceptions; len(got) != 2 || got[0] != "news" || got[1] != "digest" {
		t.Fatalf("exceptions = %v", got)
	}

	f.press(t, "Назад")
	if text := f.gateway.screen().text; !strings.Contains(text, "Выберите категорию") {
		t.Fatalf("back did not return to categories: %q", text)
	}

	f.press(t, "Назад")
	f.press(t, "Модерация")
	f.press(t, "/mute")
	f.press(t, "Удалять сообщение")
	if !f.store.Moderation.Get(ctx, groupID, db.CategoryMute).DeleteMessage {
		t.Fatalf("mute delete flag not set")
	}
}

func TestEditorDeniesStrangers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)

	f.private(t, strangerID, "/start")
	if text := f.gateway.screen().text; !strings.Contains(text, "Пока нет чатов") {
		t.Fatalf("stranger got %q", text)
	}
	f.click(t, strangerID, selectData(groupID))
	if last := f.gateway.lastAnswer(); !last.alert || last.text != "Нет доступа" {
		t.Fatalf("stranger selected chat: %+v", last)
	}

	f.openPanel(t)
	f.click(t, strangerID, button(t, f.gateway.screen().keyboard, "Антифлуд").Data)
	if last := f.gateway.lastAnswer(); !last.alert || last.text != "Нет доступа" {
		t.Fatalf("stranger used owner's panel: %+v", last)
	}

	delete(f.admins.members, ownerID)
	f.press(t, "Антифлуд")
	if last := f.gateway.lastAnswer(); !last.alert || last.text != "Нет доступа" {
		t.Fatalf("demoted owner kept access: %+v", last)
	}
	if session, _ := f.client.GetEditorSession(ctx, ownerID, groupID); session != nil {
		t.Fatalf("session of demoted owner kept: %+v", session)
	}
}

func TestGroupSettingsDeepLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)
	group := func(userID int64) *bot.Update {
		return &bot.Update{Message: &bot.Message{
			MessageID: 3,
			From:      &bot.User{ID: userID},
			Chat:      bot.Chat{ID: groupID, Type: bot.ChatTypeSupergroup, Title: "Waffles"},
			Text:      "/settings@waffle_bot",
		}}
	}

	if proceed := f.handle(t, group(strangerID)); !proceed || len(f.gateway.sent) != 0 {
		t.Fatalf("stranger got a settings link")
	}
	if proceed := f.handle(t, group(ownerID)); proceed {
		t.Fatalf("settings command proceeded")
	}
	link := button(t, f.gateway.screen().keyboard, "Настройки").URL
	want := "https://t.me/waffle_bot?start=settings_" + encodeChatID(groupID)
	if link != want {
		t.Fatalf("link = %q, want %q", link, want)
	}

	f.private(t, ownerID, "/start settings_"+encodeChatID(groupID))
	if text := f.gateway.screen().text; !strings.Contains(text, "Настройки чата Waffles") {
		t.Fatalf("deep link did not open the panel: %q", text)
	}
	if session, _ := f.client.GetEditorSession(ctx, ownerID, groupID); session == nil {
		t.Fatalf("deep link did not create a session")
	}

	f.private(t, strangerID, "/start settings_"+encodeChatID(groupID))
	if text := f.gateway.screen().text; text != "Нет доступа" {
		t.Fatalf("stranger opened settings: %q", text)
	}
}

func TestPrivateTextWithoutPromptProceeds(t *testing.T) {
	t.Parallel()

	f := newEditorFixture(t)
	if proceed := f.private(t, ownerID, "hello"); !proceed {
		t.Fatalf("plain text consumed without a session")
	}
	f.openPanel(t)
	if proceed := f.private(t, ownerID, "hello"); !proceed {
		t.Fatalf("plain text consumed without a prompt")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)
	f.openPanel(t)

	f.editor.cleanupExpired(ctx)
	if session, _ := f.client.GetEditorSession(ctx, ownerID, groupID); session == nil {
		t.Fatalf("fresh session removed")
	}

	f.editor.now = func() time.Time { return time.Now().Add(2 * sessionTTL) }
	f.editor.cleanupExpired(ctx)
	if session, _ := f.client.GetEditorSession(ctx, ownerID, groupID); session != nil {
		t.Fatalf("expired session kept: %+v", session)
	}
}

func TestEditorLifecycle(t *testing.T) {
	t.Parallel()

	f := newEditorFixture(t)
	ctx := context.Background()
	if err := f.editor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.editor.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := f.editor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

type failingSettings struct {
	settings.Storage
}

func (failingSettings) UpdateFeatureSettings(context.Context, int64, db.Feature, db.Category, func(string) (string, error)) (string, error) {
	return "", errors.Wrap(db.ErrStore, "disk is full")
}

func TestInputSaveFailureIsReported(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newEditorFixture(t)
	f.store = settings.NewStore(failingSettings{Storage: f.client}, settings.NewMemoryCache(64, time.Minute))
	f.editor = NewEditor(f.gateway, f.client, f.admins, f.store)
	f.openPanel(t)
	f.press(t, "Антифлуд")
	f.press(t, "Срок")

	sent := len(f.gateway.sent)
	if proceed := f.private(t, ownerID, "10m"); proceed {
		t.Fatalf("prompt input proceeded")
	}
	if len(f.gateway.sent) != sent+1 {
		t.Fatalf("panel was not re-sent after failed save")
	}
	text := f.gateway.screen().text
	if !strings.Contains(text, "Произошла ошибка. Попробуйте позже.") || !strings.Contains(text, "Отправьте новое значение") {
		t.Fatalf("failure not reported: %q", text)
	}
	if got := f.store.Antiflood.Get(ctx, groupID, db.CategoryNone).Duration; got != "60s" {
		t.Fatalf("duration = %q", got)
	}
}
