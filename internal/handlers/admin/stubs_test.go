package handlers

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

type answer struct {
	text  string
	alert bool
}

type edit struct {
	chatID    int64
	messageID int
	text      string
	keyboard  bot.Keyboard
}

type gatewayStub struct {
	mu      sync.Mutex
	nextID  int
	sent    []bot.OutgoingMessage
	edits   []edit
	screens []edit
	deleted []int
	answers []answer
	editErr error
}

var _ bot.Gateway = (*gatewayStub)(nil)

func (g *gatewayStub) Restrict(context.Context, int64, int64, int64) error { return nil }
func (g *gatewayStub) Unrestrict(context.Context, int64, int64) error      { return nil }
func (g *gatewayStub) Ban(context.Context, int64, int64, int64) error      { return nil }
func (g *gatewayStub) Unban(context.Context, int64, int64) error           { return nil }
func (g *gatewayStub) BanSenderChat(context.Context, int64, int64) error   { return nil }

func (g *gatewayStub) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *gatewayStub) SendMessage(_ context.Context, msg bot.OutgoingMessage) (*bot.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.sent = append(g.sent, msg)
	g.screens = append(g.screens, edit{chatID: msg.ChatID, messageID: 500 + g.nextID, text: msg.Text, keyboard: msg.Keyboard})
	return &bot.Message{MessageID: 500 + g.nextID, Chat: bot.Chat{ID: msg.ChatID}, Text: msg.Text}, nil
}

func (g *gatewayStub) EditMessageText(_ context.Context, chatID int64, messageID int, text string, keyboard bot.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editErr != nil {
		return g.editErr
	}
	e := edit{chatID: chatID, messageID: messageID, text: text, keyboard: keyboard}
	g.edits = append(g.edits, e)
	g.screens = append(g.screens, e)
	return nil
}

func (g *gatewayStub) AnswerCallback(_ context.Context, _, text string, alert bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer{text: text, alert: alert})
	return nil
}

func (g *gatewayStub) GetChatMember(context.Context, int64, int64) (bot.ChatMember, error) {
	return bot.ChatMember{}, errors.New("not used")
}

func (g *gatewayStub) GetChatAdministrators(context.Context, int64) ([]bot.ChatMember, error) {
	return nil, errors.New("not used")
}

func (g *gatewayStub) GetChatMemberCount(context.Context, int64) (int, error) { return 0, nil }

func (g *gatewayStub) DownloadFile(context.Context, string, io.Writer) error {
	return errors.New("not used")
}

func (g *gatewayStub) Self() bot.User {
	return bot.User{ID: 42, IsBot: true, FirstName: "Waffle", UserName: "waffle_bot"}
}

func (g *gatewayStub) lastAnswer() answer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.answers) == 0 {
		return answer{}
	}
	return g.answers[len(g.answers)-1]
}

// screen is the most recent message shown to the user, edited or sent.
func (g *gatewayStub) screen() edit {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.screens) == 0 {
		return edit{}
	}
	return g.screens[len(g.screens)-1]
}

type adminsStub struct {
	members map[int64]bot.ChatMember
}

func (a *adminsStub) Member(_ context.Context, _, userID int64) (*bot.ChatMember, error) {
	m, ok := a.members[userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}
