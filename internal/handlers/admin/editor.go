package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/settings"
)

// EditorStore persists editor sessions and knows which chats a user manages.
type EditorStore interface {
	ListChatsByAdmin(ctx context.Context, userID int64) ([]*db.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*db.Chat, error)
	GetEditorSession(ctx context.Context, userID, chatID int64) (*db.EditorSession, error)
	GetEditorSessionByID(ctx context.Context, id int64) (*db.EditorSession, error)
	GetLatestEditorSession(ctx context.Context, userID int64) (*db.EditorSession, error)
	SaveEditorSession(ctx context.Context, session *db.EditorSession) (*db.EditorSession, error)
	DeleteEditorSession(ctx context.Context, id int64) error
	ListExpiredEditorSessions(ctx context.Context, before time.Time) ([]*db.EditorSession, error)
}

type AdminCache interface {
	Member(ctx context.Context, chatID, userID int64) (*bot.ChatMember, error)
}

// Editor is the private chat settings panel of chat managers.
type Editor struct {
	gateway bot.Gateway
	store   EditorStore
	admins  AdminCache
	catalog *catalog
	now     func() time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

func NewEditor(gateway bot.Gateway, store EditorStore, admins AdminCache, features *settings.Store) *Editor {
	e := &Editor{
		gateway: gateway,
		store:   store,
		admins:  admins,
		catalog: newCatalog(features),
		now:     time.Now,
	}
	e.getLogEntry().Debug("created new settings editor")
	return e
}

func (e *Editor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.startCleanup(runCtx)
	e.started = true
	return nil
}

func (e *Editor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (e *Editor) Handle(ctx context.Context, u *bot.Update, chat *bot.Chat, user *bot.User) (proceed bool, err error) {
	if u == nil || user == nil {
		return true, nil
	}

	if cq := u.CallbackQuery; cq != nil {
		if chatID, ok := parseSelectData(cq.Data); ok {
			return false, e.handleSelect(ctx, cq, chatID)
		}
		if tok, ok := parseToken(cq.Data); ok {
			return false, e.handleToken(ctx, cq, tok)
		}
		return true, nil
	}

	msg := u.Message
	if msg == nil || chat == nil {
		return true, nil
	}

	name, args, isCommand := commandOf(msg, e.gateway.Self().UserName)
	if chat.IsGroup() {
		if isCommand && name == "settings" {
			return e.handleGroupSettings(ctx, msg, user)
		}
		return true, nil
	}
	if chat.Type != bot.ChatTypePrivate {
		return true, nil
	}

	switch {
	case isCommand && name == "start" && strings.HasPrefix(args, deepLinkPrefix):
		return false, e.handleDeepLink(ctx, user, strings.TrimPrefix(args, deepLinkPrefix))
	case isCommand && (name == "start" || name == "settings"):
		return false, e.listChats(ctx, user)
	case !isCommand && msg.Text != "":
		return e.handleInput(ctx, msg, user)
	}
	return true, nil
}

// commandOf splits "/name@bot args"; commands addressed to other bots are ignored.
func commandOf(msg *bot.Message, botName string) (name, args string, ok bool) {
	if !strings.HasPrefix(msg.Text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(msg.Text[1:], " ")
	name, target, addressed := strings.Cut(head, "@")
	if addressed && !strings.EqualFold(target, botName) {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(rest), name != ""
}

func (e *Editor) getLogEntry() *log.Entry {
	return log.WithField("object", "Editor")
}
