package handlers

import (
	"context"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

var errBadToken = errors.New("bad editor token")

type actionFunc func(e *Editor, ctx context.Context, session *db.EditorSession, state *editorState, arg string) error

var actions = map[action]actionFunc{
	actionOpen:   (*Editor).open,
	actionToggle: (*Editor).flip,
	actionCycle:  (*Editor).flip,
	actionPrompt: (*Editor).prompt,
	actionBack:   (*Editor).back,
	actionNoop:   func(*Editor, context.Context, *db.EditorSession, *editorState, string) error { return nil },
}

func (e *Editor) handleGroupSettings(ctx context.Context, msg *bot.Message, user *bot.User) (bool, error) {
	if msg.SenderChat != nil || !e.isManager(ctx, msg.Chat.ID, user.ID) {
		return true, nil
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s%s", e.gateway.Self().UserName, deepLinkPrefix, encodeChatID(msg.Chat.ID))
	out := bot.HTML(msg.Chat.ID, i18n.Get("Open the settings in a private chat with me.", ""))
	out.ReplyTo = msg.MessageID
	out.Keyboard = bot.Keyboard{bot.Row(bot.NewButtonURL(i18n.Get("Settings", ""), link))}
	if _, err := e.gateway.SendMessage(ctx, out); err != nil {
		return false, errors.WithMessage(err, "cant send settings link")
	}
	return false, nil
}

func (e *Editor) handleDeepLink(ctx context.Context, user *bot.User, payload string) error {
	chatID, err := decodeChatID(payload)
	if err != nil || !e.isManager(ctx, chatID, user.ID) {
		_, err := e.gateway.SendMessage(ctx, bot.HTML(user.ID, i18n.Get("No access", "")))
		return err
	}
	return e.openSession(ctx, user.ID, chatID, 0)
}

// listChats offers every working chat the user manages.
func (e *Editor) listChats(ctx context.Context, user *bot.User) error {
	chats, err := e.store.ListChatsByAdmin(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		_, err := e.gateway.SendMessage(ctx, bot.HTML(user.ID, i18n.Get("You have no chats to configure yet. Add me to a group as an administrator first.", "")))
		return err
	}

	keyboard := make(bot.Keyboard, 0, len(chats))
	for _, chat := range chats {
		title := chat.Title
		if title == "" {
			title = fmt.Sprint(chat.ID)
		}
		keyboard = append(keyboard, bot.Row(bot.NewButtonData(title, selectData(chat.ID))))
	}
	out := bot.HTML(user.ID, i18n.Getf("Hi! I am %s, a chat moderation bot.\n👉🏻 Choose the group whose settings you want to change.", "", e.gateway.Self().FirstName))
	out.Keyboard = keyboard
	_, err = e.gateway.SendMessage(ctx, out)
	return err
}

func (e *Editor) handleSelect(ctx context.Context, cq *bot.CallbackQuery, chatID int64) error {
	if cq.From == nil || cq.Message == nil {
		return nil
	}
	if !e.isManager(ctx, chatID, cq.From.ID) {
		e.answer(ctx, cq, i18n.Get("No access", ""), true)
		return nil
	}
	e.answer(ctx, cq, "", false)
	return e.openSession(ctx, cq.From.ID, chatID, cq.Message.MessageID)
}

func (e *Editor) handleToken(ctx context.Context, cq *bot.CallbackQuery, tok token) error {
	if cq.From == nil {
		return nil
	}
	session, err := e.store.GetEditorSessionByID(ctx, tok.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		e.answer(ctx, cq, i18n.Get("Session expired, open the settings again.", ""), true)
		return nil
	}
	if session.UserID != cq.From.ID {
		e.answer(ctx, cq, i18n.Get("No access", ""), true)
		return nil
	}
	if tok.Action == actionClose {
		e.answer(ctx, cq, "", false)
		return e.closeSession(ctx, session)
	}
	if !e.isManager(ctx, session.ChatID, session.UserID) {
		e.answer(ctx, cq, i18n.Get("No access", ""), true)
		return e.closeSession(ctx, session)
	}

	handler, ok := actions[tok.Action]
	if !ok {
		e.answer(ctx, cq, "", false)
		return nil
	}
	state, err := loadState(session)
	if err != nil {
		return err
	}
	state.Notice = ""
	if err := handler(e, ctx, session, &state, tok.Arg); err != nil {
		if errors.Is(err, errBadToken) {
			e.answer(ctx, cq, "", false)
			return nil
		}
		e.answer(ctx, cq, i18n.Get("An error occurred. Please try again later.", ""), true)
		return err
	}
	e.answer(ctx, cq, "", false)
	return e.show(ctx, session, state)
}

// handleInput consumes private text only while a session waits for a value.
func (e *Editor) handleInput(ctx context.Context, msg *bot.Message, user *bot.User) (bool, error) {
	session, err := e.store.GetLatestEditorSession(ctx, user.ID)
	if err != nil {
		return true, err
	}
	if session == nil {
		return true, nil
	}
	state, err := loadState(session)
	if err != nil || state.Prompt == "" {
		return true, err
	}
	entry := e.getLogEntry().WithFields(log.Fields{
		"chat_id": session.ChatID,
		"user_id": user.ID,
		"field":   string(state.Prompt),
	})

	if !e.isManager(ctx, session.ChatID, user.ID) {
		if _, err := e.gateway.SendMessage(ctx, bot.HTML(user.ID, i18n.Get("No access", ""))); err != nil {
			entry.WithError(err).Debug("cant report missing access")
		}
		return false, e.closeSession(ctx, session)
	}

	f, ok := e.catalog.forms[state.Page]
	if !ok {
		state.Prompt = ""
		return false, e.show(ctx, session, state)
	}
	err = f.assign(ctx, session.ChatID, state.Category, state.Prompt, msg.Text)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		state.Notice = i18n.Getf("Invalid value: %s", "", verr.Reason)
	case err != nil:
		entry.WithError(err).Error("cant save setting")
		state.Notice = i18n.Get("An error occurred. Please try again later.", "")
	default:
		entry.Info("setting changed")
		state.Prompt = ""
		state.Notice = i18n.Get("Saved.", "")
	}

	bot.TryDelete(ctx, e.gateway, session.UserID, session.MessageID)
	session.MessageID = 0
	return false, e.show(ctx, session, state)
}

func (e *Editor) open(_ context.Context, _ *db.EditorSession, state *editorState, arg string) error {
	p, category := splitPageArg(arg)
	state.Prompt = ""
	if p == pageHome {
		state.Page, state.Category = pageHome, ""
		return nil
	}
	f, ok := e.catalog.forms[p]
	if !ok {
		return errBadToken
	}
	if category != "" && !slices.Contains(f.categories(), db.Category(category)) {
		return errBadToken
	}
	state.Page, state.Category = p, db.Category(category)
	return nil
}

func (e *Editor) currentForm(state *editorState) (form, error) {
	f, ok := e.catalog.forms[state.Page]
	if !ok || (len(f.categories()) > 0 && state.Category == "") {
		return nil, errBadToken
	}
	return f, nil
}

func (e *Editor) flip(ctx context.Context, session *db.EditorSession, state *editorState, arg string) error {
	f, err := e.currentForm(state)
	if err != nil {
		return err
	}
	c, _, ok := f.lookup(field(arg))
	if !ok || c.kind == kindPrompt {
		return errBadToken
	}
	if err := f.flip(ctx, session.ChatID, state.Category, c.field); err != nil {
		return err
	}
	e.getLogEntry().WithFields(log.Fields{
		"chat_id": session.ChatID,
		"user_id": session.UserID,
		"page":    string(state.Page),
		"field":   arg,
	}).Info("setting changed")
	return nil
}

func (e *Editor) prompt(_ context.Context, _ *db.EditorSession, state *editorState, arg string) error {
	f, err := e.currentForm(state)
	if err != nil {
		return err
	}
	c, _, ok := f.lookup(field(arg))
	if !ok || c.kind != kindPrompt {
		return errBadToken
	}
	state.Prompt = c.field
	return nil
}

func (e *Editor) back(_ context.Context, _ *db.EditorSession, state *editorState, _ string) error {
	switch {
	case state.Prompt != "":
		state.Prompt = ""
	case state.Category != "":
		state.Category = ""
	default:
		state.Page = pageHome
	}
	return nil
}

func (e *Editor) answer(ctx context.Context, cq *bot.CallbackQuery, text string, alert bool) {
	if err := e.gateway.AnswerCallback(ctx, cq.ID, text, alert); err != nil {
		e.getLogEntry().WithError(err).Debug("cant answer callback")
	}
}
