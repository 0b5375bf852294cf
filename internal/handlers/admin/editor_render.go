package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

const buttonsPerRow = 2

// show renders the state into the panel message, sending a new one when editing fails.
func (e *Editor) show(ctx context.Context, session *db.EditorSession, state editorState) error {
	if session.ID == 0 {
		if err := e.saveState(ctx, session, state); err != nil {
			return err
		}
	}
	text, keyboard := e.render(ctx, session, state)

	if session.MessageID != 0 {
		err := e.gateway.EditMessageText(ctx, session.UserID, session.MessageID, text, keyboard)
		if err == nil || isMessageNotModifiedError(err) {
			return e.saveState(ctx, session, state)
		}
		e.getLogEntry().WithError(err).Debug("cant edit panel, sending a new one")
	}

	sent, err := e.gateway.SendMessage(ctx, bot.OutgoingMessage{
		ChatID:         session.UserID,
		Text:           text,
		HTML:           true,
		Keyboard:       keyboard,
		DisablePreview: true,
	})
	if err != nil {
		return err
	}
	session.MessageID = sent.MessageID
	return e.saveState(ctx, session, state)
}

func (e *Editor) render(ctx context.Context, session *db.EditorSession, state editorState) (string, bot.Keyboard) {
	f, ok := e.catalog.forms[state.Page]
	switch {
	case !ok:
		return e.renderHome(session, state)
	case len(f.categories()) > 0 && state.Category == "":
		return e.renderCategories(session, state, f)
	case state.Prompt != "":
		return e.renderPrompt(ctx, session, state, f)
	default:
		return e.renderFeature(ctx, session, state, f)
	}
}

func (e *Editor) button(session *db.EditorSession, label string, a action, arg string) bot.Button {
	return bot.NewButtonData(label, token{SessionID: session.ID, Action: a, Arg: arg}.String())
}

func (e *Editor) footer(session *db.EditorSession, withBack bool) []bot.Button {
	row := []bot.Button{}
	if withBack {
		row = append(row, e.button(session, i18n.Get("Back", ""), actionBack, ""))
	}
	return append(row, e.button(session, i18n.Get("Close", ""), actionClose, ""))
}

func grid(buttons []bot.Button) bot.Keyboard {
	var keyboard bot.Keyboard
	for i := 0; i < len(buttons); i += buttonsPerRow {
		end := min(i+buttonsPerRow, len(buttons))
		keyboard = append(keyboard, bot.Row(buttons[i:end]...))
	}
	return keyboard
}

func header(state editorState) string {
	return "<b>" + html.EscapeString(i18n.Getf("Settings of %s", "", state.ChatTitle)) + "</b>"
}

func withNotice(body string, state editorState) string {
	if state.Notice == "" {
		return body
	}
	return body + "\n\n<i>" + html.EscapeString(state.Notice) + "</i>"
}

func (e *Editor) renderHome(session *db.EditorSession, state editorState) (string, bot.Keyboard) {
	buttons := make([]bot.Button, 0, len(e.catalog.order))
	for _, p := range e.catalog.order {
		buttons = append(buttons, e.button(session, i18n.Get(e.catalog.titles[p], ""), actionOpen, pageArg(p, "")))
	}
	keyboard := append(grid(buttons), e.footer(session, false))
	body := header(state) + "\n\n" + html.EscapeString(i18n.Get("Choose a setting to change.", ""))
	return withNotice(body, state), keyboard
}

func categoryLabel(p page, category db.Category) string {
	if p == db.FeatureModeration {
		return "/" + string(category)
	}
	return i18n.Get(string(category), "")
}

func (e *Editor) renderCategories(session *db.EditorSession, state editorState, f form) (string, bot.Keyboard) {
	buttons := make([]bot.Button, 0, len(f.categories()))
	for _, category := range f.categories() {
		buttons = append(buttons, e.button(session, categoryLabel(state.Page, category), actionOpen, pageArg(state.Page, string(category))))
	}
	keyboard := append(grid(buttons), e.footer(session, true))
	body := fmt.Sprintf("%s\n\n<b>%s</b>\n%s",
		header(state),
		html.EscapeString(i18n.Get(e.catalog.titles[state.Page], "")),
		html.EscapeString(i18n.Get("Choose a category.", "")),
	)
	return withNotice(body, state), keyboard
}

func (e *Editor) pageTitle(state editorState) string {
	title := i18n.Get(e.catalog.titles[state.Page], "")
	if state.Category != "" {
		title += " · " + categoryLabel(state.Page, state.Category)
	}
	return "<b>" + html.EscapeString(title) + "</b>"
}

func (e *Editor) renderFeature(ctx context.Context, session *db.EditorSession, state editorState, f form) (string, bot.Keyboard) {
	controls := f.controls(ctx, session.ChatID, state.Category)

	var body strings.Builder
	body.WriteString(header(state) + "\n\n" + e.pageTitle(state) + "\n")
	buttons := make([]bot.Button, 0, len(controls))
	for _, c := range controls {
		label := i18n.Get(c.label, "")
		fmt.Fprintf(&body, "\n%s: %s", html.EscapeString(label), html.EscapeString(c.value))
		switch c.kind {
		case kindToggle:
			buttons = append(buttons, e.button(session, c.value+" "+label, actionToggle, string(c.field)))
		case kindCycle:
			buttons = append(buttons, e.button(session, label+": "+c.value, actionCycle, string(c.field)))
		case kindPrompt:
			buttons = append(buttons, e.button(session, "✏️ "+label, actionPrompt, string(c.field)))
		}
	}
	keyboard := append(grid(buttons), e.footer(session, true))
	return withNotice(body.String(), state), keyboard
}

func (e *Editor) renderPrompt(ctx context.Context, session *db.EditorSession, state editorState, f form) (string, bot.Keyboard) {
	c, hint, _ := f.lookup(state.Prompt)
	current := ""
	for _, ctl := range f.controls(ctx, session.ChatID, state.Category) {
		if ctl.field == state.Prompt {
			current = ctl.value
		}
	}

	var body strings.Builder
	body.WriteString(header(state) + "\n\n" + e.pageTitle(state) + "\n\n")
	fmt.Fprintf(&body, "✏️ <b>%s</b>\n", html.EscapeString(i18n.Get(c.label, "")))
	body.WriteString(html.EscapeString(i18n.Getf("Current value: %s", "", current)))
	if hint != "" {
		body.WriteString("\n\n" + html.EscapeString(hint))
	}
	body.WriteString("\n\n" + html.EscapeString(i18n.Get("Send the new value.", "")))
	return withNotice(body.String(), state), bot.Keyboard{e.footer(session, true)}
}

func isMessageNotModifiedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
