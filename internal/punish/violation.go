package punish

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

const noticeDateLayout = "02.01.2006 15:04"

// Violation is what a filter reports about an offending message.
type Violation struct {
	Target
	Punishment db.Punishment
	Reason     string
	MessageID  int
}

// Punish applies the violation's punishment and announces it in the chat.
func (e *Engine) Punish(ctx context.Context, v Violation) Outcome {
	out := e.Apply(ctx, v.Target, v.Punishment.Action, v.Punishment.Duration)

	if v.Punishment.Journal && e.journal != nil {
		e.journal.Enqueue(event.NewModeration(event.Moderation{
			ChatID:    v.ChatID,
			ChatTitle: v.ChatTitle,
			UserID:    v.UserID,
			UserName:  v.FirstName,
			Action:    string(v.Punishment.Action),
			Reason:    v.Reason,
			Outcome:   out.Text,
		}))
	}

	if out.Escalated {
		return out
	}

	text := out.Text
	if out.OK() {
		text = Notice(v.Punishment.Action, Mention(v.UserID, v.FirstName), v.Reason, out.Until)
	}
	msg := bot.HTML(v.ChatID, text)
	msg.Keyboard = Keyboard(v.Punishment.Action, v.ChatID, v.UserID)
	if _, err := e.gateway.SendMessage(ctx, msg); err != nil {
		log.WithFields(log.Fields{
			"object":  "punish",
			"chat_id": v.ChatID,
			"user_id": v.UserID,
		}).WithError(err).Warn("cant send punishment notice")
	}
	return out
}

// Notice renders the per-action announcement of a filter punishment.
func Notice(action db.Action, mention, reason string, until time.Time) string {
	term := i18n.Get("forever", "")
	if !until.IsZero() {
		term = i18n.Getf("until %s", "", until.Format(noticeDateLayout))
	}
	switch action {
	case db.ActionWarn:
		return i18n.Getf("⚠️ <b>Warning</b>\n└ Member: %s\n└ Reason: chat rules violation (%s)", "", mention, reason)
	case db.ActionMute:
		return i18n.Getf("🔇 <b>Muted in the chat</b>\n└ Member: %s\n└ Reason: chat rules violation (%s)\n└ Term: %s", "", mention, reason, term)
	case db.ActionKick:
		return i18n.Getf("🚷 <b>Removed from the chat</b>\n└ Member: %s\n└ Reason: chat rules violation (%s)\n└ Type: one-time removal", "", mention, reason)
	case db.ActionBan:
		return i18n.Getf("⛔ <b>Banned in the chat</b>\n└ Member: %s\n└ Reason: chat rules violation (%s)\n└ Term: %s", "", mention, reason, term)
	}
	return reason
}
