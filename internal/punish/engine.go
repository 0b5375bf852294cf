// Package punish turns moderation verdicts into Telegram actions and notices.
package punish

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/duration"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/observability"
)

const dateLayout = "2006-01-02"

type (
	Gateway interface {
		Restrict(ctx context.Context, chatID, userID int64, untilUnix int64) error
		Ban(ctx context.Context, chatID, userID int64, untilUnix int64) error
		Unban(ctx context.Context, chatID, userID int64) error
		SendMessage(ctx context.Context, msg bot.OutgoingMessage) (*bot.Message, error)
	}

	Ledger interface {
		AddAt(ctx context.Context, chatID, userID int64, threshold int) (int, bool, error)
	}

	// Suppression is the flood suppression flag of a (chat, user).
	Suppression interface {
		Release(ctx context.Context, chatID, userID int64) error
	}

	WarnSettings interface {
		Get(ctx context.Context, chatID int64, category db.Category) db.Warns
	}

	Journal interface {
		Enqueue(event event.Queueable) bool
	}

	// Target is the punished member of a chat.
	Target struct {
		ChatID    int64
		ChatTitle string
		UserID    int64
		FirstName string
	}

	Outcome struct {
		Action db.Action
		Text   string
		Err    error
		// Until is zero for permanent restrictions.
		Until     time.Time
		Warns     int
		MaxWarns  int
		Escalated bool
	}

	Engine struct {
		gateway     Gateway
		ledger      Ledger
		suppression Suppression
		warns       WarnSettings
		journal     Journal
		now         func() time.Time
	}
)

func (o Outcome) OK() bool { return o.Err == nil }

func NewEngine(gateway Gateway, ledger Ledger, suppression Suppression, warns WarnSettings, journal Journal) *Engine {
	return &Engine{
		gateway:     gateway,
		ledger:      ledger,
		suppression: suppression,
		warns:       warns,
		journal:     journal,
		now:         time.Now,
	}
}

func errorOutcome(action db.Action, err error) Outcome {
	return Outcome{Action: action, Err: err, Text: i18n.Getf("❌ Error: %s", "", err)}
}

func humanDate(until time.Time) string {
	if until.IsZero() {
		return i18n.Get("forever", "")
	}
	return until.Format(dateLayout)
}

// Apply enforces an action. Failures are reported in the outcome text.
func (e *Engine) Apply(ctx context.Context, t Target, action db.Action, dur string) Outcome {
	out := e.apply(ctx, t, action, dur)
	observability.RecordAction(string(action), out.OK())
	return out
}

func (e *Engine) apply(ctx context.Context, t Target, action db.Action, dur string) Outcome {
	entry := log.WithFields(log.Fields{
		"object":  "punish",
		"chat_id": t.ChatID,
		"user_id": t.UserID,
		"action":  action,
	})

	var out Outcome
	switch action {
	case db.ActionWarn:
		return e.warn(ctx, t)
	case db.ActionMute, db.ActionBan:
		d, err := duration.ParseStored(dur)
		if err != nil {
			return errorOutcome(action, err)
		}
		untilUnix := d.UnixUntil(e.now())
		var until time.Time
		if untilUnix != 0 {
			until = time.Unix(untilUnix, 0)
		}
		if action == db.ActionMute {
			err = e.gateway.Restrict(ctx, t.ChatID, t.UserID, untilUnix)
			out = Outcome{Action: action, Until: until, Text: i18n.Getf("🔇 Mute %s.", "", humanDate(until))}
		} else {
			err = e.gateway.Ban(ctx, t.ChatID, t.UserID, untilUnix)
			out = Outcome{Action: action, Until: until, Text: i18n.Getf("🚫 Ban %s", "", humanDate(until))}
		}
		if err != nil {
			entry.WithError(err).Warn("cant apply punishment")
			return errorOutcome(action, err)
		}
	case db.ActionKick:
		if err := e.gateway.Ban(ctx, t.ChatID, t.UserID, 0); err != nil {
			entry.WithError(err).Warn("cant kick")
			return errorOutcome(action, err)
		}
		if err := e.gateway.Unban(ctx, t.ChatID, t.UserID); err != nil {
			entry.WithError(err).Warn("cant unban after kick")
			return errorOutcome(action, err)
		}
		out = Outcome{Action: action, Text: i18n.Get("👢 Kicked from the chat.", "")}
	default:
		return errorOutcome(action, db.ErrUnknownAction)
	}

	if err := e.suppression.Release(ctx, t.ChatID, t.UserID); err != nil {
		entry.WithError(err).Warn("cant release flood suppression")
	}
	return out
}

func (e *Engine) warn(ctx context.Context, t Target) Outcome {
	settings := e.warns.Get(ctx, t.ChatID, db.CategoryNone)
	count, reached, err := e.ledger.AddAt(ctx, t.ChatID, t.UserID, settings.WarnsCount)
	if err != nil {
		if !reached {
			return errorOutcome(db.ActionWarn, err)
		}
		log.WithField("chat_id", t.ChatID).WithError(err).Warn("cant reset warns")
	}
	out := Outcome{Action: db.ActionWarn, Warns: count, MaxWarns: settings.WarnsCount}
	if !reached {
		return out
	}

	escalation := settings.Action
	if escalation == db.ActionWarn {
		escalation = db.ActionMute
	}
	esc := e.Apply(ctx, t, escalation, settings.Duration)

	text := i18n.Getf("🚨 %s Reached the maximum number of warnings.\n%s!", "", Mention(t.UserID, t.FirstName), esc.Text)
	msg := bot.HTML(t.ChatID, text)
	msg.Keyboard = Keyboard(escalation, t.ChatID, t.UserID)
	if _, err := e.gateway.SendMessage(ctx, msg); err != nil {
		log.WithField("chat_id", t.ChatID).WithError(err).Warn("cant send max warns notice")
	}

	out.Escalated = true
	out.Text = esc.Text
	out.Err = esc.Err
	out.Until = esc.Until
	return out
}

// Keyboard is the undo button attached to punishment notices.
func Keyboard(action db.Action, chatID, userID int64) bot.Keyboard {
	switch action {
	case db.ActionMute:
		return bot.Keyboard{bot.Row(bot.NewButtonData(i18n.Get("Unmute", ""), fmt.Sprintf("unmute:%d", userID)))}
	case db.ActionBan:
		return bot.Keyboard{bot.Row(bot.NewButtonData(i18n.Get("Unban", ""), fmt.Sprintf("unban:%d", userID)))}
	case db.ActionWarn:
		return bot.Keyboard{bot.Row(bot.NewButtonData(i18n.Get("Remove warning", ""), fmt.Sprintf("decrease_warn:%d:%d", chatID, userID)))}
	}
	return nil
}
