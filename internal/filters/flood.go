package filters

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/flood"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

type FloodCounter interface {
	Observe(ctx context.Context, chatID, userID int64, messageID int, limits flood.Limits) (flood.Verdict, error)
	Clear(ctx context.Context, chatID, userID int64) error
}

type Flood struct {
	enforcer
	counter  FloodCounter
	settings Settings[db.Antiflood]
}

func NewFlood(counter FloodCounter, settings Settings[db.Antiflood], deleter bot.Deleter, punisher Punisher) *Flood {
	return &Flood{
		enforcer: enforcer{deleter: deleter, punisher: punisher},
		counter:  counter,
		settings: settings,
	}
}

func (f *Flood) Name() string { return "flood" }

func (f *Flood) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	if msg.From == nil {
		return false, nil
	}
	cfg := f.settings.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable || cfg.Messages <= 0 || cfg.Time <= 0 {
		return false, nil
	}

	verdict, err := f.counter.Observe(ctx, msg.Chat.ID, msg.From.ID, msg.MessageID, flood.Limits{
		Messages: cfg.Messages,
		Window:   time.Duration(cfg.Time) * time.Second,
	})
	if err != nil {
		return false, err
	}
	if !verdict.Triggered {
		return false, nil
	}

	for _, id := range verdict.MessageIDs {
		bot.TryDelete(ctx, f.deleter, msg.Chat.ID, id)
	}
	p := cfg.Punishment
	p.DeleteMessage = false
	f.enforce(ctx, msg, p, i18n.Get("flood in the chat.", ""))

	if err := f.counter.Clear(ctx, msg.Chat.ID, msg.From.ID); err != nil {
		log.WithFields(log.Fields{
			"object":  "filters",
			"filter":  f.Name(),
			"chat_id": msg.Chat.ID,
		}).WithError(err).Warn("cant clear flood window")
	}
	return true, nil
}
