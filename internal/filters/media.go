package filters

import (
	"context"
	"slices"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

type Journal interface {
	Enqueue(e event.Queueable) bool
}

// Media deletes blocklisted stickers, sticker sets and gifs.
type Media struct {
	deleter  bot.Deleter
	settings Settings[db.Blocks]
	journal  Journal
}

func NewMedia(settings Settings[db.Blocks], deleter bot.Deleter, journal Journal) *Media {
	return &Media{deleter: deleter, settings: settings, journal: journal}
}

func (f *Media) Name() string { return "blocks" }

// Blocked reports the blocklist a message matches.
func Blocked(cfg db.Blocks, msg *bot.Message) string {
	switch {
	case msg.Sticker != nil:
		s := msg.Sticker
		if slices.Contains(cfg.Stickers, s.FileUniqueID) || slices.Contains(cfg.Stickers, s.FileID) {
			return "sticker"
		}
		if s.SetName != "" && slices.Contains(cfg.StickerSets, s.SetName) {
			return "sticker set"
		}
	case msg.Animation != nil:
		a := msg.Animation
		if slices.Contains(cfg.Gifs, a.FileUniqueID) || slices.Contains(cfg.Gifs, a.FileID) {
			return "gif"
		}
	}
	return ""
}

func (f *Media) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	if msg.Sticker == nil && msg.Animation == nil {
		return false, nil
	}
	cfg := f.settings.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable {
		return false, nil
	}
	kind := Blocked(cfg, msg)
	if kind == "" {
		return false, nil
	}
	bot.TryDelete(ctx, f.deleter, msg.Chat.ID, msg.MessageID)

	if cfg.Journal && f.journal != nil {
		t := target(msg)
		f.journal.Enqueue(event.NewModeration(event.Moderation{
			ChatID:    t.ChatID,
			ChatTitle: t.ChatTitle,
			UserID:    t.UserID,
			UserName:  t.FirstName,
			Action:    "delete",
			Reason:    i18n.Get("blocked media", "") + " (" + kind + ")",
		}))
	}
	return true, nil
}
