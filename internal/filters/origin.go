package filters

import (
	"context"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

// classifier maps a message to the sender kind of its foreign content.
type classifier func(msg *bot.Message) (db.Category, []identity, bool)

// Origin punishes forwards or quotes by the category of their source.
type Origin struct {
	enforcer
	name     string
	reason   string
	classify classifier
	settings Settings[db.OriginPolicy]
}

func NewForward(settings Settings[db.OriginPolicy], deleter bot.Deleter, punisher Punisher) *Origin {
	return &Origin{
		enforcer: enforcer{deleter: deleter, punisher: punisher},
		name:     "forward",
		reason:   "Forward from chat (%s)",
		classify: ClassifyForward,
		settings: settings,
	}
}

func NewQuotes(settings Settings[db.OriginPolicy], deleter bot.Deleter, punisher Punisher) *Origin {
	return &Origin{
		enforcer: enforcer{deleter: deleter, punisher: punisher},
		name:     "quotes",
		reason:   "Quote from chat (%s)",
		classify: ClassifyQuote,
		settings: settings,
	}
}

func (o *Origin) Name() string { return o.name }

func (o *Origin) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	category, sources, ok := o.classify(msg)
	if !ok {
		return false, nil
	}
	cfg := o.settings.Get(ctx, msg.Chat.ID, category)
	if !cfg.Enable {
		return false, nil
	}
	if excepted(cfg.Exceptions, append(sources, userIdentity(msg.From))...) {
		return false, nil
	}
	o.enforce(ctx, msg, cfg.Punishment, i18n.Getf(o.reason, "", i18n.Get(string(category), "")))
	return true, nil
}

func originCategory(origin *bot.MessageOrigin) (db.Category, []identity, bool) {
	switch origin.Type {
	case bot.OriginUser:
		if origin.SenderUser == nil {
			return db.CategoryUsers, nil, true
		}
		if origin.SenderUser.IsBot {
			return db.CategoryBots, []identity{userIdentity(origin.SenderUser)}, true
		}
		return db.CategoryUsers, []identity{userIdentity(origin.SenderUser)}, true
	case bot.OriginHiddenUser:
		return db.CategoryUsers, nil, true
	case bot.OriginChat:
		return db.CategoryChats, []identity{chatIdentity(origin.SenderChat)}, true
	case bot.OriginChannel:
		return db.CategoryChannels, []identity{chatIdentity(origin.Chat)}, true
	}
	return db.CategoryNone, nil, false
}

// ClassifyForward inspects forward_origin.
func ClassifyForward(msg *bot.Message) (db.Category, []identity, bool) {
	if msg.ForwardOrigin == nil {
		return db.CategoryNone, nil, false
	}
	return originCategory(msg.ForwardOrigin)
}

// ClassifyQuote inspects a reply to a message from another chat. The chat of
// the replied message wins over its origin.
func ClassifyQuote(msg *bot.Message) (db.Category, []identity, bool) {
	reply := msg.ExternalReply
	if reply == nil {
		return db.CategoryNone, nil, false
	}
	if reply.Chat != nil {
		switch {
		case reply.Chat.IsGroup():
			return db.CategoryChats, []identity{chatIdentity(reply.Chat)}, true
		case reply.Chat.Type == bot.ChatTypeChannel:
			return db.CategoryChannels, []identity{chatIdentity(reply.Chat)}, true
		}
	}
	return originCategory(&reply.Origin)
}
