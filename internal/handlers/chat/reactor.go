package handlers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

// Reactor moderates group messages: commands, filters, undo buttons and
// the chat registry.
type Reactor struct {
	gateway  bot.Gateway
	registry Registry
	admins   AdminCache
	chain    FilterChain
	enforcer Enforcer
	warns    WarnLedger
	features Features
	journal  Journal
	now      func() time.Time
}

func NewReactor(
	gateway bot.Gateway,
	registry Registry,
	admins AdminCache,
	chain FilterChain,
	enforcer Enforcer,
	warns WarnLedger,
	features Features,
	journal Journal,
) *Reactor {
	r := &Reactor{
		gateway:  gateway,
		registry: registry,
		admins:   admins,
		chain:    chain,
		enforcer: enforcer,
		warns:    warns,
		features: features,
		journal:  journal,
		now:      time.Now,
	}
	r.getLogEntry().Debug("created new reactor")
	return r
}

func (r *Reactor) Handle(ctx context.Context, u *bot.Update, chat *bot.Chat, user *bot.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	switch {
	case u.CallbackQuery != nil:
		return r.handleCallback(ctx, u.CallbackQuery)
	case u.MyChatMember != nil:
		return true, r.handleBotMembership(ctx, u.MyChatMember)
	case u.ChatMember != nil:
		return true, r.handleMemberUpdate(ctx, u.ChatMember)
	case u.Message != nil:
		if chat == nil {
			return true, nil
		}
		if !chat.IsGroup() {
			return true, r.handlePrivate(ctx, u.Message)
		}
		return true, r.handleMessage(ctx, u.Message)
	}
	return true, nil
}

func (r *Reactor) getLogEntry() *log.Entry {
	return log.WithField("object", "Reactor")
}
