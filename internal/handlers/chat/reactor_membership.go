package handlers

import (
	"context"
	"html"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
)

// handleBotMembership tracks the bot's own status in group chats.
func (r *Reactor) handleBotMembership(ctx context.Context, upd *bot.ChatMemberUpdated) error {
	member := upd.NewChatMember
	if member.User == nil || member.User.ID != r.gateway.Self().ID || !upd.Chat.IsGroup() {
		return nil
	}
	entry := r.getLogEntry().WithFields(log.Fields{
		"chat_id": upd.Chat.ID,
		"status":  member.Status,
	})
	entry.Info("bot membership changed")

	switch member.Status {
	case bot.MemberKicked, bot.MemberLeft:
		return r.detach(ctx, &upd.Chat)
	case bot.MemberAdministrator:
		return r.attach(ctx, &upd.Chat)
	case bot.MemberMember:
		text := i18n.Get("Hi! Make me an administrator with delete, restrict and ban rights to start moderating this chat.", "")
		if _, err := r.gateway.SendMessage(ctx, bot.HTML(upd.Chat.ID, text)); err != nil {
			entry.WithError(err).Warn("cant send greeting")
		}
	}
	return nil
}

func (r *Reactor) attach(ctx context.Context, chat *bot.Chat) error {
	entry := r.getLogEntry().WithField("chat_id", chat.ID)

	count, err := r.gateway.GetChatMemberCount(ctx, chat.ID)
	if err != nil {
		entry.WithError(err).Warn("cant get member count")
	}
	r.admins.Invalidate(chat.ID)
	members, err := r.admins.List(ctx, chat.ID)
	if err != nil {
		return errors.WithMessage(err, "cant list admins")
	}
	managers, all := permissions.Split(members)

	err = r.registry.UpsertChat(ctx, &db.Chat{
		ID:           chat.ID,
		Title:        chat.Title,
		MembersCount: count,
		Work:         true,
		Admins:       managers,
		AllAdmins:    all,
	})
	if err != nil {
		return errors.WithMessage(err, "cant save chat")
	}

	text := i18n.Get("Thanks for the administrator rights! The chat info has been saved.", "")
	if _, err := r.gateway.SendMessage(ctx, bot.HTML(chat.ID, text)); err != nil {
		entry.WithError(err).Warn("cant send thanks")
	}
	return nil
}

func (r *Reactor) detach(ctx context.Context, chat *bot.Chat) error {
	r.admins.Invalidate(chat.ID)
	stored, err := r.registry.GetChat(ctx, chat.ID)
	if err != nil {
		return errors.WithMessage(err, "cant get chat")
	}
	if err := r.registry.SetChatWork(ctx, chat.ID, false); err != nil {
		return errors.WithMessage(err, "cant mark chat idle")
	}
	if stored == nil {
		return nil
	}

	title := stored.Title
	if title == "" {
		title = chat.Title
	}
	text := i18n.Getf("The bot was removed from chat %s.", "", html.EscapeString(title))
	for _, adminID := range stored.Admins {
		if _, err := r.gateway.SendMessage(ctx, bot.HTML(adminID, text)); err != nil {
			r.getLogEntry().WithField("admin_id", adminID).WithError(err).Debug("cant notify admin")
		}
	}
	return nil
}

// handleMemberUpdate refreshes the admin lists when someone's admin status changes.
func (r *Reactor) handleMemberUpdate(ctx context.Context, upd *bot.ChatMemberUpdated) error {
	if !permissions.IsAdmin(&upd.OldChatMember) && !permissions.IsAdmin(&upd.NewChatMember) {
		return nil
	}
	r.admins.Invalidate(upd.Chat.ID)
	if _, err := r.admins.List(ctx, upd.Chat.ID); err != nil {
		return errors.WithMessage(err, "cant refresh admins")
	}
	return nil
}
