package handlers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
)

// handleMessage runs the group pipeline: registry, commands, channel
// blocking, then the filter chain for non-admins.
func (r *Reactor) handleMessage(ctx context.Context, msg *bot.Message) error {
	r.remember(ctx, msg)

	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil || msg.NewChatTitle != "" {
		return nil
	}

	if cmd, ok := parseCommand(msg, r.gateway.Self().UserName); ok {
		handled, err := r.handleCommand(ctx, msg, cmd)
		if err != nil || handled {
			return err
		}
	}

	if r.blockChannel(ctx, msg) {
		return nil
	}
	if r.exempt(ctx, msg) {
		return nil
	}

	if name := r.chain.Run(ctx, msg); name != "" {
		r.getLogEntry().WithFields(log.Fields{
			"chat_id":    msg.Chat.ID,
			"message_id": msg.MessageID,
			"filter":     name,
		}).Debug("message handled by filter")
	}
	return nil
}

// remember keeps the user and chat registry current.
func (r *Reactor) remember(ctx context.Context, msg *bot.Message) {
	entry := r.getLogEntry().WithField("chat_id", msg.Chat.ID)

	users := make([]bot.User, 0, 1+len(msg.NewChatMembers))
	if msg.From != nil {
		users = append(users, *msg.From)
	}
	users = append(users, msg.NewChatMembers...)
	for _, u := range users {
		if u.IsBot {
			continue
		}
		err := r.registry.UpsertUser(ctx, &db.User{
			ID:        u.ID,
			UserName:  u.UserName,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
		if err != nil {
			entry.WithError(err).Warn("cant upsert user")
		}
	}

	title := msg.Chat.Title
	if msg.NewChatTitle != "" {
		title = msg.NewChatTitle
	}
	if title == "" {
		return
	}
	changed, err := r.registry.UpdateChatTitle(ctx, msg.Chat.ID, title)
	if err != nil {
		entry.WithError(err).Warn("cant update chat title")
		return
	}
	if changed {
		entry.WithField("title", title).Debug("chat title updated")
	}
}

// blockChannel removes posts made on behalf of foreign channels.
func (r *Reactor) blockChannel(ctx context.Context, msg *bot.Message) bool {
	sender := msg.SenderChat
	if sender == nil || sender.Type != bot.ChatTypeChannel || msg.IsAutomaticForward || sender.ID == msg.Chat.ID {
		return false
	}
	cfg := r.features.BlockChannels.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable {
		return false
	}

	entry := r.getLogEntry().WithFields(log.Fields{
		"chat_id":   msg.Chat.ID,
		"sender_id": sender.ID,
	})
	bot.TryDelete(ctx, r.gateway, msg.Chat.ID, msg.MessageID)
	if err := r.gateway.BanSenderChat(ctx, msg.Chat.ID, sender.ID); err != nil {
		entry.WithError(err).Warn("cant ban sender chat")
	}
	if cfg.Text != "" {
		if _, err := r.gateway.SendMessage(ctx, bot.HTML(msg.Chat.ID, cfg.Text)); err != nil {
			entry.WithError(err).Warn("cant send block channel notice")
		}
	}
	return true
}

// exempt is true for chat administrators, anonymous admins and linked channel posts.
func (r *Reactor) exempt(ctx context.Context, msg *bot.Message) bool {
	if msg.IsAutomaticForward {
		return true
	}
	if msg.SenderChat != nil && msg.SenderChat.ID == msg.Chat.ID {
		return true
	}
	if msg.From == nil {
		return false
	}
	member, err := r.admins.Member(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		r.getLogEntry().WithField("chat_id", msg.Chat.ID).WithError(err).Warn("cant get chat admins")
		return false
	}
	return permissions.IsAdmin(member)
}
