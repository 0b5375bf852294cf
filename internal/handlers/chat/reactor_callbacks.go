package handlers

import (
	"context"
	"html"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
)

const (
	callbackUnmute       = "unmute"
	callbackUnban        = "unban"
	callbackDecreaseWarn = "decrease_warn"
)

var errBadCallback = errors.New("malformed callback data")

// handleCallback serves the undo buttons attached to punishment notices.
func (r *Reactor) handleCallback(ctx context.Context, cq *bot.CallbackQuery) (bool, error) {
	name, payload, _ := strings.Cut(cq.Data, ":")
	switch name {
	case callbackUnmute, callbackUnban, callbackDecreaseWarn:
	default:
		return true, nil
	}
	if cq.Message == nil || cq.From == nil {
		return false, nil
	}

	chatID := cq.Message.Chat.ID
	entry := r.getLogEntry().WithFields(log.Fields{
		"chat_id":  chatID,
		"callback": cq.Data,
	})

	userID, err := callbackTarget(name, payload, &chatID)
	if err != nil {
		entry.WithError(err).Warn("bad callback")
		r.answer(ctx, cq, i18n.Getf("❌ Error: %s", "", err), true)
		return false, nil
	}

	member, err := r.admins.Member(ctx, chatID, cq.From.ID)
	if err != nil || !permissions.CanRestrict(member) {
		r.answer(ctx, cq, i18n.Get("Not enough rights.", ""), true)
		return false, nil
	}

	var suffix string
	switch name {
	case callbackUnmute:
		err = r.gateway.Unrestrict(ctx, chatID, userID)
		suffix = i18n.Get("Punishment lifted.", "")
	case callbackUnban:
		err = r.gateway.Unban(ctx, chatID, userID)
		suffix = i18n.Get("Punishment lifted.", "")
	case callbackDecreaseWarn:
		var handled bool
		handled, err = r.decreaseWarn(ctx, cq, chatID, userID)
		if handled {
			return false, nil
		}
		suffix = i18n.Get("Warning removed.", "")
	}
	if err != nil {
		entry.WithError(err).Warn("cant lift punishment")
		r.answer(ctx, cq, i18n.Getf("❌ Error: %s", "", err), true)
		return false, nil
	}

	text := html.EscapeString(cq.Message.Text) + "\n\n" + suffix
	if err := r.gateway.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text, nil); err != nil {
		entry.WithError(err).Debug("cant edit notice")
	}
	r.answer(ctx, cq, "", false)
	return false, nil
}

// callbackTarget parses "<user>" or, for decrease_warn, "<chat>:<user>".
func callbackTarget(name, payload string, chatID *int64) (int64, error) {
	if name == callbackDecreaseWarn {
		rawChat, rawUser, found := strings.Cut(payload, ":")
		if !found {
			return 0, errBadCallback
		}
		id, err := strconv.ParseInt(rawChat, 10, 64)
		if err != nil {
			return 0, errors.Wrap(errBadCallback, err.Error())
		}
		*chatID = id
		payload = rawUser
	}
	userID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errBadCallback, err.Error())
	}
	return userID, nil
}

// decreaseWarn reports handled when it already answered the query.
func (r *Reactor) decreaseWarn(ctx context.Context, cq *bot.CallbackQuery, chatID, userID int64) (bool, error) {
	count, err := r.warns.Count(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if count <= 0 {
		r.answer(ctx, cq, i18n.Get("❌ The user has no warnings.", ""), true)
		return true, nil
	}
	_, err = r.warns.Remove(ctx, chatID, userID)
	return false, err
}

func (r *Reactor) answer(ctx context.Context, cq *bot.CallbackQuery, text string, alert bool) {
	if err := r.gateway.AnswerCallback(ctx, cq.ID, text, alert); err != nil {
		r.getLogEntry().WithError(err).Debug("cant answer callback")
	}
}
