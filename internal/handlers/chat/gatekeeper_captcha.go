package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

const captchaPrefix = "captcha;"

func captchaData(userID int64) string {
	return captchaPrefix + strconv.FormatInt(userID, 10)
}

func parseCaptchaData(data string) (int64, bool) {
	raw, found := strings.CutPrefix(data, captchaPrefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// challenge restricts the member until they press the captcha button.
func (g *Gatekeeper) challenge(ctx context.Context, chat *bot.Chat, member *bot.User) (JoinState, error) {
	history, err := g.meetings.GetMeetingHistory(ctx, chat.ID, member.ID)
	if err != nil {
		return JoinStateJoined, err
	}
	if history != nil && !g.meeting.Get(ctx, chat.ID, db.CategoryNone).AlwaysSend {
		return JoinStateJoined, nil
	}
	current, err := g.gateway.GetChatMember(ctx, chat.ID, member.ID)
	if err == nil && current.IsRestricted() {
		return JoinStateJoined, nil
	}

	if err := g.gateway.Restrict(ctx, chat.ID, member.ID, 0); err != nil {
		return JoinStateJoined, errors.WithMessage(err, "cant restrict new member")
	}

	out := bot.HTML(chat.ID, i18n.Getf("Hello, %s!\nTo access the chat, please confirm you are not a robot.", "", punish.Mention(member.ID, member.FullName())))
	out.Keyboard = bot.Keyboard{bot.Row(bot.NewButtonData(i18n.Get("I am not a robot 🤖", ""), captchaData(member.ID)))}
	if _, err := g.gateway.SendMessage(ctx, out); err != nil {
		if uerr := g.gateway.Unrestrict(ctx, chat.ID, member.ID); uerr != nil {
			g.getLogEntry().WithField("chat_id", chat.ID).WithError(uerr).Error("cant unrestrict after failed captcha")
		}
		return JoinStateJoined, errors.WithMessage(err, "cant send captcha")
	}
	return JoinStateCaptchaPending, nil
}

// handleCaptchaCallback lets only the challenged user pass their captcha.
func (g *Gatekeeper) handleCaptchaCallback(ctx context.Context, cq *bot.CallbackQuery) error {
	userID, _ := parseCaptchaData(cq.Data)
	if cq.From == nil || cq.Message == nil {
		return nil
	}
	chat := &cq.Message.Chat
	entry := g.getLogEntry().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": userID,
	})

	if cq.From.ID != userID {
		g.answer(ctx, cq, i18n.Get("This is not your captcha!", ""), true)
		return nil
	}

	if err := g.gateway.Unrestrict(ctx, chat.ID, userID); err != nil {
		entry.WithError(err).Warn("cant unrestrict after captcha")
		g.answer(ctx, cq, i18n.Get("An error occurred. Please try again later.", ""), true)
		return nil
	}
	bot.TryDelete(ctx, g.gateway, chat.ID, cq.Message.MessageID)
	g.answer(ctx, cq, "", false)

	state, err := g.welcome(ctx, chat, cq.From)
	if err != nil {
		return errors.WithMessage(err, "cant welcome after captcha")
	}
	entry.WithField("state", state.String()).Debug("captcha passed")
	return nil
}

func (g *Gatekeeper) answer(ctx context.Context, cq *bot.CallbackQuery, text string, alert bool) {
	if err := g.gateway.AnswerCallback(ctx, cq.ID, text, alert); err != nil {
		g.getLogEntry().WithError(err).Debug("cant answer callback")
	}
}
