package handlers

/*
mermaid:
graph JoinFlow
    A[Member joined] --> B{Bot?}
    B -->|Yes| Z[Joined]
    B -->|No| C{Captcha enabled?}
    C -->|No| W[Welcome]
    C -->|Yes| D{Met before and send once?}
    D -->|Yes| Z
    D -->|No| E{Already restricted?}
    E -->|Yes| Z
    E -->|No| F[Restrict and send captcha]
    F --> P[CaptchaPending]
    P -->|Challenged user clicks| G[Unrestrict, delete prompt]
    G --> W
    W --> H{Met before and send once?}
    H -->|Yes| Z
    H -->|No| I[Delete previous welcome, send welcome]
    I --> S[WelcomeSent]
*/

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

// JoinState is where a joining member ended up after the gatekeeper ran.
type JoinState int

const (
	JoinStateJoined JoinState = iota
	JoinStateCaptchaPending
	JoinStateWelcomeSent
)

func (s JoinState) String() string {
	switch s {
	case JoinStateCaptchaPending:
		return "captcha_pending"
	case JoinStateWelcomeSent:
		return "welcome_sent"
	}
	return "joined"
}

type Gatekeeper struct {
	gateway  bot.Gateway
	meetings MeetingStore
	meeting  FeatureSettings[db.Meeting]
	captcha  FeatureSettings[db.Captcha]
	now      func() time.Time
}

func NewGatekeeper(gateway bot.Gateway, meetings MeetingStore, features Features) *Gatekeeper {
	g := &Gatekeeper{
		gateway:  gateway,
		meetings: meetings,
		meeting:  features.Meeting,
		captcha:  features.Captcha,
		now:      time.Now,
	}
	g.getLogEntry().Debug("created new gatekeeper")
	return g
}

// Handle consumes captcha callbacks and greets members of join messages.
func (g *Gatekeeper) Handle(ctx context.Context, u *bot.Update, chat *bot.Chat, user *bot.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u.CallbackQuery != nil {
		if _, ok := parseCaptchaData(u.CallbackQuery.Data); ok {
			return false, g.handleCaptchaCallback(ctx, u.CallbackQuery)
		}
		return true, nil
	}

	if u.Message == nil || len(u.Message.NewChatMembers) == 0 || !chat.IsGroup() {
		return true, nil
	}
	for i := range u.Message.NewChatMembers {
		member := &u.Message.NewChatMembers[i]
		state, err := g.Join(ctx, chat, member)
		entry := g.getLogEntry().WithFields(log.Fields{
			"chat_id": chat.ID,
			"user_id": member.ID,
			"state":   state.String(),
		})
		if err != nil {
			entry.WithError(err).Warn("join handling failed")
			continue
		}
		entry.Debug("member joined")
	}
	return true, nil
}

// Join runs the captcha or welcome flow for one new member.
func (g *Gatekeeper) Join(ctx context.Context, chat *bot.Chat, member *bot.User) (JoinState, error) {
	if member.IsBot {
		return JoinStateJoined, nil
	}
	if !g.captcha.Get(ctx, chat.ID, db.CategoryNone).Enable {
		return g.welcome(ctx, chat, member)
	}
	return g.challenge(ctx, chat, member)
}

// welcome honors send-once and replaces the previous greeting when configured.
func (g *Gatekeeper) welcome(ctx context.Context, chat *bot.Chat, member *bot.User) (JoinState, error) {
	cfg := g.meeting.Get(ctx, chat.ID, db.CategoryNone)
	if !cfg.Enable {
		return JoinStateJoined, nil
	}
	history, err := g.meetings.GetMeetingHistory(ctx, chat.ID, member.ID)
	if err != nil {
		return JoinStateJoined, err
	}
	if history != nil && !cfg.AlwaysSend {
		return JoinStateJoined, nil
	}
	if cfg.DeleteLastMessage && history != nil {
		bot.TryDelete(ctx, g.gateway, chat.ID, history.MessageID)
	}

	out := bot.HTML(chat.ID, punish.Render(cfg.Text, punish.Vars{
		UserID:    member.ID,
		FirstName: member.FullName(),
		ChatID:    chat.ID,
		ChatTitle: chat.Title,
	}))
	out.Keyboard, _ = punish.FormatButtons(cfg.Buttons)
	out.PreviewURL = cfg.MediaLink

	sent, err := g.gateway.SendMessage(ctx, out)
	if err != nil && out.PreviewURL != "" {
		g.getLogEntry().WithField("chat_id", chat.ID).WithError(err).Warn("cant send welcome with media, retrying without")
		out.PreviewURL = ""
		sent, err = g.gateway.SendMessage(ctx, out)
	}
	if err != nil {
		return JoinStateJoined, err
	}

	record := &db.MeetingHistory{
		ChatID:         chat.ID,
		UserID:         member.ID,
		MessageID:      sent.MessageID,
		LastWelcomedAt: g.now().UTC(),
	}
	if history != nil {
		record.FirstJoinedAt = history.FirstJoinedAt
	}
	if err := g.meetings.UpsertMeetingHistory(ctx, record); err != nil {
		return JoinStateWelcomeSent, err
	}
	return JoinStateWelcomeSent, nil
}

func (g *Gatekeeper) getLogEntry() *log.Entry {
	return log.WithField("object", "Gatekeeper")
}
