package event

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

const (
	TypeModeration = "moderation"

	moderationTTL = 10 * time.Minute
)

// Moderation describes one enforcement worth recording in the journal chat.
type Moderation struct {
	*Base
	ChatID    int64
	ChatTitle string
	UserID    int64
	UserName  string
	Action    string
	Reason    string
	Outcome   string
}

func NewModeration(m Moderation) *Moderation {
	m.Base = CreateBase(TypeModeration, time.Now().Add(moderationTTL))
	return &m
}

type Sender interface {
	SendMessage(ctx context.Context, msg bot.OutgoingMessage) (*bot.Message, error)
}

// Journal posts moderation events to a dedicated chat.
type Journal struct {
	sender Sender
	chatID int64
}

func NewJournal(sender Sender, chatID int64) *Journal {
	return &Journal{sender: sender, chatID: chatID}
}

func (j *Journal) Subscribe(w *Worker) {
	w.Subscribe(TypeModeration, j.handle)
}

func (j *Journal) handle(ctx context.Context, e Queueable) {
	// Failed posts are not retried.
	defer e.Process()

	m, ok := e.(*Moderation)
	if !ok || j.chatID == 0 {
		return
	}
	if _, err := j.sender.SendMessage(ctx, bot.HTML(j.chatID, FormatModeration(m))); err != nil {
		log.WithField("chat_id", m.ChatID).WithError(err).Warn("cant post journal entry")
	}
}

func FormatModeration(m *Moderation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%s\n", m.Action)
	fmt.Fprintf(&sb, "└ %s (<code>%d</code>)\n", html.EscapeString(m.ChatTitle), m.ChatID)
	fmt.Fprintf(&sb, "└ <a href='tg://user?id=%d'>%s</a> (<code>%d</code>)\n", m.UserID, html.EscapeString(m.UserName), m.UserID)
	if m.Reason != "" {
		fmt.Fprintf(&sb, "└ %s\n", html.EscapeString(m.Reason))
	}
	if m.Outcome != "" {
		fmt.Fprintf(&sb, "└ %s", m.Outcome)
	}
	return strings.TrimRight(sb.String(), "\n")
}
