// Package filters runs the ordered moderation checks over group messages.
package filters

import (
	"context"
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/observability"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

type (
	// Filter inspects a message and reports whether it acted on it.
	Filter interface {
		Name() string
		Check(ctx context.Context, msg *bot.Message) (handled bool, err error)
	}

	Settings[T any] interface {
		Get(ctx context.Context, chatID int64, category db.Category) T
	}

	Punisher interface {
		Punish(ctx context.Context, v punish.Violation) punish.Outcome
	}

	Chain struct {
		filters []Filter
	}
)

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Run stops at the first filter that handles the message and returns its name.
// Filter failures are logged and the next filter runs.
func (c *Chain) Run(ctx context.Context, msg *bot.Message) string {
	for _, f := range c.filters {
		if ctx.Err() != nil {
			return ""
		}
		handled, err := c.run(ctx, f, msg)
		if err != nil {
			log.WithFields(log.Fields{
				"object":  "filters",
				"filter":  f.Name(),
				"chat_id": msg.Chat.ID,
			}).WithError(err).Error("filter failed")
			continue
		}
		if handled {
			observability.RecordViolation(f.Name())
			return f.Name()
		}
	}
	return ""
}

func (c *Chain) run(ctx context.Context, f Filter, msg *bot.Message) (handled bool, err error) {
	ctx, span := observability.Tracer().Start(ctx, "filter."+f.Name())
	span.SetAttributes(
		attribute.Int64("chat.id", msg.Chat.ID),
		attribute.Int("message.id", msg.MessageID),
	)
	done := observability.StartFilter(f.Name())
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
		status := "pass"
		switch {
		case err != nil:
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "filter failed")
		case handled:
			status = "handled"
		}
		span.SetAttributes(attribute.Bool("filter.handled", handled))
		span.End()
		done(status)
	}()
	return f.Check(ctx, msg)
}

// enforcer deletes the offending message when configured and punishes its sender.
type enforcer struct {
	deleter  bot.Deleter
	punisher Punisher
}

func target(msg *bot.Message) punish.Target {
	t := punish.Target{ChatID: msg.Chat.ID, ChatTitle: msg.Chat.Title}
	if msg.From != nil {
		t.UserID = msg.From.ID
		t.FirstName = msg.From.FullName()
	}
	return t
}

func (e enforcer) enforce(ctx context.Context, msg *bot.Message, p db.Punishment, reason string) {
	if p.DeleteMessage {
		bot.TryDelete(ctx, e.deleter, msg.Chat.ID, msg.MessageID)
	}
	if msg.From == nil {
		return
	}
	e.punisher.Punish(ctx, punish.Violation{
		Target:     target(msg),
		Punishment: p,
		Reason:     reason,
		MessageID:  msg.MessageID,
	})
}
