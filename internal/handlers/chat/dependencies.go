package handlers

import (
	"context"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

type (
	FeatureSettings[T any] interface {
		Get(ctx context.Context, chatID int64, category db.Category) T
	}

	// Features are the per-chat settings the chat handlers read.
	Features struct {
		Warns         FeatureSettings[db.Warns]
		Meeting       FeatureSettings[db.Meeting]
		Captcha       FeatureSettings[db.Captcha]
		Moderation    FeatureSettings[db.Moderation]
		Reports       FeatureSettings[db.Reports]
		Rules         FeatureSettings[db.Rules]
		BlockChannels FeatureSettings[db.BlockChannels]
	}

	Registry interface {
		UpsertUser(ctx context.Context, user *db.User) error
		GetUser(ctx context.Context, userID int64) (*db.User, error)
		GetUserByUsername(ctx context.Context, username string) (*db.User, error)
		UpsertChat(ctx context.Context, chat *db.Chat) error
		GetChat(ctx context.Context, chatID int64) (*db.Chat, error)
		UpdateChatTitle(ctx context.Context, chatID int64, title string) (bool, error)
		SetChatWork(ctx context.Context, chatID int64, work bool) error
	}

	MeetingStore interface {
		GetMeetingHistory(ctx context.Context, chatID, userID int64) (*db.MeetingHistory, error)
		UpsertMeetingHistory(ctx context.Context, history *db.MeetingHistory) error
	}

	AdminCache interface {
		List(ctx context.Context, chatID int64) ([]bot.ChatMember, error)
		Member(ctx context.Context, chatID, userID int64) (*bot.ChatMember, error)
		Invalidate(chatID int64)
	}

	Enforcer interface {
		Apply(ctx context.Context, t punish.Target, action db.Action, dur string) punish.Outcome
	}

	WarnLedger interface {
		Remove(ctx context.Context, chatID, userID int64) (int, error)
		Reset(ctx context.Context, chatID, userID int64) (bool, error)
		Count(ctx context.Context, chatID, userID int64) (int, error)
	}

	FilterChain interface {
		Run(ctx context.Context, msg *bot.Message) string
	}

	Journal interface {
		Enqueue(event event.Queueable) bool
	}
)
