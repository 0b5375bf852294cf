package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	GetFeatureSettings(ctx context.Context, chatID int64, feature Feature, category Category) (*FeatureSettings, error)
	UpdateFeatureSettings(ctx context.Context, chatID int64, feature Feature, category Category, mutate func(payload string) (string, error)) (string, error)
	ListFeatureSettings(ctx context.Context, feature Feature) ([]*FeatureSettings, error)

	AddWarn(ctx context.Context, chatID, userID int64) (int, error)
	RemoveWarn(ctx context.Context, chatID, userID int64) (int, error)
	ResetWarns(ctx context.Context, chatID, userID int64) (bool, error)
	GetWarns(ctx context.Context, chatID, userID int64) (int, error)

	GetMeetingHistory(ctx context.Context, chatID, userID int64) (*MeetingHistory, error)
	UpsertMeetingHistory(ctx context.Context, history *MeetingHistory) error

	UpsertChat(ctx context.Context, chat *Chat) error
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	UpdateChatTitle(ctx context.Context, chatID int64, title string) (bool, error)
	SetChatAdmins(ctx context.Context, chatID int64, admins, allAdmins IDList) error
	SetChatWork(ctx context.Context, chatID int64, work bool) error
	ListChatsByAdmin(ctx context.Context, userID int64) ([]*Chat, error)

	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	GetEditorSession(ctx context.Context, userID, chatID int64) (*EditorSession, error)
	GetEditorSessionByID(ctx context.Context, id int64) (*EditorSession, error)
	GetLatestEditorSession(ctx context.Context, userID int64) (*EditorSession, error)
	SaveEditorSession(ctx context.Context, session *EditorSession) (*EditorSession, error)
	DeleteEditorSession(ctx context.Context, id int64) error
	ListExpiredEditorSessions(ctx context.Context, before time.Time) ([]*EditorSession, error)
}
