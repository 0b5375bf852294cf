package permissions

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
)

type (
	AdminSource interface {
		GetChatAdministrators(ctx context.Context, chatID int64) ([]bot.ChatMember, error)
	}

	AdminStore interface {
		SetChatAdmins(ctx context.Context, chatID int64, admins, allAdmins db.IDList) error
	}

	// Admins caches chat administrators for a short TTL and mirrors them to storage.
	Admins struct {
		source AdminSource
		store  AdminStore
		cache  *expirable.LRU[int64, []bot.ChatMember]
		group  singleflight.Group
	}
)

func NewAdmins(source AdminSource, store AdminStore, size int, ttl time.Duration) *Admins {
	return &Admins{
		source: source,
		store:  store,
		cache:  expirable.NewLRU[int64, []bot.ChatMember](size, nil, ttl),
	}
}

func (a *Admins) List(ctx context.Context, chatID int64) ([]bot.ChatMember, error) {
	if members, ok := a.cache.Get(chatID); ok {
		return members, nil
	}
	res, err, _ := a.group.Do(strconv.FormatInt(chatID, 10), func() (interface{}, error) {
		return a.refresh(ctx, chatID)
	})
	if err != nil {
		return nil, err
	}
	return res.([]bot.ChatMember), nil
}

func (a *Admins) refresh(ctx context.Context, chatID int64) ([]bot.ChatMember, error) {
	members, err := a.source.GetChatAdministrators(ctx, chatID)
	if err != nil {
		return nil, err
	}
	a.cache.Add(chatID, members)

	if a.store != nil {
		managers, all := Split(members)
		if err := a.store.SetChatAdmins(ctx, chatID, managers, all); err != nil {
			log.WithField("object", "admins").WithField("chat_id", chatID).WithError(err).Warn("cant persist admins")
		}
	}
	return members, nil
}

// Member returns the cached administrator entry of the user, if any.
func (a *Admins) Member(ctx context.Context, chatID, userID int64) (*bot.ChatMember, error) {
	members, err := a.List(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].User != nil && members[i].User.ID == userID {
			return &members[i], nil
		}
	}
	return nil, nil
}

func (a *Admins) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := a.Member(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return IsAdmin(member), nil
}

func (a *Admins) Invalidate(chatID int64) {
	a.cache.Remove(chatID)
}

// Split separates managers from the full administrator list.
func Split(members []bot.ChatMember) (managers, all db.IDList) {
	managers, all = db.IDList{}, db.IDList{}
	for i := range members {
		m := &members[i]
		if m.User == nil || m.User.IsBot {
			continue
		}
		all = append(all, m.User.ID)
		if IsManager(m) {
			managers = append(managers, m.User.ID)
		}
	}
	return managers, all
}
