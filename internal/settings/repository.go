// Package settings serves per-chat feature configuration from a TTL cache
// backed by durable storage.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/wafflebot/internal/db"
)

// Storage is the durable side of the settings store.
type Storage interface {
	GetFeatureSettings(ctx context.Context, chatID int64, feature db.Feature, category db.Category) (*db.FeatureSettings, error)
	UpdateFeatureSettings(ctx context.Context, chatID int64, feature db.Feature, category db.Category, mutate func(payload string) (string, error)) (string, error)
	ListFeatureSettings(ctx context.Context, feature db.Feature) ([]*db.FeatureSettings, error)
}

// Repository reads and writes one feature schema T.
type Repository[T any] struct {
	feature  db.Feature
	defaults func(category db.Category) T
	storage  Storage
	cache    Cache
	group    singleflight.Group
	logger   *log.Entry
}

func NewRepository[T any](feature db.Feature, defaults func(category db.Category) T, storage Storage, cache Cache) *Repository[T] {
	return &Repository[T]{
		feature:  feature,
		defaults: defaults,
		storage:  storage,
		cache:    cache,
		logger:   log.WithField("object", "settings").WithField("feature", string(feature)),
	}
}

func (r *Repository[T]) Feature() db.Feature {
	return r.feature
}

func (r *Repository[T]) key(chatID int64, category db.Category) string {
	return string(r.feature) + ":" + string(category) + ":" + strconv.FormatInt(chatID, 10)
}

// Get never fails: storage errors degrade to defaults.
func (r *Repository[T]) Get(ctx context.Context, chatID int64, category db.Category) T {
	key := r.key(chatID, category)

	raw, err := r.cache.Get(ctx, key)
	if err == nil {
		if value, err := r.decode(string(raw), category); err == nil {
			return value
		}
		r.logger.WithField("key", key).Warn("dropping undecodable cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.WithError(err).WithField("key", key).Warn("cache read failed, using storage")
	}

	res, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.load(ctx, chatID, category)
	})
	if err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("cant load settings, using defaults")
		return r.defaults(category)
	}
	value, err := r.decode(res.(string), category)
	if err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("cant decode settings, using defaults")
		return r.defaults(category)
	}
	return value
}

func (r *Repository[T]) load(ctx context.Context, chatID int64, category db.Category) (string, error) {
	stored, err := r.storage.GetFeatureSettings(ctx, chatID, r.feature, category)
	if err != nil {
		return "", err
	}
	payload := ""
	if stored != nil {
		payload = stored.Payload
	}
	value, err := r.decode(payload, category)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	r.setCache(ctx, r.key(chatID, category), encoded)
	return string(encoded), nil
}

// Save applies patch to the current snapshot, persists it, then refreshes the cache.
func (r *Repository[T]) Save(ctx context.Context, chatID int64, category db.Category, patch func(*T)) (T, error) {
	var saved T
	payload, err := r.storage.UpdateFeatureSettings(ctx, chatID, r.feature, category, func(current string) (string, error) {
		value, err := r.decode(current, category)
		if err != nil {
			return "", err
		}
		if patch != nil {
			patch(&value)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		saved = value
		return string(encoded), nil
	})
	if err != nil {
		return saved, fmt.Errorf("save %s settings: %w", r.feature, err)
	}
	r.setCache(ctx, r.key(chatID, category), []byte(payload))
	return saved, nil
}

// Preload warms the cache with every stored row of the feature.
func (r *Repository[T]) Preload(ctx context.Context) (int, error) {
	rows, err := r.storage.ListFeatureSettings(ctx, r.feature)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, row := range rows {
		value, err := r.decode(row.Payload, row.Category)
		if err != nil {
			r.logger.WithError(err).WithField("chat_id", row.ChatID).Warn("skipping undecodable row")
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		r.setCache(ctx, r.key(row.ChatID, row.Category), encoded)
		warmed++
	}
	return warmed, nil
}

func (r *Repository[T]) setCache(ctx context.Context, key string, value []byte) {
	if err := r.cache.Set(ctx, key, value); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// decode merges stored overrides over defaults.
func (r *Repository[T]) decode(payload string, category db.Category) (T, error) {
	value := r.defaults(category)
	if payload == "" {
		return value, nil
	}
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return value, errors.Wrap(err, "decode settings payload")
	}
	return value, nil
}
