package flood

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *redisStore {
	return &redisStore{client: client}
}

func (s *redisStore) Suppressed(ctx context.Context, chatID, userID int64) (bool, error) {
	n, err := s.client.Exists(ctx, suppressionKey(chatID, userID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check suppression")
	}
	return n > 0, nil
}

func (s *redisStore) Hit(ctx context.Context, chatID, userID int64, messageID int, window time.Duration) (Window, error) {
	counter, messages := counterKey(chatID, userID), messagesKey(chatID, userID)

	var (
		count *redis.IntCmd
		ids   *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, counter)
		pipe.Expire(ctx, counter, window)
		pipe.RPush(ctx, messages, messageID)
		pipe.Expire(ctx, messages, window)
		ids = pipe.LRange(ctx, messages, 0, -1)
		return nil
	})
	if err != nil {
		return Window{}, errors.Wrap(err, "record flood hit")
	}

	res := Window{Count: count.Val()}
	for _, raw := range ids.Val() {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		res.MessageIDs = append(res.MessageIDs, id)
	}
	return res, nil
}

func (s *redisStore) Suppress(ctx context.Context, chatID, userID int64, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, suppressionKey(chatID, userID), 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "set suppression")
	}
	return ok, nil
}

func (s *redisStore) Release(ctx context.Context, chatID, userID int64) error {
	return errors.Wrap(s.client.Del(ctx, suppressionKey(chatID, userID)).Err(), "release suppression")
}

func (s *redisStore) Clear(ctx context.Context, chatID, userID int64) error {
	return errors.Wrap(s.client.Del(ctx, counterKey(chatID, userID), messagesKey(chatID, userID)).Err(), "clear flood window")
}
