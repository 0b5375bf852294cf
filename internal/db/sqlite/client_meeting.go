package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/db"
)

func (c *sqliteClient) GetMeetingHistory(ctx context.Context, chatID, userID int64) (*db.MeetingHistory, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `
		SELECT chat_id, user_id, message_id, first_joined_at, last_welcomed_at
		FROM meeting_history
		WHERE chat_id = ? AND user_id = ?
	`
	history := &db.MeetingHistory{}
	if err := c.db.GetContext(ctx, history, query, chatID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get meeting history", err)
	}
	return history, nil
}

// UpsertMeetingHistory keeps first_joined_at of an existing row.
func (c *sqliteClient) UpsertMeetingHistory(ctx context.Context, history *db.MeetingHistory) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now().UTC()
	if history.FirstJoinedAt.IsZero() {
		history.FirstJoinedAt = now
	}
	if history.LastWelcomedAt.IsZero() {
		history.LastWelcomedAt = now
	}
	query := `
		INSERT INTO meeting_history (chat_id, user_id, message_id, first_joined_at, last_welcomed_at)
		VALUES (:chat_id, :user_id, :message_id, :first_joined_at, :last_welcomed_at)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		message_id = excluded.message_id,
		last_welcomed_at = excluded.last_welcomed_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, history); err != nil {
		return storeErr("upsert meeting history", err)
	}
	return nil
}
