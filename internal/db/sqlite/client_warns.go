package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

func (c *sqliteClient) AddWarn(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_warns (chat_id, user_id, warns, updated_at)
		VALUES (?, ?, 1, datetime('now'))
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		warns = warns + 1,
		updated_at = excluded.updated_at
		RETURNING warns
	`
	var warns int
	if err := c.db.GetContext(ctx, &warns, query, chatID, userID); err != nil {
		return 0, storeErr("add warn", err)
	}
	return warns, nil
}

func (c *sqliteClient) RemoveWarn(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		UPDATE user_warns
		SET warns = MAX(warns - 1, 0), updated_at = datetime('now')
		WHERE chat_id = ? AND user_id = ?
		RETURNING warns
	`
	var warns int
	if err := c.db.GetContext(ctx, &warns, query, chatID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, storeErr("remove warn", err)
	}
	return warns, nil
}

func (c *sqliteClient) ResetWarns(ctx context.Context, chatID, userID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `UPDATE user_warns SET warns = 0, updated_at = datetime('now') WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return false, storeErr("reset warns", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("reset warns", err)
	}
	return n > 0, nil
}

func (c *sqliteClient) GetWarns(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var warns int
	err := c.db.GetContext(ctx, &warns, `SELECT warns FROM user_warns WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, storeErr("get warns", err)
	}
	return warns, nil
}
