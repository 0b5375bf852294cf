package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/db"
)

func (c *sqliteClient) GetFeatureSettings(ctx context.Context, chatID int64, feature db.Feature, category db.Category) (*db.FeatureSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `
		SELECT chat_id, feature, category, payload, updated_at
		FROM chat_settings
		WHERE chat_id = ? AND feature = ? AND category = ?
	`
	res := &db.FeatureSettings{}
	if err := c.db.GetContext(ctx, res, query, chatID, string(feature), string(category)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get feature settings", err)
	}
	return res, nil
}

// UpdateFeatureSettings runs mutate over the stored payload ("" when absent)
// and persists the result within one transaction.
func (c *sqliteClient) UpdateFeatureSettings(ctx context.Context, chatID int64, feature db.Feature, category db.Category, mutate func(payload string) (string, error)) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", storeErr("begin settings tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT payload FROM chat_settings WHERE chat_id = ? AND feature = ? AND category = ?`, chatID, string(feature), string(category))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", storeErr("read feature settings", err)
	}

	next, err := mutate(current)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO chat_settings (chat_id, feature, category, payload, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(chat_id, feature, category) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, chatID, string(feature), string(category), next); err != nil {
		return "", storeErr("write feature settings", err)
	}
	if err := tx.Commit(); err != nil {
		return "", storeErr("commit feature settings", err)
	}
	return next, nil
}

func (c *sqliteClient) ListFeatureSettings(ctx context.Context, feature db.Feature) ([]*db.FeatureSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var res []*db.FeatureSettings
	query := `SELECT chat_id, feature, category, payload, updated_at FROM chat_settings WHERE feature = ?`
	if err := c.db.SelectContext(ctx, &res, query, string(feature)); err != nil {
		return nil, storeErr("list feature settings", err)
	}
	return res, nil
}
