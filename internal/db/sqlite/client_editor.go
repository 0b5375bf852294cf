package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/db"
)

const editorSessionColumns = `id, user_id, chat_id, page, state_json, message_id, created_at, updated_at`

func (c *sqliteClient) GetEditorSession(ctx context.Context, userID, chatID int64) (*db.EditorSession, error) {
	return c.getEditorSession(ctx, `SELECT `+editorSessionColumns+` FROM editor_sessions WHERE user_id = ? AND chat_id = ?`, userID, chatID)
}

func (c *sqliteClient) GetEditorSessionByID(ctx context.Context, id int64) (*db.EditorSession, error) {
	return c.getEditorSession(ctx, `SELECT `+editorSessionColumns+` FROM editor_sessions WHERE id = ?`, id)
}

// GetLatestEditorSession is used to route free-text replies to the session awaiting input.
func (c *sqliteClient) GetLatestEditorSession(ctx context.Context, userID int64) (*db.EditorSession, error) {
	return c.getEditorSession(ctx, `SELECT `+editorSessionColumns+` FROM editor_sessions WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1`, userID)
}

func (c *sqliteClient) getEditorSession(ctx context.Context, query string, args ...any) (*db.EditorSession, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	session := &db.EditorSession{}
	if err := c.db.QueryRowxContext(ctx, query, args...).StructScan(session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get editor session", err)
	}
	return session, nil
}

// SaveEditorSession inserts or replaces the single session of a (user, chat) pair.
func (c *sqliteClient) SaveEditorSession(ctx context.Context, session *db.EditorSession) (*db.EditorSession, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := `
		INSERT INTO editor_sessions (user_id, chat_id, page, state_json, message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
		page = excluded.page,
		state_json = excluded.state_json,
		message_id = excluded.message_id,
		updated_at = excluded.updated_at
		RETURNING id
	`
	var id int64
	err := c.db.GetContext(ctx, &id, query,
		session.UserID,
		session.ChatID,
		session.Page,
		session.StateJSON,
		session.MessageID,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return nil, storeErr("save editor session", err)
	}
	session.ID = id
	return session, nil
}

func (c *sqliteClient) DeleteEditorSession(ctx context.Context, id int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM editor_sessions WHERE id = ?`, id); err != nil {
		return storeErr("delete editor session", err)
	}
	return nil
}

func (c *sqliteClient) ListExpiredEditorSessions(ctx context.Context, before time.Time) ([]*db.EditorSession, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var sessions []*db.EditorSession
	query := `SELECT ` + editorSessionColumns + ` FROM editor_sessions WHERE updated_at < ? ORDER BY id`
	if err := c.db.SelectContext(ctx, &sessions, query, before.UTC()); err != nil {
		return nil, storeErr("list expired editor sessions", err)
	}
	return sessions, nil
}
