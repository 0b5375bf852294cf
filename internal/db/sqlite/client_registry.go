package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/db"
)

func (c *sqliteClient) UpsertChat(ctx context.Context, chat *db.Chat) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (id, title, members_count, work, admins, all_admins, updated_at)
		VALUES (:id, :title, :members_count, :work, :admins, :all_admins, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		members_count = excluded.members_count,
		work = excluded.work,
		admins = excluded.admins,
		all_admins = excluded.all_admins,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, chat); err != nil {
		return storeErr("upsert chat", err)
	}
	return nil
}

func (c *sqliteClient) GetChat(ctx context.Context, chatID int64) (*db.Chat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	chat := &db.Chat{}
	query := `SELECT id, title, members_count, work, admins, all_admins, updated_at FROM chats WHERE id = ?`
	if err := c.db.GetContext(ctx, chat, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get chat", err)
	}
	return chat, nil
}

// UpdateChatTitle reports whether the stored title changed.
func (c *sqliteClient) UpdateChatTitle(ctx context.Context, chatID int64, title string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (id, title, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		updated_at = excluded.updated_at
		WHERE chats.title <> excluded.title
	`
	res, err := c.db.ExecContext(ctx, query, chatID, title)
	if err != nil {
		return false, storeErr("update chat title", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("update chat title", err)
	}
	return n > 0, nil
}

func (c *sqliteClient) SetChatAdmins(ctx context.Context, chatID int64, admins, allAdmins db.IDList) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (id, admins, all_admins, updated_at) VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
		admins = excluded.admins,
		all_admins = excluded.all_admins,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, chatID, admins, allAdmins); err != nil {
		return storeErr("set chat admins", err)
	}
	return nil
}

func (c *sqliteClient) SetChatWork(ctx context.Context, chatID int64, work bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (id, work, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
		work = excluded.work,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, chatID, work); err != nil {
		return storeErr("set chat work", err)
	}
	return nil
}

// ListChatsByAdmin returns working chats where the user holds a full admin slot.
func (c *sqliteClient) ListChatsByAdmin(ctx context.Context, userID int64) ([]*db.Chat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `
		SELECT c.id, c.title, c.members_count, c.work, c.admins, c.all_admins, c.updated_at
		FROM chats c, json_each(c.admins) a
		WHERE c.work = 1 AND a.value = ?
		ORDER BY c.title
	`
	var chats []*db.Chat
	if err := c.db.SelectContext(ctx, &chats, query, userID); err != nil {
		return nil, storeErr("list chats by admin", err)
	}
	return chats, nil
}

func (c *sqliteClient) UpsertUser(ctx context.Context, user *db.User) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users (id, username, first_name, last_name, updated_at)
		VALUES (:id, :username, :first_name, :last_name, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, user); err != nil {
		return storeErr("upsert user", err)
	}
	return nil
}

func (c *sqliteClient) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	user := &db.User{}
	query := `SELECT id, username, first_name, last_name, updated_at FROM users WHERE id = ?`
	if err := c.db.GetContext(ctx, user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get user", err)
	}
	return user, nil
}

func (c *sqliteClient) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, nil
	}
	user := &db.User{}
	query := `
		SELECT id, username, first_name, last_name, updated_at
		FROM users
		WHERE username = ? COLLATE NOCASE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	if err := c.db.GetContext(ctx, user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get user by username", err)
	}
	return user, nil
}
