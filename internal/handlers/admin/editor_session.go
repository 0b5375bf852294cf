package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
)

func loadState(session *db.EditorSession) (editorState, error) {
	state := editorState{}
	if err := json.Unmarshal([]byte(session.StateJSON), &state); err != nil {
		return state, errors.WithMessage(err, "cant decode editor state")
	}
	return state, nil
}

func (e *Editor) saveState(ctx context.Context, session *db.EditorSession, state editorState) error {
	session.Page = state.pageName()
	session.StateJSON = mustJSON(state)
	saved, err := e.store.SaveEditorSession(ctx, session)
	if err != nil {
		return err
	}
	session.ID = saved.ID
	return nil
}

func mustJSON(state editorState) string {
	data, err := json.Marshal(state)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// isManager re-checks rights on every step; rights may be revoked mid-session.
func (e *Editor) isManager(ctx context.Context, chatID, userID int64) bool {
	member, err := e.admins.Member(ctx, chatID, userID)
	if err != nil {
		e.getLogEntry().WithError(err).WithField("chat_id", chatID).Warn("cant check manager rights")
		return false
	}
	return permissions.IsManager(member)
}

// openSession replaces any session of the pair and shows the home page.
// messageID 0 sends a new panel message.
func (e *Editor) openSession(ctx context.Context, userID, chatID int64, messageID int) error {
	existing, err := e.store.GetEditorSession(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if existing != nil && existing.MessageID != 0 && existing.MessageID != messageID {
		bot.TryDelete(ctx, e.gateway, userID, existing.MessageID)
	}

	state := editorState{Page: pageHome}
	if chat, err := e.store.GetChat(ctx, chatID); err == nil && chat != nil {
		state.ChatTitle = chat.Title
	}
	session := &db.EditorSession{
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
	}
	return e.show(ctx, session, state)
}

func (e *Editor) closeSession(ctx context.Context, session *db.EditorSession) error {
	if session.MessageID != 0 {
		bot.TryDelete(ctx, e.gateway, session.UserID, session.MessageID)
	}
	return e.store.DeleteEditorSession(ctx, session.ID)
}

func (e *Editor) startCleanup(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.cleanupExpired(ctx)
			}
		}
	}()
}

func (e *Editor) cleanupExpired(ctx context.Context) {
	sessions, err := e.store.ListExpiredEditorSessions(ctx, e.now().Add(-sessionTTL))
	if err != nil {
		e.getLogEntry().WithError(err).Error("cant load expired editor sessions")
		return
	}
	for _, session := range sessions {
		if err := e.closeSession(ctx, session); err != nil {
			e.getLogEntry().WithError(err).WithField("session_id", session.ID).Warn("cant close expired session")
		}
	}
}
