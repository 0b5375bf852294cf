// Package flood tracks per-user message rates inside a sliding window.
package flood

import (
	"context"
	"fmt"
	"time"
)

// Window is the state read back after recording one message.
type Window struct {
	Count      int64
	MessageIDs []int
}

// Store keeps counters, tracked message ids and suppression markers.
type Store interface {
	Suppressed(ctx context.Context, chatID, userID int64) (bool, error)
	// Hit atomically increments the counter, appends the message id and
	// refreshes both expirations.
	Hit(ctx context.Context, chatID, userID int64, messageID int, window time.Duration) (Window, error)
	// Suppress sets the marker only if absent and reports whether it did.
	Suppress(ctx context.Context, chatID, userID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, chatID, userID int64) error
	Clear(ctx context.Context, chatID, userID int64) error
}

func counterKey(chatID, userID int64) string {
	return fmt.Sprintf("flood:%d:%d", chatID, userID)
}

func messagesKey(chatID, userID int64) string {
	return fmt.Sprintf("flood_msgs:%d:%d", chatID, userID)
}

func suppressionKey(chatID, userID int64) string {
	return fmt.Sprintf("punished:%d:%d", chatID, userID)
}
