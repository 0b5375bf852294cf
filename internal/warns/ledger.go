// Package warns keeps per (chat, user) warning counters.
package warns

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type Storage interface {
	AddWarn(ctx context.Context, chatID, userID int64) (int, error)
	RemoveWarn(ctx context.Context, chatID, userID int64) (int, error)
	ResetWarns(ctx context.Context, chatID, userID int64) (bool, error)
	GetWarns(ctx context.Context, chatID, userID int64) (int, error)
}

type key struct {
	chatID, userID int64
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Ledger serializes operations per (chat, user) on top of durable storage.
type Ledger struct {
	storage Storage

	mu    sync.Mutex
	locks map[key]*keyLock
}

func NewLedger(storage Storage) *Ledger {
	return &Ledger{storage: storage, locks: map[key]*keyLock{}}
}

func (l *Ledger) lock(chatID, userID int64) func() {
	k := key{chatID, userID}

	l.mu.Lock()
	kl, ok := l.locks[k]
	if !ok {
		kl = &keyLock{}
		l.locks[k] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, k)
		}
		l.mu.Unlock()
	}
}

// Add returns the post-increment count.
func (l *Ledger) Add(ctx context.Context, chatID, userID int64) (int, error) {
	defer l.lock(chatID, userID)()
	return l.storage.AddWarn(ctx, chatID, userID)
}

// AddAt adds a warning and, once the count reaches threshold, resets it under
// the same lock. Exactly one caller per cycle sees reached. A failed reset is
// returned together with reached.
func (l *Ledger) AddAt(ctx context.Context, chatID, userID int64, threshold int) (count int, reached bool, err error) {
	defer l.lock(chatID, userID)()
	count, err = l.storage.AddWarn(ctx, chatID, userID)
	if err != nil {
		return 0, false, err
	}
	if threshold <= 0 || count < threshold {
		return count, false, nil
	}
	if _, err := l.storage.ResetWarns(ctx, chatID, userID); err != nil {
		return count, true, errors.WithMessage(err, "cant reset warns")
	}
	return count, true, nil
}

// Remove floors at zero.
func (l *Ledger) Remove(ctx context.Context, chatID, userID int64) (int, error) {
	defer l.lock(chatID, userID)()
	return l.storage.RemoveWarn(ctx, chatID, userID)
}

// Reset reports whether a record existed.
func (l *Ledger) Reset(ctx context.Context, chatID, userID int64) (bool, error) {
	defer l.lock(chatID, userID)()
	return l.storage.ResetWarns(ctx, chatID, userID)
}

func (l *Ledger) Count(ctx context.Context, chatID, userID int64) (int, error) {
	defer l.lock(chatID, userID)()
	return l.storage.GetWarns(ctx, chatID, userID)
}
