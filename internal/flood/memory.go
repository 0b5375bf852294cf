package flood

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 1024

type memoryWindow struct {
	count     int64
	ids       []int
	expiresAt time.Time
}

// memoryStore is used when no Redis address is configured.
type memoryStore struct {
	mu          sync.Mutex
	windows     map[string]*memoryWindow
	suppression map[string]time.Time
	ops         int
	now         func() time.Time
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{
		windows:     map[string]*memoryWindow{},
		suppression: map[string]time.Time{},
		now:         time.Now,
	}
}

func (s *memoryStore) Suppressed(_ context.Context, chatID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := suppressionKey(chatID, userID)
	until, ok := s.suppression[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.suppression, key)
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) Hit(_ context.Context, chatID, userID int64, messageID int, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	key := counterKey(chatID, userID)
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &memoryWindow{}
		s.windows[key] = w
	}
	w.count++
	w.ids = append(w.ids, messageID)
	w.expiresAt = now.Add(window)

	ids := make([]int, len(w.ids))
	copy(ids, w.ids)
	return Window{Count: w.count, MessageIDs: ids}, nil
}

func (s *memoryStore) Suppress(_ context.Context, chatID, userID int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := suppressionKey(chatID, userID)
	now := s.now()
	if until, ok := s.suppression[key]; ok && now.Before(until) {
		return false, nil
	}
	s.suppression[key] = now.Add(ttl)
	return true, nil
}

func (s *memoryStore) Release(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.suppression, suppressionKey(chatID, userID))
	return nil
}

func (s *memoryStore) Clear(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, counterKey(chatID, userID))
	return nil
}

func (s *memoryStore) sweep(now time.Time) {
	s.ops++
	if s.ops%sweepEvery != 0 {
		return
	}
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
		}
	}
	for key, until := range s.suppression {
		if !now.Before(until) {
			delete(s.suppression, key)
		}
	}
}
