package event

import (
	"sync"
	"time"
)

type (
	Bus struct {
		q chan Queueable
	}

	Queueable interface {
		Process()
		IsProcessed() bool
		Drop()
		IsDropped() bool
		Expired() bool
		Type() string
	}

	Base struct {
		mu        sync.Mutex
		processed bool
		dropped   bool
		expireAt  time.Time
		eventType string
	}
)

func CreateBase(eventType string, expiresAt time.Time) *Base {
	return &Base{
		expireAt:  expiresAt,
		eventType: eventType,
	}
}

func (b *Base) Process() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = true
}

func (b *Base) IsProcessed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed
}

func (b *Base) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped = true
}

func (b *Base) IsDropped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Base) Expired() bool {
	return time.Until(b.expireAt) < 0
}

func (b *Base) Type() string {
	return b.eventType
}

func NewBus(size int) *Bus {
	return &Bus{q: make(chan Queueable, size)}
}

// Enqueue never blocks; events are dropped when the queue is full.
func (b *Bus) Enqueue(event Queueable) bool {
	select {
	case b.q <- event:
		return true
	default:
		return false
	}
}

func (b *Bus) Len() int {
	return len(b.q)
}
