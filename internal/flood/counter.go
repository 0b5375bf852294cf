package flood

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type State int

const (
	StateIdle State = iota
	StateCounting
	StateSuppressed
)

func (s State) String() string {
	switch s {
	case StateCounting:
		return "counting"
	case StateSuppressed:
		return "suppressed"
	default:
		return "idle"
	}
}

type Limits struct {
	Messages int
	Window   time.Duration
}

// Verdict is the outcome of one observed message.
type Verdict struct {
	State State
	Count int64
	// Triggered is set for the single caller that moved the pair into suppression.
	Triggered  bool
	MessageIDs []int
}

type Counter struct {
	store Store
}

func NewCounter(store Store) *Counter {
	return &Counter{store: store}
}

// Observe records a message. Suppressed pairs are ignored until the marker expires.
func (c *Counter) Observe(ctx context.Context, chatID, userID int64, messageID int, limits Limits) (Verdict, error) {
	suppressed, err := c.store.Suppressed(ctx, chatID, userID)
	if err != nil {
		return Verdict{}, err
	}
	if suppressed {
		return Verdict{State: StateSuppressed}, nil
	}

	window, err := c.store.Hit(ctx, chatID, userID, messageID, limits.Window)
	if err != nil {
		return Verdict{}, err
	}
	if window.Count <= int64(limits.Messages) {
		return Verdict{State: StateCounting, Count: window.Count}, nil
	}

	acquired, err := c.store.Suppress(ctx, chatID, userID, limits.Window)
	if err != nil {
		return Verdict{}, err
	}
	if !acquired {
		return Verdict{State: StateSuppressed, Count: window.Count}, nil
	}
	return Verdict{
		State:      StateSuppressed,
		Count:      window.Count,
		Triggered:  true,
		MessageIDs: window.MessageIDs,
	}, nil
}

// Clear resets the window after the punishment for a trigger was issued.
func (c *Counter) Clear(ctx context.Context, chatID, userID int64) error {
	return errors.WithMessage(c.store.Clear(ctx, chatID, userID), "clear flood window")
}

// Release drops the suppression marker, returning the pair to Idle.
func (c *Counter) Release(ctx context.Context, chatID, userID int64) error {
	return c.store.Release(ctx, chatID, userID)
}
