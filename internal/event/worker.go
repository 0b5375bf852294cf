package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const profileInterval = 5 * time.Minute

type Worker struct {
	bus           *Bus
	mu            sync.RWMutex
	subscriptions map[string][]func(ctx context.Context, event Queueable)
	cancel        context.CancelFunc
	done          chan struct{}
	l             *log.Entry
}

func NewWorker(bus *Bus) *Worker {
	return &Worker{
		bus:           bus,
		subscriptions: map[string][]func(ctx context.Context, event Queueable){},
		l:             log.WithField("context", "event_worker"),
	}
}

func (w *Worker) Subscribe(eventType string, sub func(ctx context.Context, event Queueable)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscriptions[eventType] = append(w.subscriptions[eventType], sub)
}

func (w *Worker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.done = make(chan struct{})
	go w.run(ctx)
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	w.l.Trace("events runner go")

	profileTicker := time.NewTicker(profileInterval)
	defer profileTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.l.Info("shutting down event worker by cancelled context")
			return
		case <-profileTicker.C:
			if qlen := w.bus.Len(); qlen > 0 {
				w.l.Debugf("unprocessed queue length: %d", qlen)
			}
		case event := <-w.bus.q:
			w.dispatch(ctx, event)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, event Queueable) {
	if event.Expired() {
		return
	}

	w.mu.RLock()
	subscribers := w.subscriptions[event.Type()]
	w.mu.RUnlock()
	if len(subscribers) == 0 {
		w.l.WithField("type", event.Type()).Trace("no event subs, dropping")
		return
	}

	for _, sub := range subscribers {
		w.safeCall(ctx, sub, event)
		if event.IsDropped() {
			return
		}
	}
	if !event.IsProcessed() && !event.IsDropped() {
		w.bus.Enqueue(event)
	}
}

func (w *Worker) safeCall(ctx context.Context, sub func(context.Context, Queueable), event Queueable) {
	defer func() {
		if r := recover(); r != nil {
			w.l.WithField("type", event.Type()).Errorf("event subscriber panic: %v", r)
			event.Drop()
		}
	}()
	sub(ctx, event)
}
