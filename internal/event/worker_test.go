package event

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

type senderStub struct {
	mu   sync.Mutex
	sent []bot.OutgoingMessage
	ch   chan struct{}
}

func (s *senderStub) SendMessage(_ context.Context, msg bot.OutgoingMessage) (*bot.Message, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.ch <- struct{}{}
	return &bot.Message{MessageID: 1}, nil
}

func TestJournalPostsModerationEvents(t *testing.T) {
	t.Parallel()

	bus := NewBus(10)
	worker := NewWorker(bus)
	sender := &senderStub{ch: make(chan struct{}, 1)}
	NewJournal(sender, -500).Subscribe(worker)

	ctx := context.Background()
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(ctx) })

	bus.Enqueue(NewModeration(Moderation{
		ChatID: -100, ChatTitle: "Waffles <3", UserID: 7, UserName: "Ann",
		Action: "mute", Reason: "flood",
	}))

	select {
	case <-sender.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("journal entry not posted")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	msg := sender.sent[0]
	if msg.ChatID != -500 || !msg.HTML {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !strings.Contains(msg.Text, "#mute") || !strings.Contains(msg.Text, "Waffles &lt;3") || !strings.Contains(msg.Text, "flood") {
		t.Fatalf("unexpected text: %q", msg.Text)
	}
}

func TestWorkerRequeuesUnprocessedAndSkipsExpired(t *testing.T) {
	t.Parallel()

	bus := NewBus(10)
	worker := NewWorker(bus)

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	worker.Subscribe("retry", func(_ context.Context, e Queueable) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 3 {
			e.Process()
			close(done)
		}
	})
	worker.Subscribe("expired", func(context.Context, Queueable) {
		t.Errorf("expired event dispatched")
	})

	ctx := context.Background()
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(ctx) })

	bus.Enqueue(CreateBase("expired", time.Now().Add(-time.Second)))
	bus.Enqueue(CreateBase("retry", time.Now().Add(time.Minute)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("event was not retried")
	}
}

func TestWorkerRecoversSubscriberPanic(t *testing.T) {
	t.Parallel()

	bus := NewBus(10)
	worker := NewWorker(bus)
	done := make(chan struct{})
	worker.Subscribe("panics", func(context.Context, Queueable) { panic("boom") })
	worker.Subscribe("ok", func(_ context.Context, e Queueable) {
		e.Process()
		close(done)
	})

	ctx := context.Background()
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(ctx) })

	bus.Enqueue(CreateBase("panics", time.Now().Add(time.Minute)))
	bus.Enqueue(CreateBase("ok", time.Now().Add(time.Minute)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker stopped after panic")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	t.Parallel()

	bus := NewBus(1)
	if !bus.Enqueue(CreateBase("a", time.Now().Add(time.Minute))) {
		t.Fatalf("first enqueue failed")
	}
	if bus.Enqueue(CreateBase("b", time.Now().Add(time.Minute))) {
		t.Fatalf("enqueue into full bus succeeded")
	}
}
