package flood

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   Store
	advance func(time.Duration)
}

func stores(t *testing.T) map[string]harness {
	t.Helper()

	c := &clock{now: time.Unix(1_700_000_000, 0)}
	mem := NewMemoryStore()
	mem.now = c.Now

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]harness{
		"memory": {store: mem, advance: c.Advance},
		"redis":  {store: NewRedisStore(client), advance: mr.FastForward},
	}
}

var limits = Limits{Messages: 5, Window: 10 * time.Second}

func TestSixthMessageTriggersOnce(t *testing.T) {
	t.Parallel()

	for name, h := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counter := NewCounter(h.store)

			for i := 1; i <= 5; i++ {
				v, err := counter.Observe(ctx, -100, 7, i, limits)
				if err != nil {
					t.Fatalf("observe %d: %v", i, err)
				}
				if v.State != StateCounting || v.Count != int64(i) || v.Triggered {
					t.Fatalf("message %d: unexpected verdict %+v", i, v)
				}
			}

			v, err := counter.Observe(ctx, -100, 7, 6, limits)
			if err != nil {
				t.Fatalf("observe 6: %v", err)
			}
			if !v.Triggered || v.State != StateSuppressed {
				t.Fatalf("sixth message did not trigger: %+v", v)
			}
			if len(v.MessageIDs) != 6 || v.MessageIDs[0] != 1 || v.MessageIDs[5] != 6 {
				t.Fatalf("unexpected tracked ids: %v", v.MessageIDs)
			}
			if err := counter.Clear(ctx, -100, 7); err != nil {
				t.Fatalf("clear: %v", err)
			}

			v, _ = counter.Observe(ctx, -100, 7, 7, limits)
			if v.State != StateSuppressed || v.Triggered {
				t.Fatalf("suppressed message not ignored: %+v", v)
			}

			h.advance(11 * time.Second)
			v, _ = counter.Observe(ctx, -100, 7, 8, limits)
			if v.State != StateCounting || v.Count != 1 {
				t.Fatalf("counting did not restart at 1: %+v", v)
			}
		})
	}
}

func TestReleaseReturnsToIdle(t *testing.T) {
	t.Parallel()

	for name, h := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counter := NewCounter(h.store)
			for i := 1; i <= 6; i++ {
				_, _ = counter.Observe(ctx, -100, 8, i, limits)
			}
			_ = counter.Clear(ctx, -100, 8)
			if err := counter.Release(ctx, -100, 8); err != nil {
				t.Fatalf("release: %v", err)
			}
			v, _ := counter.Observe(ctx, -100, 8, 10, limits)
			if v.State != StateCounting || v.Count != 1 {
				t.Fatalf("unexpected verdict after release: %+v", v)
			}
		})
	}
}

func TestWindowExpiresWithoutTrigger(t *testing.T) {
	t.Parallel()

	for name, h := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counter := NewCounter(h.store)
			for i := 1; i <= 5; i++ {
				_, _ = counter.Observe(ctx, -100, 9, i, limits)
			}
			h.advance(11 * time.Second)
			v, _ := counter.Observe(ctx, -100, 9, 6, limits)
			if v.Count != 1 || v.Triggered {
				t.Fatalf("window did not expire: %+v", v)
			}
		})
	}
}

func TestUsersAreIndependent(t *testing.T) {
	t.Parallel()

	for name, h := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counter := NewCounter(h.store)
			for i := 1; i <= 6; i++ {
				_, _ = counter.Observe(ctx, -100, 1, i, limits)
			}
			v, _ := counter.Observe(ctx, -100, 2, 100, limits)
			if v.State != StateCounting || v.Count != 1 {
				t.Fatalf("other user affected: %+v", v)
			}
			v, _ = counter.Observe(ctx, -200, 1, 100, limits)
			if v.State != StateCounting || v.Count != 1 {
				t.Fatalf("other chat affected: %+v", v)
			}
		})
	}
}

func TestConcurrentBurstTriggersOnce(t *testing.T) {
	t.Parallel()

	for name, h := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counter := NewCounter(h.store)

			var (
				wg        sync.WaitGroup
				triggered atomic.Int32
			)
			for i := 1; i <= 30; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					v, err := counter.Observe(ctx, -100, 3, id, limits)
					if err != nil {
						t.Errorf("observe: %v", err)
						return
					}
					if v.Triggered {
						triggered.Add(1)
					}
				}(i)
			}
			wg.Wait()

			if got := triggered.Load(); got != 1 {
				t.Fatalf("triggered %d times, want 1", got)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if StateIdle.String() != "idle" || StateCounting.String() != "counting" || StateSuppressed.String() != "suppressed" {
		t.Fatalf("unexpected state names")
	}
}
