package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sendrelay/internal/eventbus"
	logx "sendrelay/pkg/logx"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []sentRecord
	failures int // number of initial calls to fail
}

type sentRecord struct {
	body string
	at   time.Time
}

func (f *fakeTransport) Send(_ context.Context, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("transport down")
	}
	f.sent = append(f.sent, sentRecord{body: body, at: time.Now()})
	return nil
}

func (f *fakeTransport) snapshot() []sentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRecord(nil), f.sent...)
}

type dispatcherFixture struct {
	queue   *ScheduledQueue
	limiter *RateLimiter
	tr      *fakeTransport
	metrics *Metrics
	bus     eventbus.Bus
	disp    *Dispatcher
}

func newDispatcherFixture(t *testing.T, cfg Config, tr *fakeTransport) *dispatcherFixture {
	t.Helper()
	cfg = cfg.withDefaults()
	if cfg.PollInterval >= 100*time.Millisecond {
		cfg.PollInterval = 5 * time.Millisecond // keep tests fast
	}
	queue := NewScheduledQueue(cfg.QueueSize)
	limiter := NewRateLimiter(cfg.RateCapacity, cfg.RateWindow)
	metrics := NewMetrics(prometheus.NewRegistry(), queue)
	bus := eventbus.New()
	disp := NewDispatcher(cfg, queue, limiter, tr, metrics, bus, logx.Nop())
	return &dispatcherFixture{queue: queue, limiter: limiter, tr: tr, metrics: metrics, bus: bus, disp: disp}
}

func (fx *dispatcherFixture) run(t *testing.T) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = fx.disp.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
	return cancel
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatchInOrder(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	fx := newDispatcherFixture(t, Config{RateCapacity: 100, RateWindow: time.Second}, tr)

	base := time.Now()
	fx.queue.Put(Message{Body: "second", SendAt: base.Add(-1 * time.Second), QueuedAt: base})
	fx.queue.Put(Message{Body: "first", SendAt: base.Add(-2 * time.Second), QueuedAt: base})

	fx.run(t)

	waitFor(t, 3*time.Second, func() bool { return len(tr.snapshot()) == 2 })
	sent := tr.snapshot()
	if sent[0].body != "first" || sent[1].body != "second" {
		t.Fatalf("dispatch order = [%s, %s], want [first, second]", sent[0].body, sent[1].body)
	}
}

func TestEarlyItemWaitsForDueTime(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	fx := newDispatcherFixture(t, Config{RateCapacity: 100, RateWindow: time.Second}, tr)

	now := time.Now()
	due := now.Add(400 * time.Millisecond)
	fx.queue.Put(Message{Body: "later", SendAt: due, QueuedAt: now})

	fx.run(t)

	waitFor(t, 3*time.Second, func() bool { return len(tr.snapshot()) == 1 })
	if got := tr.snapshot()[0].at; got.Before(due) {
		t.Fatalf("sent at %v, before due time %v", got, due)
	}
}

func TestRetryAfterTransportFailure(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{failures: 1}
	fx := newDispatcherFixture(t, Config{RateCapacity: 100, RateWindow: time.Second}, tr)

	events, unsub := fx.bus.Subscribe(8)
	defer unsub()

	fx.queue.Put(Message{Body: "flaky", SendAt: time.Now().Add(-time.Second), QueuedAt: time.Now()})
	fx.run(t)

	// First retry is scheduled 0.75-1.25s out.
	waitFor(t, 5*time.Second, func() bool { return len(tr.snapshot()) == 1 })

	select {
	case e := <-events:
		if e.Type != EventSent {
			t.Fatalf("event type = %s, want %s", e.Type, EventSent)
		}
		ev := e.Data.(SendEvent)
		if ev.Attempt != 1 {
			t.Fatalf("attempt at success = %d, want 1", ev.Attempt)
		}
	case <-time.After(time.Second):
		t.Fatal("no sent event published")
	}
}

func TestRateLimitedCountsAndRetries(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	// One token, effectively no refill within the test window.
	fx := newDispatcherFixture(t, Config{RateCapacity: 1, RateWindow: time.Hour}, tr)

	now := time.Now()
	fx.queue.Put(Message{Body: "a", SendAt: now.Add(-2 * time.Second), QueuedAt: now})
	fx.queue.Put(Message{Body: "b", SendAt: now.Add(-1 * time.Second), QueuedAt: now})

	fx.run(t)

	waitFor(t, 3*time.Second, func() bool { return len(tr.snapshot()) == 1 })
	waitFor(t, 3*time.Second, func() bool {
		return testutil.ToFloat64(fx.metrics.RateLimited) >= 1
	})
	if sent := tr.snapshot(); sent[0].body != "a" {
		t.Fatalf("sent %q first, want %q", sent[0].body, "a")
	}
	// The rejected message stays queued for a future attempt.
	if fx.queue.Len() == 0 {
		t.Fatal("rate-limited message vanished from the queue")
	}
}

func TestDeadLetterAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{failures: 1 << 30} // always fail
	fx := newDispatcherFixture(t, Config{RateCapacity: 100, RateWindow: time.Second, MaxAttempts: 1}, tr)

	events, unsub := fx.bus.Subscribe(8)
	defer unsub()

	now := time.Now()
	fx.queue.Put(Message{Body: "doomed", SendAt: now.Add(-time.Second), QueuedAt: now})
	fx.run(t)

	waitFor(t, 3*time.Second, func() bool {
		return testutil.ToFloat64(fx.metrics.DeadLettered) == 1
	})
	if fx.queue.Len() != 0 {
		t.Fatalf("queue len = %d after dead-letter, want 0", fx.queue.Len())
	}

	select {
	case e := <-events:
		if e.Type != EventDead {
			t.Fatalf("event type = %s, want %s", e.Type, EventDead)
		}
	case <-time.After(time.Second):
		t.Fatal("no dead event published")
	}
}

func TestBurstThenReplenish(t *testing.T) {
	if testing.Short() {
		t.Skip("takes several seconds of wall clock")
	}
	t.Parallel()

	tr := &fakeTransport{}
	fx := newDispatcherFixture(t, Config{QueueSize: 100, RateCapacity: 10, RateWindow: 5 * time.Second}, tr)

	now := time.Now()
	for i := 0; i < 15; i++ {
		if !fx.queue.Accept(now, "burst") {
			t.Fatalf("Accept %d rejected", i)
		}
	}

	fx.run(t)

	// The first 10 go out on the initial burst budget.
	waitFor(t, 5*time.Second, func() bool { return len(tr.snapshot()) >= 10 })
	if testutil.ToFloat64(fx.metrics.RateLimited) < 1 {
		// The 11th message should hit the empty bucket at least once before
		// tokens replenish.
		waitFor(t, 5*time.Second, func() bool {
			return testutil.ToFloat64(fx.metrics.RateLimited) >= 1
		})
	}
	// Replenish at 2 tokens/sec lets the remaining 5 drain after backoff.
	waitFor(t, 20*time.Second, func() bool { return len(tr.snapshot()) == 15 })
}
