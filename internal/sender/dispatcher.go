package sender

import (
	"context"
	"runtime/debug"
	"time"

	"sendrelay/internal/eventbus"
	"sendrelay/internal/transport"
	logx "sendrelay/pkg/logx"
)

// Config controls the queue, the rate budget, and the dispatch loop.
//
// Defaults (when fields are omitted/zero):
//   - queue_size: 300
//   - rate_capacity: 10 tokens over rate_window: 5s
//   - poll_interval: 100ms
//   - max_attempts: 0 (retry forever)
type Config struct {
	QueueSize    int
	RateCapacity int
	RateWindow   time.Duration
	PollInterval time.Duration

	// MaxAttempts bounds retries: after this many failed attempts the
	// message is dead-lettered instead of re-enqueued. 0 retries forever.
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 300
	}
	if c.RateCapacity <= 0 {
		c.RateCapacity = 10
	}
	if c.RateWindow <= 0 {
		c.RateWindow = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	return c
}

// Dispatcher drains the queue on one dedicated worker: it waits out early
// items, consults the rate limiter, invokes the transport, and re-enqueues
// failures with backoff. The limiter is touched only from this worker, which
// is what makes the check-then-deduct split in RateLimiter safe.
type Dispatcher struct {
	queue   *ScheduledQueue
	limiter *RateLimiter
	tr      transport.Transport
	metrics *Metrics
	bus     eventbus.Bus
	log     logx.Logger

	poll        time.Duration
	maxAttempts int
}

func NewDispatcher(cfg Config, queue *ScheduledQueue, limiter *RateLimiter, tr transport.Transport, metrics *Metrics, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		queue:       queue,
		limiter:     limiter,
		tr:          tr,
		metrics:     metrics,
		bus:         bus,
		log:         log,
		poll:        cfg.PollInterval,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Run executes the dispatch loop until ctx is cancelled. A fixed sleep runs
// after every iteration regardless of branch, bounding busy-polling of items
// whose send time has not arrived yet.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.step(ctx)

		t := time.NewTimer(d.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// step runs one loop iteration. Panics are contained here: the dispatcher
// never terminates on a processing error.
func (d *Dispatcher) step(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in dispatch loop",
				logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()

	item, err := d.queue.Get(ctx)
	if err != nil {
		return
	}
	now := time.Now()
	d.log.Debug("dequeued message",
		logx.String("msg", item.String()),
		logx.Duration("since_queued", now.Sub(item.QueuedAt)))

	if item.SendAt.After(now) {
		// Too early; push back untouched (no attempt bump).
		d.queue.Put(item)
		return
	}
	d.trySend(ctx, item, now)
}

func (d *Dispatcher) trySend(ctx context.Context, item Message, now time.Time) {
	if !d.limiter.Allowed(now) {
		d.metrics.RateLimited.Inc()
		d.log.Debug("rate limited", logx.String("msg", item.String()))
		d.postpone(item)
		return
	}
	d.limiter.Take()

	start := time.Now()
	err := d.tr.Send(ctx, item.Body)
	took := time.Since(start)
	if err != nil {
		d.log.Info("send failed", logx.String("msg", item.String()), logx.Err(err))
		d.postpone(item)
		return
	}

	lag := time.Since(item.QueuedAt)
	d.metrics.SendSeconds.Observe(took.Seconds())
	d.metrics.LagSeconds.Observe(lag.Seconds())
	d.metrics.Attempts.Observe(float64(item.Attempt))
	d.log.Info("sent message",
		logx.String("msg", item.String()),
		logx.Duration("took", took),
		logx.Duration("lag", lag))
	d.publish(EventSent, SendEvent{Body: item.Body, Attempt: item.Attempt, Lag: lag, At: time.Now()})
}

// postpone schedules the next attempt, or dead-letters the message when the
// attempt budget is spent.
func (d *Dispatcher) postpone(item Message) {
	if d.maxAttempts > 0 && item.Attempt+1 >= d.maxAttempts {
		d.metrics.DeadLettered.Inc()
		d.log.Warn("dead-lettered message",
			logx.String("msg", item.String()), logx.Int("attempts", item.Attempt+1))
		d.publish(EventDead, SendEvent{Body: item.Body, Attempt: item.Attempt, Reason: "max attempts exhausted", At: time.Now()})
		return
	}
	next := item.NextAttempt(retryDelay(item.Attempt))
	d.queue.Put(next)
	d.log.Debug("postponed message", logx.String("msg", next.String()))
}

func (d *Dispatcher) publish(typ string, ev SendEvent) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
