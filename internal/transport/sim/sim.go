// Package sim is a transport that delivers nowhere: it sleeps for a
// realistic latency and optionally fails at a configured rate. Useful for
// load-testing the scheduling core without a real downstream.
package sim

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	logx "sendrelay/pkg/logx"
)

var ErrSimulatedFailure = errors.New("simulated send failure")

type Config struct {
	MinLatency time.Duration // default 200ms
	MaxLatency time.Duration // default 500ms
	FailRate   float64       // probability in [0,1] that a send fails
}

type Transport struct {
	min, max time.Duration
	failRate float64
	log      logx.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg Config, log logx.Logger) *Transport {
	if cfg.MinLatency <= 0 {
		cfg.MinLatency = 200 * time.Millisecond
	}
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency + 300*time.Millisecond
	}
	if cfg.FailRate < 0 {
		cfg.FailRate = 0
	}
	if cfg.FailRate > 1 {
		cfg.FailRate = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Transport{
		min:      cfg.MinLatency,
		max:      cfg.MaxLatency,
		failRate: cfg.FailRate,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *Transport) Send(ctx context.Context, body string) error {
	t.mu.Lock()
	d := t.min + time.Duration(t.rng.Float64()*float64(t.max-t.min))
	fail := t.failRate > 0 && t.rng.Float64() < t.failRate
	t.mu.Unlock()

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	if fail {
		return ErrSimulatedFailure
	}
	t.log.Trace("simulated send", logx.Duration("latency", d), logx.Int("len", len(body)))
	return nil
}
