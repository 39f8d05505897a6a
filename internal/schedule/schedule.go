// Package schedule enqueues config-defined message bodies on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "sendrelay/pkg/logx"
)

// Entry is one recurring send: Body is admitted on every tick of Spec.
type Entry struct {
	Spec string
	Body string
}

type Config struct {
	Entries  []Entry
	Timezone string // IANA name; empty means local time
}

// Acceptor is the admission boundary; satisfied by sender.ScheduledQueue.
type Acceptor interface {
	Accept(now time.Time, body string) bool
}

type Service struct {
	mu      sync.Mutex
	c       *cron.Cron
	log     logx.Logger
	entries int
	running bool
}

func New(cfg Config, q Acceptor, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	opts := []cron.Option{
		cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)),
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("schedule timezone %q: %w", cfg.Timezone, err)
		}
		opts = append(opts, cron.WithLocation(loc))
	}
	c := cron.New(opts...)

	s := &Service{c: c, log: log, entries: len(cfg.Entries)}
	for i, e := range cfg.Entries {
		e := e
		idx := i
		if _, err := c.AddFunc(e.Spec, func() {
			if !q.Accept(time.Now(), e.Body) {
				log.Warn("scheduled send rejected; queue full",
					logx.Int("entry", idx), logx.String("spec", e.Spec))
				return
			}
			log.Debug("scheduled send enqueued",
				logx.Int("entry", idx), logx.String("spec", e.Spec))
		}); err != nil {
			return nil, fmt.Errorf("schedule entry %d (%q): %w", i, e.Spec, err)
		}
	}
	return s, nil
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.entries == 0 {
		return
	}
	s.c.Start()
	s.running = true
	s.log.Info("schedule started", logx.Int("entries", s.entries))
}

// Stop halts the cron runner and waits for in-flight ticks, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.c
	s.mu.Unlock()

	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("schedule stopped")
}
