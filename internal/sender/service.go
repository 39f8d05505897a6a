package sender

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sendrelay/internal/eventbus"
	rtsup "sendrelay/internal/runtime/supervisor"
	"sendrelay/internal/transport"
	logx "sendrelay/pkg/logx"
)

// Service owns the dispatch loop lifecycle around the queue/limiter core.
// Start and Stop are idempotent.
type Service struct {
	mu sync.Mutex

	cfg   Config
	queue *ScheduledQueue
	disp  *Dispatcher
	log   logx.Logger

	sup *rtsup.Supervisor
}

func NewService(cfg Config, tr transport.Transport, reg prometheus.Registerer, bus eventbus.Bus, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	queue := NewScheduledQueue(cfg.QueueSize)
	limiter := NewRateLimiter(cfg.RateCapacity, cfg.RateWindow)
	metrics := NewMetrics(reg, queue)
	disp := NewDispatcher(cfg, queue, limiter, tr, metrics, bus, log)
	return &Service{cfg: cfg, queue: queue, disp: disp, log: log}
}

// Queue exposes the admission boundary for producers (HTTP API, schedules).
func (s *Service) Queue() *ScheduledQueue { return s.queue }

func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.sup = rtsup.New(ctx, s.log.With(logx.String("comp", "sender")))
	// The loop recovers per-iteration; GoRestart is the outer safety net.
	s.sup.GoRestart("dispatch", s.disp.Run)
	s.log.Info("sender started",
		logx.Int("queue_size", s.cfg.QueueSize),
		logx.Int("rate_capacity", s.cfg.RateCapacity),
		logx.Duration("rate_window", s.cfg.RateWindow),
		logx.Int("max_attempts", s.cfg.MaxAttempts))
}

func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return
	}

	start := time.Now()
	sup.Cancel()
	_ = sup.Wait(ctx)
	s.log.Info("sender stopped", logx.Duration("took", time.Since(start)))
}
