// Package httpapi exposes the ingress API: message admission, filter CRUD,
// metrics exposition, and a liveness probe.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sendrelay/internal/filter"
	logx "sendrelay/pkg/logx"
)

type Config struct {
	Addr string // default ":8080"
}

// Acceptor is the admission boundary; satisfied by sender.ScheduledQueue.
type Acceptor interface {
	Accept(now time.Time, body string) bool
}

type Server struct {
	srv     *http.Server
	queue   Acceptor
	filters *filter.Registry
	log     logx.Logger
}

func New(cfg Config, queue Acceptor, filters *filter.Registry, gatherer prometheus.Gatherer, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	s := &Server{queue: queue, filters: filters, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/send", s.handleSend)
	r.Route("/filters", func(r chi.Router) {
		r.Get("/", s.handleListFilters)
		r.Post("/", s.handleAddFilter)
		r.Get("/{id}", s.handleGetFilter)
		r.Delete("/{id}", s.handleDeleteFilter)
	})

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in the background. Listen errors other than a clean
// shutdown are logged; the process keeps running without its API.
func (s *Server) Start() {
	go func() {
		s.log.Info("http api listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http api server failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("http api shutdown", logx.Err(err))
	}
}
