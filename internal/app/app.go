// Package app wires the process together: config, logging, storage, the
// sender core, the schedule service, and the HTTP API.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sendrelay/internal/config"
	"sendrelay/internal/eventbus"
	"sendrelay/internal/filter"
	"sendrelay/internal/httpapi"
	rtsup "sendrelay/internal/runtime/supervisor"
	"sendrelay/internal/schedule"
	"sendrelay/internal/sender"
	"sendrelay/internal/storage"
	logx "sendrelay/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	bus     eventbus.Bus
	store   storage.Store
	filters *filter.Registry

	send  *sender.Service
	sched *schedule.Service
	api   *httpapi.Server

	sup *rtsup.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	// Ingress filters seeded from config; runtime CRUD goes over the API.
	filters := filter.NewRegistry()
	for i, fe := range cfg.Filters {
		if _, err := filters.Add(fe.Pattern); err != nil {
			return nil, fmt.Errorf("filters[%d] (%q): %w", i, fe.Pattern, err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tr, err := buildTransport(cfg.Transport, log)
	if err != nil {
		return nil, err
	}

	sendCfg, err := mapSenderConfig(cfg.Sender)
	if err != nil {
		return nil, err
	}
	send := sender.NewService(sendCfg, tr, reg, bus, log.With(logx.String("comp", "sender")))

	sched, err := schedule.New(mapScheduleConfig(cfg), send.Queue(), log.With(logx.String("comp", "schedule")))
	if err != nil {
		return nil, err
	}

	api := httpapi.New(httpapi.Config{Addr: cfg.Server.Addr}, send.Queue(), filters, reg,
		log.With(logx.String("comp", "http")))

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		bus:     bus,
		store:   store,
		filters: filters,
		send:    send,
		sched:   sched,
		api:     api,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.sup = rtsup.New(ctx, a.log)

	a.sup.GoRestart("config.watch", a.cfgm.Watch)
	a.sup.Go("config.apply", a.applyLoop)
	if a.store != nil {
		a.sup.Go("journal", a.journalLoop)
	}
	a.sup.Go("sd.watchdog", a.watchdogLoop)

	a.send.Start(a.sup.Context())
	a.sched.Start()
	a.api.Start()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.api.Stop(ctx)
	a.sched.Stop(ctx)
	a.send.Stop(ctx)

	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

// applyLoop re-applies the hot-reloadable config subset (logging) whenever
// the file changes on disk. Structural settings (queue size, transport,
// schedules) require a restart.
func (a *App) applyLoop(ctx context.Context) error {
	ch := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return nil
			}
			a.logs.Apply(mapLoggingConfig(cfg.Logging))
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
		}
	}
}

// journalLoop persists sender outcomes off the dispatch path.
func (a *App) journalLoop(ctx context.Context) error {
	ch, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			ev, ok := e.Data.(sender.SendEvent)
			if !ok {
				continue
			}
			cctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
			switch e.Type {
			case sender.EventSent:
				if err := a.store.AppendSent(cctx, storage.SentEntry{
					At: e.Time, Body: ev.Body, Attempt: ev.Attempt, LagMS: ev.Lag.Milliseconds(),
				}); err != nil {
					a.log.Debug("journal sent write failed", logx.Err(err))
				}
			case sender.EventDead:
				if err := a.store.AppendDead(cctx, storage.DeadEntry{
					At: e.Time, Body: ev.Body, Attempt: ev.Attempt, Reason: ev.Reason,
				}); err != nil {
					a.log.Debug("journal dead write failed", logx.Err(err))
				}
			}
			cancel()
		}
	}
}

// watchdogLoop keeps systemd's watchdog fed when the unit enables one.
// No-op outside systemd.
func (a *App) watchdogLoop(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
