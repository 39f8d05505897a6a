package app

import (
	"fmt"
	"strings"
	"time"

	"sendrelay/internal/config"
	"sendrelay/internal/schedule"
	"sendrelay/internal/sender"
	"sendrelay/internal/storage"
	"sendrelay/internal/transport"
	"sendrelay/internal/transport/sim"
	"sendrelay/internal/transport/telegram"
	logx "sendrelay/pkg/logx"
)

func mapLoggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func mapSenderConfig(c config.SenderConfig) (sender.Config, error) {
	window, err := config.ParseDurationOrDefault("sender.rate_window", c.RateWindow, 5*time.Second)
	if err != nil {
		return sender.Config{}, err
	}
	poll, err := config.ParseDurationOrDefault("sender.poll_interval", c.PollInterval, 100*time.Millisecond)
	if err != nil {
		return sender.Config{}, err
	}
	return sender.Config{
		QueueSize:    c.QueueSize,
		RateCapacity: c.RateCapacity,
		RateWindow:   window,
		PollInterval: poll,
		MaxAttempts:  c.MaxAttempts,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, true, nil
}

func mapScheduleConfig(cfg *config.Config) schedule.Config {
	entries := make([]schedule.Entry, 0, len(cfg.Schedules))
	for _, e := range cfg.Schedules {
		entries = append(entries, schedule.Entry{Spec: e.Spec, Body: e.Body})
	}
	return schedule.Config{Entries: entries}
}

func buildTransport(c config.TransportConfig, log logx.Logger) (transport.Transport, error) {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	switch driver {
	case "", "sim":
		simCfg := sim.Config{}
		if c.Sim != nil {
			minL, err := config.ParseDurationField("transport.sim.min_latency", c.Sim.MinLatency)
			if err != nil {
				return nil, err
			}
			maxL, err := config.ParseDurationField("transport.sim.max_latency", c.Sim.MaxLatency)
			if err != nil {
				return nil, err
			}
			simCfg = sim.Config{MinLatency: minL, MaxLatency: maxL, FailRate: c.Sim.FailRate}
		}
		return sim.New(simCfg, log.With(logx.String("comp", "transport.sim"))), nil

	case "telegram":
		if c.Telegram == nil {
			return nil, fmt.Errorf("transport.telegram section is required for driver %q", driver)
		}
		timeout, err := config.ParseDurationField("transport.telegram.timeout", c.Telegram.Timeout)
		if err != nil {
			return nil, err
		}
		return telegram.New(telegram.Config{
			Token:      c.Telegram.Token,
			ChatID:     c.Telegram.ChatID,
			RatePerSec: c.Telegram.RatePerSec,
			Timeout:    timeout,
		}, log.With(logx.String("comp", "transport.telegram")))

	default:
		return nil, fmt.Errorf("unknown transport driver: %q", driver)
	}
}
