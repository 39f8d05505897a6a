package storage

import (
	"context"
	"errors"
	"strings"

	logx "sendrelay/pkg/logx"
)

// Store is the minimal persistence API used by the journal loop.
type Store interface {
	AppendSent(ctx context.Context, e SentEntry) error
	AppendDead(ctx context.Context, e DeadEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
