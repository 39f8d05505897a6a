package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
	Sender    SenderConfig    `json:"sender"`
	Transport TransportConfig `json:"transport"`

	Storage   *StorageConfig  `json:"storage,omitempty"`
	Schedules []ScheduleEntry `json:"schedules,omitempty"`
	Filters   []FilterEntry   `json:"filters,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type ServerConfig struct {
	Addr string `json:"addr"` // default ":8080"
}

// SenderConfig controls the scheduling/throttling/retry core.
//
// Defaults (when fields are omitted/zero):
//   - queue_size: 300
//   - rate_capacity: 10 over rate_window: "5s"
//   - poll_interval: "100ms"
//   - max_attempts: 0 (retry forever)
type SenderConfig struct {
	QueueSize    int    `json:"queue_size,omitempty"`
	RateCapacity int    `json:"rate_capacity,omitempty"`
	RateWindow   string `json:"rate_window,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
}

// TransportConfig selects the delivery backend.
//
// Driver values: "sim" (default) or "telegram".
type TransportConfig struct {
	Driver   string          `json:"driver,omitempty"`
	Sim      *SimConfig      `json:"sim,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type SimConfig struct {
	MinLatency string  `json:"min_latency,omitempty"` // default "200ms"
	MaxLatency string  `json:"max_latency,omitempty"` // default "500ms"
	FailRate   float64 `json:"fail_rate,omitempty"`   // probability in [0,1]
}

type TelegramConfig struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// StorageConfig controls the optional outcome journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./sendrelay.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ScheduleEntry admits Body on every tick of the cron Spec.
type ScheduleEntry struct {
	Spec string `json:"spec"`
	Body string `json:"body"`
}

// FilterEntry seeds the ingress filter registry at startup.
// Filters added over the HTTP API are not persisted here.
type FilterEntry struct {
	Pattern string `json:"pattern"`
}
