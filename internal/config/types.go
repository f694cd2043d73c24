package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	// Environment is the deployment tag inbound envelopes must carry
	// (e.g. "production", "staging").
	Environment string `json:"environment"`

	Telegram    TelegramConfig    `json:"telegram"`
	Server      ServerConfig      `json:"server"`
	Logging     LoggingConfig     `json:"logging"`
	Suppression SuppressionConfig `json:"suppression"`
	Notifier    *NotifierConfig   `json:"notifier,omitempty"`
	Digest      *DigestConfig     `json:"digest,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the
	// TELEGRAM_BOT_TOKEN environment variable instead.
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// HTTPTimeout is a Go duration string (e.g. "10s").
	HTTPTimeout string `json:"http_timeout,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr,omitempty"` // default ":6666"
	// Timeouts are Go duration strings.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	// Pprof mounts the runtime profiler under /debug on the same listener.
	// Leave off in production unless the listener is private.
	Pprof bool `json:"pprof,omitempty"`
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

// SuppressionConfig selects the persistence driver for the per-event
// recipient sets.
//
// Example:
//
//	"suppression": { "driver": "file", "dir": "./data" }
type SuppressionConfig struct {
	Driver      string `json:"driver"`
	Dir         string `json:"dir,omitempty"`          // file driver
	Path        string `json:"path,omitempty"`         // sqlite driver
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifierConfig controls the async alert pipeline.
// If the whole section is omitted, defaults apply.
type NotifierConfig struct {
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "0 9 * * *"
}

// Validate rejects configs that cannot produce a working process.
// Tunables get defaults elsewhere; only hard requirements live here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Environment) == "" {
		return errors.New("environment is required")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.Suppression.Driver)) {
	case "", "file":
		if strings.TrimSpace(c.Suppression.Dir) == "" {
			return errors.New("suppression.dir is required for file driver")
		}
	case "sqlite", "sqlite3":
		if strings.TrimSpace(c.Suppression.Path) == "" {
			return errors.New("suppression.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unknown suppression.driver %q", c.Suppression.Driver)
	}

	// Fail early on malformed durations instead of at wiring time.
	for _, f := range []struct{ path, raw string }{
		{"telegram.http_timeout", c.Telegram.HTTPTimeout},
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"suppression.busy_timeout", c.Suppression.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.Notifier != nil {
		if _, err := ParseDurationField("notifier.send_timeout", c.Notifier.SendTimeout); err != nil {
			return err
		}
	}
	return nil
}
