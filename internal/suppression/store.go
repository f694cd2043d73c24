package suppression

import (
	"context"
	"errors"
	"strings"
	"time"

	"mailwatch/internal/event"
	logx "mailwatch/pkg/logx"
)

// Config configures the suppression store.
//
// Driver values:
//   - "file": one JSON array file per event type under Dir (default)
//   - "sqlite": single SQLite database at Path
type Config struct {
	Driver      string
	Dir         string        // file driver
	Path        string        // sqlite driver
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the relay and the digest.
//
// Mark is the only mutation: it checks membership, inserts, and persists as
// one step, serialized per event type. added reports whether the recipient
// was newly recorded; when a persistence error is returned alongside
// added=true, the in-memory insertion is kept (memory and disk may diverge
// until the next successful write).
type Store interface {
	Contains(ctx context.Context, t event.Type, email string) (bool, error)
	Mark(ctx context.Context, t event.Type, email string) (added bool, err error)
	Counts(ctx context.Context) (map[event.Type]int, error)
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown suppression driver: " + cfg.Driver)
	}
}
