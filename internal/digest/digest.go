package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mailwatch/internal/event"
	"mailwatch/internal/suppression"
	"mailwatch/internal/transport"
	logx "mailwatch/pkg/logx"
)

type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron spec or @-descriptor
}

// Service posts a periodic snapshot of suppression set sizes to the
// operator chat. It reports current state only, no history.
type Service struct {
	log     logx.Logger
	cfg     Config
	store   suppression.Store
	adapter transport.Adapter
	target  transport.ChatTarget

	c *cron.Cron
}

func New(cfg Config, store suppression.Store, adapter transport.Adapter, target transport.ChatTarget, log logx.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 9 * * *"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, cfg: cfg, store: store, adapter: adapter, target: target}
}

func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.c = c
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Schedule))
	return nil
}

func (s *Service) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
}

func (s *Service) run(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	counts, err := s.store.Counts(cctx)
	if err != nil {
		s.log.Warn("digest counts failed", logx.Err(err))
		return
	}

	if _, err := s.adapter.SendText(cctx, s.target, FormatCounts(counts), &transport.SendOptions{DisablePreview: true}); err != nil {
		s.log.Warn("digest send failed", logx.Err(err))
	}
}

// FormatCounts renders the summary in the stable taxonomy order.
func FormatCounts(counts map[event.Type]int) string {
	var b strings.Builder
	b.WriteString("📊 Suppression summary")
	total := 0
	for _, t := range event.NotifiedTypes() {
		n := counts[t]
		total += n
		fmt.Fprintf(&b, "\n- %s: %d", t, n)
	}
	fmt.Fprintf(&b, "\nTotal recipients: %d", total)
	return b.String()
}
