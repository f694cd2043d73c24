package notifier

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mailwatch/internal/event"
	"mailwatch/internal/transport"
	logx "mailwatch/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type job struct {
	t   event.Type
	rec event.Record
}

type Config struct {
	Workers     int
	QueueSize   int
	RatePerSec  int
	SendTimeout time.Duration
}

// Service is the async alert pipeline: queue + worker pool + rate limit.
//
// There is deliberately no retry: by the time an alert is enqueued its
// recipient is already marked in the suppression store, so a failed send is
// logged and dropped (at-most-once delivery).
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter transport.Adapter
	target  transport.ChatTarget

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan job

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

func New(cfg Config, adapter transport.Adapter, target transport.ChatTarget, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, target: target, log: log}
	s.applyLocked(cfg)
	return s
}

// Apply updates tunable settings (currently the send rate) at runtime.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	// Queue and worker sizing are fixed at Start; only re-arm the limiter.
	s.cfg.RatePerSec = cfg.RatePerSec
	if s.cfg.RatePerSec <= 0 {
		s.cfg.RatePerSec = 3
	}
	s.limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	workers := s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		i := i
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in notifier worker",
						logx.Int("worker", i), logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			s.workerLoop()
		}()
	}
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue = nil
	s.mu.Unlock()

	close(q)

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	if cancel != nil {
		cancel()
	}
}

// Notify enqueues one alert. It never blocks on the outbound send.
func (s *Service) Notify(t event.Type, rec event.Record) error {
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.mu.Unlock()

	select {
	case q <- job{t: t, rec: rec}:
		return nil
	default:
		s.log.Warn("alert dropped (queue full)",
			logx.String("event", string(t)), logx.String("email", rec.Email))
		return ErrQueueFull
	}
}

func (s *Service) workerLoop() {
	s.mu.Lock()
	q := s.queue
	runCtx := s.runCtx
	s.mu.Unlock()
	if q == nil {
		return
	}

	for j := range q {
		if runCtx != nil && runCtx.Err() != nil {
			return
		}
		s.send(runCtx, j)
	}
}

func (s *Service) send(runCtx context.Context, j job) {
	s.mu.Lock()
	lim := s.limiter
	timeout := s.cfg.SendTimeout
	s.mu.Unlock()

	if s.adapter == nil {
		return
	}
	if runCtx == nil {
		runCtx = context.Background()
	}

	if lim != nil {
		if err := lim.Wait(runCtx); err != nil {
			return
		}
	}

	callCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	_, err := s.adapter.SendText(callCtx, s.target, Format(j.t, j.rec), &transport.SendOptions{DisablePreview: true})
	if err != nil {
		// Non-fatal: the recipient is already marked, so this pair will
		// not be alerted again.
		s.log.Warn("alert send failed",
			logx.String("event", string(j.t)), logx.String("email", j.rec.Email), logx.Err(err))
		return
	}
	s.log.Debug("alert sent",
		logx.String("event", string(j.t)), logx.String("email", j.rec.Email))
}
