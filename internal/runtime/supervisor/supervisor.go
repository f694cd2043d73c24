package supervisor

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	logx "mailwatch/pkg/logx"
)

// Supervisor manages goroutines tied to a shared context:
//   - named goroutines (for logging/debug)
//   - panic recovery
//   - graceful stop with timeout-aware waiting
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log logx.Logger

	firstErr atomic.Value // stores error
	errOnce  sync.Once
	wg       sync.WaitGroup
}

func New(ctx context.Context, log logx.Logger) *Supervisor {
	if ctx == nil {
		ctx = context.Background()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	cctx, cancel := context.WithCancel(ctx)
	return &Supervisor{ctx: cctx, cancel: cancel, log: log}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Go runs fn under the supervisor. A returned error is recorded (first one
// wins) and logged; a panic is recovered and logged, never propagated.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in supervised goroutine",
					logx.String("name", name), logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()

		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.errOnce.Do(func() { s.firstErr.Store(err) })
			s.log.Error("supervised goroutine failed", logx.String("name", name), logx.Err(err))
		}
	}()
}

// Cancel signals all supervised goroutines to stop.
func (s *Supervisor) Cancel() { s.cancel() }

// Wait blocks until every goroutine has exited or ctx is done, and returns
// the first recorded error (if any).
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	if err, ok := s.firstErr.Load().(error); ok {
		return err
	}
	return nil
}
