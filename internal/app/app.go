package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"mailwatch/internal/config"
	"mailwatch/internal/digest"
	"mailwatch/internal/notifier"
	"mailwatch/internal/relay"
	"mailwatch/internal/runtime/supervisor"
	"mailwatch/internal/server"
	"mailwatch/internal/suppression"
	"mailwatch/internal/transport"
	"mailwatch/internal/transport/telegram"
	logx "mailwatch/pkg/logx"
)

// App owns the full wiring: config -> logging -> telegram adapter ->
// suppression store -> relay -> ingress (+ optional digest).
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store    suppression.Store
	notifier *notifier.Service
	server   *server.Server
	digest   *digest.Service

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error { return c.Validate() })

	httpTimeout, _ := config.ParseDurationField("telegram.http_timeout", cfg.Telegram.HTTPTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		HTTPTimeout: httpTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}
	target := transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}

	busyTimeout, _ := config.ParseDurationField("suppression.busy_timeout", cfg.Suppression.BusyTimeout)
	store, err := suppression.Open(suppression.Config{
		Driver:      cfg.Suppression.Driver,
		Dir:         cfg.Suppression.Dir,
		Path:        cfg.Suppression.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "suppression")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("suppression store: %w", err)
	}

	notify := notifier.New(notifierConfig(cfg), adapter, target, log.With(logx.String("comp", "notifier")))
	rl := relay.New(store, notify, log.With(logx.String("comp", "relay")))

	readTimeout, _ := config.ParseDurationField("server.read_timeout", cfg.Server.ReadTimeout)
	writeTimeout, _ := config.ParseDurationField("server.write_timeout", cfg.Server.WriteTimeout)
	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		Environment:  cfg.Environment,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Pprof:        cfg.Server.Pprof,
	}, rl, log.With(logx.String("comp", "server")))

	var dig *digest.Service
	if cfg.Digest != nil && cfg.Digest.Enabled {
		dig = digest.New(digest.Config{
			Enabled:  true,
			Schedule: cfg.Digest.Schedule,
		}, store, adapter, target, log.With(logx.String("comp", "digest")))
	}

	return &App{
		cfgMgr:   mgr,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		notifier: notify,
		server:   srv,
		digest:   dig,
	}, nil
}

func notifierConfig(cfg *config.Config) notifier.Config {
	out := notifier.Config{}
	if cfg.Notifier != nil {
		out.Workers = cfg.Notifier.Workers
		out.QueueSize = cfg.Notifier.QueueSize
		out.RatePerSec = cfg.Notifier.RatePerSec
		out.SendTimeout, _ = config.ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout)
	}
	return out
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, a.log)

	a.notifier.Start(a.sup.Context())

	if a.digest != nil {
		if err := a.digest.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	a.sup.Go("http.serve", func(ctx context.Context) error {
		return a.server.Serve()
	})

	a.sup.Go("config.watch", a.cfgMgr.Watch)
	a.sup.Go("config.apply", a.applyLoop)

	// Tell systemd we're up (no-op outside a systemd unit).
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("mailwatch started")
	return nil
}

// applyLoop pushes hot-reloadable settings into running components.
func (a *App) applyLoop(ctx context.Context) error {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return nil
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File:    logx.FileConfig(cfg.Logging.File),
			})
			a.notifier.Apply(notifierConfig(cfg))
			a.log.Info("runtime settings applied")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(sctx); err != nil {
		a.log.Warn("ingress shutdown", logx.Err(err))
	}
	if a.digest != nil {
		a.digest.Stop()
	}

	// Drain pending alerts before tearing the workers down.
	a.notifier.Stop(sctx)

	if a.sup != nil {
		a.sup.Cancel()
		if err := a.sup.Wait(sctx); err != nil {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.log.Info("mailwatch stopped")
	return a.logSvc.Close()
}
