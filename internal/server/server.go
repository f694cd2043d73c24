package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mailwatch/internal/event"
	"mailwatch/internal/relay"
	logx "mailwatch/pkg/logx"
)

type Config struct {
	Addr string
	// Environment is the deployment tag an envelope must carry to be
	// processed; everything else is acknowledged and dropped.
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Pprof mounts net/http/pprof under /debug. Only for private listeners.
	Pprof bool
}

// Handler is the slice of the relay the ingress needs.
type Handler interface {
	Handle(ctx context.Context, rec event.Record) relay.Outcome
}

// Server is the webhook ingress. It owns the environment-tag gate; the
// relay never sees envelopes for other deployments.
type Server struct {
	cfg  Config
	rl   Handler
	log  logx.Logger
	http *http.Server
}

func New(cfg Config, rl Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":6666"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, rl: rl, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthz", s.handleHealthz)
	if cfg.Pprof {
		r.Mount("/debug", middleware.Profiler())
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router exposes the HTTP handler (used by tests).
func (s *Server) Router() http.Handler { return s.http.Handler }

// Serve blocks until Shutdown or a listener error.
func (s *Server) Serve() error {
	s.log.Info("webhook ingress listening", logx.String("addr", s.cfg.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var rec event.Record
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, relay.Outcome{Status: relay.StatusError, Message: "Invalid JSON"})
		return
	}

	// Webhooks are fanned out to every deployment; only the envelope
	// tagged for this one is processed.
	if !rec.HasTag(s.cfg.Environment) {
		writeJSON(w, http.StatusOK, relay.Outcome{Status: relay.StatusIgnored, Message: "Environment mismatch"})
		return
	}

	out := s.rl.Handle(r.Context(), rec)
	writeJSON(w, out.Code, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
