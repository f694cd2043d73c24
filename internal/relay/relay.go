package relay

import (
	"context"
	"net/http"

	"mailwatch/internal/event"
	"mailwatch/internal/suppression"
	logx "mailwatch/pkg/logx"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusIgnored = "ignored"
)

// Outcome is the caller-visible result of handling one envelope.
// Code is the HTTP status the ingress should answer with.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"-"`
}

// Notifier is the slice of the alert pipeline the relay needs.
type Notifier interface {
	Notify(t event.Type, rec event.Record) error
}

// Relay classifies inbound envelopes and drives the mark-then-alert path.
// It is safe for concurrent use; all shared state lives in the store.
type Relay struct {
	store    suppression.Store
	notifier Notifier
	log      logx.Logger
}

func New(store suppression.Store, notifier Notifier, log logx.Logger) *Relay {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Relay{store: store, notifier: notifier, log: log}
}

// Handle implements the dispatch contract:
//
//	missing event            -> error/400
//	unrecognized event       -> ignored/200
//	non-alerting event       -> ignored/200
//	missing email            -> error/400
//	already marked recipient -> success/200, no alert
//	new recipient            -> mark, enqueue alert, success/200
//
// Infrastructure failures (persist, alert enqueue) are absorbed: the
// provider gets a 200 either way, so it never redelivers on our faults.
func (r *Relay) Handle(ctx context.Context, rec event.Record) Outcome {
	if rec.Event == "" {
		return Outcome{Status: StatusError, Message: "Missing event field", Code: http.StatusBadRequest}
	}

	t, ok := event.Classify(rec.Event)
	if !ok {
		return Outcome{Status: StatusIgnored, Message: "Unhandled event", Code: http.StatusOK}
	}
	if !t.Notified() {
		return Outcome{Status: StatusIgnored, Message: "No processing for this event", Code: http.StatusOK}
	}

	if rec.Email == "" {
		return Outcome{Status: StatusError, Message: "Missing email field", Code: http.StatusBadRequest}
	}

	added, err := r.store.Mark(ctx, t, rec.Email)
	if err != nil {
		// The in-memory mark (if any) stands; availability wins over
		// strict persistence here.
		r.log.Warn("suppression mark failed",
			logx.String("event", string(t)), logx.String("email", rec.Email), logx.Err(err))
	}
	if !added {
		r.log.Debug("recipient already processed",
			logx.String("event", string(t)), logx.String("email", rec.Email))
		return Outcome{Status: StatusSuccess, Message: "Email already processed", Code: http.StatusOK}
	}

	// The mark is durable before the first send attempt; a failed or
	// dropped alert is never retried for this pair.
	if err := r.notifier.Notify(t, rec); err != nil {
		r.log.Warn("alert enqueue failed",
			logx.String("event", string(t)), logx.String("email", rec.Email), logx.Err(err))
	} else {
		r.log.Info("new recipient alerted",
			logx.String("event", string(t)), logx.String("email", rec.Email))
	}

	return Outcome{Status: StatusSuccess, Message: string(t) + " email notified", Code: http.StatusOK}
}
