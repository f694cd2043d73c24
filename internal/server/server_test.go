package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mailwatch/internal/event"
	"mailwatch/internal/relay"
	logx "mailwatch/pkg/logx"
)

type fakeHandler struct {
	last *event.Record
	out  relay.Outcome
}

func (f *fakeHandler) Handle(ctx context.Context, rec event.Record) relay.Outcome {
	f.last = &rec
	return f.out
}

func postWebhook(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) relay.Outcome {
	t.Helper()
	var out relay.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestWebhookInvalidJSON(t *testing.T) {
	s := New(Config{Environment: "production"}, &fakeHandler{}, logx.Nop())

	w := postWebhook(t, s, "{broken")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	out := decodeOutcome(t, w)
	if out.Status != relay.StatusError || out.Message != "Invalid JSON" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestWebhookEnvironmentGate(t *testing.T) {
	f := &fakeHandler{}
	s := New(Config{Environment: "production"}, f, logx.Nop())

	w := postWebhook(t, s, `{"event":"hardBounce","email":"a@x.com","tag":["staging"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := decodeOutcome(t, w)
	if out.Status != relay.StatusIgnored || out.Message != "Environment mismatch" {
		t.Fatalf("outcome = %+v", out)
	}
	if f.last != nil {
		t.Fatalf("relay must not see mismatched envelopes")
	}

	// Missing tag list behaves like a mismatch.
	w = postWebhook(t, s, `{"event":"hardBounce","email":"a@x.com"}`)
	if decodeOutcome(t, w).Message != "Environment mismatch" {
		t.Fatalf("untagged envelope must be gated")
	}
}

func TestWebhookPassesOutcomeThrough(t *testing.T) {
	f := &fakeHandler{out: relay.Outcome{Status: relay.StatusError, Message: "Missing email field", Code: 400}}
	s := New(Config{Environment: "production"}, f, logx.Nop())

	w := postWebhook(t, s, `{"event":"blocked","tag":["production","batch-7"]}`)
	if w.Code != 400 {
		t.Fatalf("status = %d", w.Code)
	}
	out := decodeOutcome(t, w)
	if out.Message != "Missing email field" {
		t.Fatalf("outcome = %+v", out)
	}
	if f.last == nil || f.last.Event != "blocked" {
		t.Fatalf("relay did not receive the envelope: %+v", f.last)
	}
}

func TestHealthz(t *testing.T) {
	s := New(Config{Environment: "production"}, &fakeHandler{}, logx.Nop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
