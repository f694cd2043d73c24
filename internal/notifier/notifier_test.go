package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mailwatch/internal/event"
	"mailwatch/internal/transport"
	logx "mailwatch/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	calls chan struct{}
}

func newFakeAdapter(buf int) *fakeAdapter {
	return &fakeAdapter{calls: make(chan struct{}, buf)}
}

func (f *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	fail := f.fail
	if !fail {
		f.sent = append(f.sent, text)
	}
	f.mu.Unlock()
	f.calls <- struct{}{}
	if fail {
		return transport.MessageRef{}, errors.New("telegram unavailable")
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func (f *fakeAdapter) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func waitCalls(t *testing.T, f *fakeAdapter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for send %d/%d", i+1, n)
		}
	}
}

func TestFormat(t *testing.T) {
	rec := event.Record{
		Email:     "bob@test.com",
		Subject:   "Welcome",
		Date:      "2024-01-01T00:00:00Z",
		SendingIP: "1.2.3.4",
		Reason:    "mailbox full",
	}
	msg := Format(event.HardBounce, rec)

	for _, want := range []string{
		"📩 **New Hardbounce Event Detected**",
		"📧 Email: bob@test.com",
		"💬 Subject: Welcome",
		"📅 Timestamp: 2024-01-01T00:00:00Z",
		"🌐 IP/Sender: 1.2.3.4",
		"❗ Reason: mailbox full",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatOmitsEmptyReason(t *testing.T) {
	msg := Format(event.Unsubscribed, event.Record{Email: "a@x.com"})
	if strings.Contains(msg, "Reason") {
		t.Fatalf("reason line must be omitted when empty:\n%s", msg)
	}
	if !strings.Contains(msg, "New Unsubscribed Event Detected") {
		t.Fatalf("unexpected header:\n%s", msg)
	}
}

func TestServiceSendsQueuedAlert(t *testing.T) {
	f := newFakeAdapter(4)
	s := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 100}, f, transport.ChatTarget{ChatID: 7}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if err := s.Notify(event.Blocked, event.Record{Email: "a@x.com"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitCalls(t, f, 1)

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	s.Stop(sctx)

	got := f.texts()
	if len(got) != 1 || !strings.Contains(got[0], "a@x.com") {
		t.Fatalf("unexpected sends: %v", got)
	}
}

func TestServiceSendFailureIsAbsorbed(t *testing.T) {
	f := newFakeAdapter(4)
	f.fail = true
	s := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 100}, f, transport.ChatTarget{ChatID: 7}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// Enqueue must succeed even though every send will fail, and exactly
	// one transport call must happen (no retry).
	if err := s.Notify(event.Spam, event.Record{Email: "a@x.com"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitCalls(t, f, 1)

	select {
	case <-f.calls:
		t.Fatalf("unexpected retry")
	case <-time.After(100 * time.Millisecond):
	}

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	s.Stop(sctx)
}

func TestServiceStoppedRejectsNotify(t *testing.T) {
	f := newFakeAdapter(1)
	s := New(Config{}, f, transport.ChatTarget{ChatID: 7}, logx.Nop())
	if err := s.Notify(event.Spam, event.Record{Email: "a@x.com"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Notify before Start = %v, want ErrStopped", err)
	}
}
