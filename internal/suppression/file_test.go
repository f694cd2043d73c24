package suppression

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mailwatch/internal/event"
	logx "mailwatch/pkg/logx"
)

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestFileStoreMarkAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	added, err := s.Mark(ctx, event.HardBounce, "a@x.com")
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !added {
		t.Fatalf("expected first Mark to add")
	}

	added, err = s.Mark(ctx, event.HardBounce, "a@x.com")
	if err != nil {
		t.Fatalf("Mark (repeat): %v", err)
	}
	if added {
		t.Fatalf("repeat Mark must not add")
	}

	// Same recipient under a different type is a distinct pair.
	if added, _ := s.Mark(ctx, event.Spam, "a@x.com"); !added {
		t.Fatalf("expected add under different event type")
	}

	// A fresh store over the same dir must see the persisted members.
	s2 := openTestStore(t, dir)
	seen, err := s2.Contains(ctx, event.HardBounce, "a@x.com")
	if err != nil || !seen {
		t.Fatalf("Contains after reload = %v, %v", seen, err)
	}
	if added, _ := s2.Mark(ctx, event.HardBounce, "a@x.com"); added {
		t.Fatalf("Mark after reload must not re-add")
	}
}

func TestFileStorePersistedLayout(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	for _, email := range []string{"b@x.com", "a@x.com"} {
		if _, err := s.Mark(ctx, event.Blocked, email); err != nil {
			t.Fatalf("Mark: %v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, "blocked_emails.json"))
	if err != nil {
		t.Fatalf("read set file: %v", err)
	}
	var emails []string
	if err := json.Unmarshal(b, &emails); err != nil {
		t.Fatalf("set file is not a JSON array: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("expected 2 members, got %v", emails)
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "spam_emails.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s := openTestStore(t, dir)
	seen, err := s.Contains(context.Background(), event.Spam, "a@x.com")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if seen {
		t.Fatalf("corrupt set must degrade to empty")
	}

	// The store must still accept new members and repair the file.
	if added, err := s.Mark(context.Background(), event.Spam, "a@x.com"); !added || err != nil {
		t.Fatalf("Mark after corrupt load = %v, %v", added, err)
	}
}

func TestFileStoreConcurrentMarkSamePair(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	const n = 32
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := s.Mark(context.Background(), event.Deferred, "race@x.com")
			if err != nil {
				t.Errorf("Mark: %v", err)
				return
			}
			results <- added
		}()
	}
	wg.Wait()
	close(results)

	addedCount := 0
	for added := range results {
		if added {
			addedCount++
		}
	}
	if addedCount != 1 {
		t.Fatalf("expected exactly one successful add, got %d", addedCount)
	}

	counts, err := s.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[event.Deferred] != 1 {
		t.Fatalf("expected one member, got %d", counts[event.Deferred])
	}
}

func TestFileStoreUnknownType(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if _, err := s.Mark(context.Background(), event.Click, "a@x.com"); err == nil {
		t.Fatalf("Mark for non-alerting type must error")
	}
	seen, err := s.Contains(context.Background(), event.Click, "a@x.com")
	if err != nil || seen {
		t.Fatalf("Contains for non-alerting type = %v, %v", seen, err)
	}
}
