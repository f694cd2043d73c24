package suppression

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"mailwatch/internal/event"
	logx "mailwatch/pkg/logx"
)

// fileNames maps each alerting event type to its on-disk set file.
// The names are part of the operational contract (existing deployments
// already carry these files), so they are fixed here rather than derived.
var fileNames = map[event.Type]string{
	event.Sent:         "sent_emails.json",
	event.HardBounce:   "hardbounce_emails.json",
	event.SoftBounce:   "softbounce_emails.json",
	event.Blocked:      "blocked_emails.json",
	event.Spam:         "spam_emails.json",
	event.Invalid:      "invalid_emails.json",
	event.Deferred:     "deferred_emails.json",
	event.Unsubscribed: "unsubscribed_emails.json",
}

// fileStore keeps one JSON-array file per alerting event type.
//
// Each set is guarded by its own mutex: Mark for the same type is fully
// serialized (check + insert + rewrite), different types never contend.
// Rewrites go through a temp file + rename so a crash mid-write cannot
// truncate the set.
type fileStore struct {
	log  logx.Logger
	dir  string
	sets map[event.Type]*typeSet
}

type typeSet struct {
	mu     sync.Mutex
	path   string
	emails map[string]struct{}
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := cfg.Dir
	if dir == "" {
		return nil, errors.New("suppression.dir is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, dir: dir, sets: make(map[event.Type]*typeSet, len(fileNames))}
	for _, t := range event.NotifiedTypes() {
		path := filepath.Join(dir, fileNames[t])
		s.sets[t] = &typeSet{path: path, emails: s.loadSet(t, path)}
	}
	return s, nil
}

// loadSet reads one set file. A missing file means an empty set; a malformed
// file degrades to an empty set with a warning and never blocks startup.
func (s *fileStore) loadSet(t event.Type, path string) map[string]struct{} {
	out := map[string]struct{}{}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("suppression set unreadable; starting empty",
				logx.String("event", string(t)), logx.String("path", path), logx.Err(err))
		}
		return out
	}

	var emails []string
	if err := json.Unmarshal(b, &emails); err != nil {
		s.log.Warn("suppression set malformed; starting empty",
			logx.String("event", string(t)), logx.String("path", path), logx.Err(err))
		return out
	}

	for _, e := range emails {
		out[e] = struct{}{}
	}
	return out
}

func (s *fileStore) Contains(ctx context.Context, t event.Type, email string) (bool, error) {
	_ = ctx
	set, ok := s.sets[t]
	if !ok {
		return false, nil
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	_, seen := set.emails[email]
	return seen, nil
}

func (s *fileStore) Mark(ctx context.Context, t event.Type, email string) (bool, error) {
	_ = ctx
	set, ok := s.sets[t]
	if !ok {
		return false, errors.New("no suppression set for event type: " + string(t))
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	if _, seen := set.emails[email]; seen {
		return false, nil
	}

	// Insert first, persist second. The insert is kept even when the write
	// fails; the next successful write resynchronizes the file.
	set.emails[email] = struct{}{}
	if err := writeSetFile(set.path, set.emails); err != nil {
		return true, err
	}
	return true, nil
}

func (s *fileStore) Counts(ctx context.Context) (map[event.Type]int, error) {
	_ = ctx
	out := make(map[event.Type]int, len(s.sets))
	for t, set := range s.sets {
		set.mu.Lock()
		out[t] = len(set.emails)
		set.mu.Unlock()
	}
	return out, nil
}

func (s *fileStore) Close() error { return nil }

// writeSetFile atomically replaces path with the serialized set.
func writeSetFile(path string, emails map[string]struct{}) error {
	list := make([]string, 0, len(emails))
	for e := range emails {
		list = append(list, e)
	}
	// Sets have no canonical order; sorting keeps rewrites diff-friendly.
	sort.Strings(list)

	b, err := json.Marshal(list)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
