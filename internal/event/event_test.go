package event

import "testing"

func TestClassifyExactMatch(t *testing.T) {
	got, ok := Classify("hardBounce")
	if !ok || got != HardBounce {
		t.Fatalf("Classify(hardBounce) = %q, %v", got, ok)
	}

	// No normalization: case and whitespace matter.
	for _, raw := range []string{"HardBounce", "hardbounce", " hardBounce", "hardBounce ", "bounced", ""} {
		if _, ok := Classify(raw); ok {
			t.Fatalf("Classify(%q) unexpectedly recognized", raw)
		}
	}
}

func TestClassifyCoversClosedSet(t *testing.T) {
	all := []string{
		"delivered", "request", "click", "opened", "uniqueOpened",
		"listAddition", "contactUpdated", "contactDeleted", "inboundEmailProcessed",
		"sent", "hardBounce", "softBounce", "blocked", "spam", "invalid",
		"deferred", "unsubscribed",
	}
	for _, raw := range all {
		if _, ok := Classify(raw); !ok {
			t.Fatalf("Classify(%q) not recognized", raw)
		}
	}
	if len(all) != len(known) {
		t.Fatalf("closed set drifted: %d strings vs %d known types", len(all), len(known))
	}
}

func TestNotifiedPolicy(t *testing.T) {
	want := map[Type]bool{
		Sent: true, HardBounce: true, SoftBounce: true, Blocked: true,
		Spam: true, Invalid: true, Deferred: true, Unsubscribed: true,
	}
	for tt := range known {
		if tt.Notified() != want[tt] {
			t.Fatalf("%q.Notified() = %v, want %v", tt, tt.Notified(), want[tt])
		}
	}
	if len(NotifiedTypes()) != len(want) {
		t.Fatalf("NotifiedTypes() returned %d types, want %d", len(NotifiedTypes()), len(want))
	}
}

func TestRecordHasTag(t *testing.T) {
	r := Record{Tags: []string{"staging", "production"}}
	if !r.HasTag("production") {
		t.Fatalf("expected production tag")
	}
	if r.HasTag("dev") {
		t.Fatalf("unexpected dev tag")
	}
	if (Record{}).HasTag("production") {
		t.Fatalf("empty record should have no tags")
	}
}
