package digest

import (
	"strings"
	"testing"

	"mailwatch/internal/event"
)

func TestFormatCountsStableOrder(t *testing.T) {
	got := FormatCounts(map[event.Type]int{
		event.HardBounce: 3,
		event.Spam:       1,
	})

	if !strings.HasPrefix(got, "📊 Suppression summary") {
		t.Fatalf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "- hardBounce: 3") || !strings.Contains(got, "- spam: 1") {
		t.Fatalf("missing counts:\n%s", got)
	}
	if !strings.Contains(got, "- sent: 0") {
		t.Fatalf("absent types must render as zero:\n%s", got)
	}
	if !strings.HasSuffix(got, "Total recipients: 4") {
		t.Fatalf("unexpected total:\n%s", got)
	}

	// sent is first in the taxonomy order.
	if strings.Index(got, "- sent:") > strings.Index(got, "- hardBounce:") {
		t.Fatalf("order not stable:\n%s", got)
	}
}
