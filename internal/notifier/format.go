package notifier

import (
	"strings"

	"mailwatch/internal/event"
)

// Format renders the fixed alert layout for one event record.
// The reason line is included only when present; every other line is
// emitted as-is, empty values and all.
func Format(t event.Type, rec event.Record) string {
	lines := []string{
		"📩 **New " + capitalize(string(t)) + " Event Detected**",
		"📧 Email: " + rec.Email,
		"💬 Subject: " + rec.Subject,
		"📅 Timestamp: " + rec.Date,
		"🌐 IP/Sender: " + rec.SendingIP,
	}
	if rec.Reason != "" {
		lines = append(lines, "❗ Reason: "+rec.Reason)
	}
	return strings.Join(lines, "\n")
}

// capitalize upper-cases the first letter and lower-cases the rest,
// so "hardBounce" renders as "Hardbounce".
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
