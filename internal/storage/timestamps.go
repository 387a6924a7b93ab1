package storage

import "time"

// legacyLayouts covers timestamp shapes written by earlier snapshot
// generations: naive ISO-8601 with or without fractional seconds, and a
// space-separated variant. Naive timestamps are interpreted as UTC.
var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders a time in the canonical snapshot form. Every
// timestamp the store writes goes through this function.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a canonical or legacy timestamp string.
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeTimestamp re-renders a parseable timestamp in canonical form and
// passes anything else through untouched, so two on-disk schema generations
// compare and display consistently after load.
func NormalizeTimestamp(raw string) string {
	if raw == "" {
		return raw
	}

	if t, ok := ParseTimestamp(raw); ok {
		return FormatTimestamp(t)
	}

	return raw
}
