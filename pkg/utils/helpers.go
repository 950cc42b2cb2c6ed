package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "30s", falling back to
// the provided default on empty or malformed input.
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
}

// ParseTimestamp parses the timestamp formats seen across building and
// weather files. All naive timestamps are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CleanHeader trims whitespace and strips quotes from a CSV header cell.
func CleanHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
}

// FindColumn returns the index of the first candidate present in the header,
// comparing case-insensitively, or -1.
func FindColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, h := range header {
			if strings.EqualFold(CleanHeader(h), cand) {
				return i
			}
		}
	}
	return -1
}
