package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

var strictLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts RFC3339 variants, unix seconds or milliseconds, and
// free-form dates ("2024-03-01 10:00", "2h ago") resolved relative to now.
func ParseTimestamp(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 0 {
			return time.Time{}, fmt.Errorf("negative unix timestamp %d", n)
		}
		// Thirteen digits or more is epoch milliseconds.
		if n >= 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         now,
		PreferredDateSource: dps.CurrentPeriod,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("parse time %q: no date found", value)
	}
	return parsed.Time.UTC(), nil
}

// HoursBetween returns the absolute number of hours separating two instants.
func HoursBetween(a, b time.Time) float64 {
	if b.Before(a) {
		a, b = b, a
	}
	return b.Sub(a).Hours()
}
