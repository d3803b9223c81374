package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
	if got := tracker.Percentile(0); got != 10*time.Millisecond {
		t.Fatalf("expected min 10ms, got %v", got)
	}
}

func TestRingDropsOldest(t *testing.T) {
	ring := NewRing[int](3)
	for i := 0; i < 10; i++ {
		ring.Push(i)
	}
	if ring.Len() != 3 {
		t.Fatalf("expected ring size 3, got %d", ring.Len())
	}
	got := ring.Snapshot()
	if got[0] != 7 || got[2] != 9 {
		t.Fatalf("expected newest three items, got %v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"2024-03-01T10:00:00Z": time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"2024-03-01 10:00:00":  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"1709287200":           time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		"1709287200000":        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input, now)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: expected %v, got %v", input, want, got)
		}
	}

	if _, err := ParseTimestamp("", now); err == nil {
		t.Fatalf("expected error for empty value")
	}
}

func TestHoursBetweenIsSymmetric(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(90 * time.Minute)
	if HoursBetween(a, b) != 1.5 || HoursBetween(b, a) != 1.5 {
		t.Fatalf("expected 1.5h both ways")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewAppError("repo.LoadContext", "decode bundle", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match base")
	}
	if OpOf(err) != "repo.LoadContext" {
		t.Fatalf("unexpected op %q", OpOf(err))
	}
}

func TestNewLoggerToRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected log output %q", out)
	}
}
