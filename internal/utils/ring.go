package utils

import (
	"sort"
	"sync"
	"time"
)

// Ring is a goroutine-safe bounded buffer that drops the oldest item once full.
type Ring[T any] struct {
	mu      sync.RWMutex
	items   []T
	maxSize int
}

// NewRing creates a ring holding up to maxSize items (512 when maxSize <= 0).
func NewRing[T any](maxSize int) *Ring[T] {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &Ring[T]{maxSize: maxSize}
}

// Push appends v, evicting the oldest item when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, v)
	if len(r.items) > r.maxSize {
		copy(r.items[0:], r.items[1:])
		r.items = r.items[:r.maxSize]
	}
}

// Snapshot returns a copy of the buffered items, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]T(nil), r.items...)
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// LatencyTracker stores recent duration samples and computes percentiles.
type LatencyTracker struct {
	samples *Ring[time.Duration]
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	return &LatencyTracker{samples: NewRing[time.Duration](maxSize)}
}

// Observe records a new duration.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.samples.Push(d)
}

// Count returns number of samples recorded.
func (l *LatencyTracker) Count() int {
	return l.samples.Len()
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	sorted := l.samples.Snapshot()
	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[index]
}
