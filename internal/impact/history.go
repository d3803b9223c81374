package impact

import (
	"log/slog"

	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// HistoryRepository stores estimate outcomes used to calibrate effort estimates.
type HistoryRepository interface {
	Records() []models.EstimateRecord
	Append(models.EstimateRecord)
}

// RingHistory is a bounded in-memory HistoryRepository; the oldest record is
// evicted once capacity is reached.
type RingHistory struct {
	ring *utils.Ring[models.EstimateRecord]
}

// NewRingHistory creates a history holding up to capacity records.
func NewRingHistory(capacity int) *RingHistory {
	return &RingHistory{ring: utils.NewRing[models.EstimateRecord](capacity)}
}

// Records returns a copy of the stored records, oldest first.
func (h *RingHistory) Records() []models.EstimateRecord {
	return h.ring.Snapshot()
}

// Append stores a record.
func (h *RingHistory) Append(r models.EstimateRecord) {
	h.ring.Push(r)
}

// RecordOutcome feeds the hours a fix actually took back into calibration.
func (c *Calculator) RecordOutcome(bug models.BugCandidate, estimatedHours, actualHours float64) {
	if estimatedHours <= 0 || actualHours < 0 {
		c.logger.Warn("ignoring estimate outcome",
			slog.String("bug", bug.ID),
			slog.Float64("estimated", estimatedHours),
			slog.Float64("actual", actualHours))
		return
	}
	c.history.Append(models.EstimateRecord{
		Complexity:     complexityOf(bug),
		Category:       bug.Category,
		EstimatedHours: estimatedHours,
		ActualHours:    actualHours,
	})
}
