package classifier

import (
	"sort"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// ClassifyBatch classifies every candidate and returns the ranked queue.
func (c *Classifier) ClassifyBatch(bugs []models.BugCandidate) []models.QueueEntry {
	out := make([]models.Classification, 0, len(bugs))
	for _, bug := range bugs {
		out = append(out, c.Classify(bug))
	}
	return RankQueue(out)
}

// RankQueue stable-sorts classifications by priority, then final score descending,
// and numbers them from 1.
func RankQueue(classifications []models.Classification) []models.QueueEntry {
	sorted := append([]models.Classification(nil), classifications...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Priority.Rank(), sorted[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return sorted[i].FinalScore > sorted[j].FinalScore
	})
	queue := make([]models.QueueEntry, len(sorted))
	for i, cls := range sorted {
		queue[i] = models.QueueEntry{Rank: i + 1, Classification: cls}
	}
	return queue
}
