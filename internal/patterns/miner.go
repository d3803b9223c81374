package patterns

import (
	"context"
	"log/slog"
	"sort"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// minRecurrence is the number of candidates a signature needs before it is reported.
const minRecurrence = 2

// Store abstracts persistence for mined insights.
type Store interface {
	StoreInsights(ctx context.Context, batchID string, insights []models.PatternInsight) error
}

// Miner mines recurring failure signatures out of a triaged batch.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine groups assessments by matched pattern (or candidate type when nothing
// matched) and returns the signatures seen at least twice, most prevalent first.
func (m *Miner) Mine(ctx context.Context, batchID string, assessments []models.Assessment) ([]models.PatternInsight, error) {
	if len(assessments) == 0 {
		return nil, nil
	}

	stats := make(map[string]*signatureAggregate)
	for _, a := range assessments {
		bug := a.Candidate
		keys := make(map[string]string, len(bug.MatchedPatterns)+1)
		for _, match := range bug.MatchedPatterns {
			keys[match.Name] = match.Category
		}
		if len(keys) == 0 && bug.Type != "" {
			keys[bug.Type] = bug.Category
		}
		for key, category := range keys {
			agg := ensureAggregate(stats, key, category)
			agg.bugIDs = append(agg.bugIDs, bug.ID)
			if agg.highest == "" || a.Classification.Priority.Rank() < agg.highest.Rank() {
				agg.highest = a.Classification.Priority
			}
			if bug.Timestamp.After(agg.insight.LastSeen) {
				agg.insight.LastSeen = bug.Timestamp
			}
		}
	}

	insights := make([]models.PatternInsight, 0, len(stats))
	for _, agg := range stats {
		if len(agg.bugIDs) < minRecurrence {
			continue
		}
		insight := agg.insight
		sort.Strings(agg.bugIDs)
		insight.BugIDs = agg.bugIDs
		insight.Occurrences = len(agg.bugIDs)
		insight.Prevalence = float64(insight.Occurrences) / float64(len(assessments))
		insight.HighestPriority = agg.highest
		insights = append(insights, insight)
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Prevalence != insights[j].Prevalence {
			return insights[i].Prevalence > insights[j].Prevalence
		}
		return insights[i].Pattern < insights[j].Pattern
	})

	if m.store != nil && len(insights) > 0 {
		if err := m.store.StoreInsights(ctx, batchID, insights); err != nil {
			m.logger.Warn("insight store failed", slog.String("batch", batchID), slog.Any("error", err))
		}
	}

	return insights, nil
}

type signatureAggregate struct {
	insight models.PatternInsight
	bugIDs  []string
	highest models.Priority
}

func ensureAggregate(m map[string]*signatureAggregate, key, category string) *signatureAggregate {
	agg, ok := m[key]
	if !ok {
		agg = &signatureAggregate{insight: models.PatternInsight{Pattern: key, Category: category}}
		m[key] = agg
	}
	return agg
}
