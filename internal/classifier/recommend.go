package classifier

import (
	"fmt"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// Recommendation types attached to classifications.
const (
	RecommendImmediateResponse    = "immediate_response"
	RecommendSecurityReview       = "security_review"
	RecommendWorkaround           = "workaround"
	RecommendQuickWin             = "quick_win"
	RecommendMonitoring           = "monitoring"
	RecommendPerformanceProfiling = "performance_profiling"
)

func recommend(bug models.BugCandidate, cls models.Classification) []models.Recommendation {
	var recs []models.Recommendation
	if cls.Priority == models.PriorityP0 {
		recs = append(recs, models.Recommendation{
			Type:   RecommendImmediateResponse,
			Action: "Page the owning team and open an incident",
			Reason: fmt.Sprintf("%s severity, respond within %s", cls.Severity, cls.SLA),
		})
	}
	if bug.Category == "security" || bug.Type == "security_vulnerability" || matchedCategory(bug, "security") {
		recs = append(recs, models.Recommendation{
			Type:   RecommendSecurityReview,
			Action: "Request a security review before shipping the fix",
			Reason: "security-sensitive failure",
		})
	}
	if bug.Workaround {
		recs = append(recs, models.Recommendation{
			Type:   RecommendWorkaround,
			Action: "Publish the workaround to support and affected users",
			Reason: "a workaround exists while the fix is pending",
		})
	}
	if cls.Scores.Effort >= 70 && cls.Severity.Rank() >= models.SeverityMedium.Rank() {
		recs = append(recs, models.Recommendation{
			Type:   RecommendQuickWin,
			Action: "Schedule in the current iteration",
			Reason: fmt.Sprintf("low fix effort (score %.0f) for a %s issue", cls.Scores.Effort, cls.Severity),
		})
	}
	if cls.Scores.Frequency >= 60 || bug.Trend == "increasing" {
		recs = append(recs, models.Recommendation{
			Type:   RecommendMonitoring,
			Action: "Add alerting on the failing signal",
			Reason: "failure is frequent or trending up",
		})
	}
	if bug.Category == "performance" {
		recs = append(recs, models.Recommendation{
			Type:   RecommendPerformanceProfiling,
			Action: "Profile the slow path and compare against the last good build",
			Reason: fmt.Sprintf("performance degraded %.0f%%", bug.Degradation*100),
		})
	}
	return recs
}

func matchedCategory(bug models.BugCandidate, category string) bool {
	for _, m := range bug.MatchedPatterns {
		if m.Category == category {
			return true
		}
	}
	return false
}
