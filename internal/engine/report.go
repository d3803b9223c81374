package engine

import (
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

func summarize(assessments []models.Assessment, now time.Time) models.BatchSummary {
	summary := models.BatchSummary{
		Total:         len(assessments),
		BySeverity:    make(map[models.Severity]int),
		ByPriority:    make(map[models.Priority]int),
		TopRootCauses: make(map[string]int),
		GeneratedAt:   now,
	}
	for _, a := range assessments {
		summary.BySeverity[a.Classification.Severity]++
		summary.ByPriority[a.Classification.Priority]++
		summary.FinancialExposure += a.Impact.Business.Financial.Total
		summary.EffortHours += a.Impact.Resources.Total.Hours
		if cause, ok := a.Analysis.PrimaryCause(); ok {
			summary.TopRootCauses[cause.Type]++
		}
	}
	return summary
}
