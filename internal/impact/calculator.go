package impact

import (
	"fmt"
	"log/slog"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// Calculator quantifies the customer, business, technical, schedule and risk
// impact of a candidate.
type Calculator struct {
	cfg     config.ImpactConfig
	history HistoryRepository
	clock   utils.Clock
	logger  *slog.Logger
}

// New validates cfg and builds a Calculator. A nil history gets a RingHistory
// sized by cfg.HistoryCapacity.
func New(cfg config.ImpactConfig, history HistoryRepository, clock utils.Clock, logger *slog.Logger) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("impact: %w", err)
	}
	if history == nil {
		history = NewRingHistory(cfg.HistoryCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{cfg: cfg, history: history, clock: utils.ClockOrSystem(clock), logger: logger}, nil
}

// Calculate produces the impact assessment of bug in actx.
func (c *Calculator) Calculate(bug models.BugCandidate, actx models.AnalysisContext) models.Impact {
	customer := c.customerImpact(bug, actx)
	business := c.businessImpact(bug, customer, actx)
	technical := technicalImpact(bug, actx)
	resources := c.estimateResources(bug, actx)
	timeline := c.timelineImpact(bug, resources, actx)
	risk := c.assessRisk(bug, customer, business, technical, actx)

	impact := models.Impact{
		BugID:     bug.ID,
		Customer:  customer,
		Business:  business,
		Technical: technical,
		Resources: resources,
		Timeline:  timeline,
		Risk:      risk,
		TotalScore: customer.Score*0.35 +
			business.Score*0.30 +
			technical.Score*0.15 +
			timeline.Score*0.10 +
			risk.Score*0.10,
	}
	impact.Recommendation = recommend(impact)

	c.logger.Debug("impact calculated",
		slog.String("bug", bug.ID),
		slog.Float64("score", impact.TotalScore),
		slog.Float64("financial", business.Financial.Total),
		slog.String("action", impact.Recommendation.Priority))
	return impact
}

func recommend(impact models.Impact) models.ImpactRecommendation {
	rec := models.ImpactRecommendation{Resources: impact.Resources.Total}
	total := impact.TotalScore
	financial := impact.Business.Financial.Total

	switch {
	case total > 80 || impact.Customer.Severity == models.SeverityCritical:
		rec.Priority = models.ActionImmediate
		rec.Action = "Fix immediately with a dedicated response team"
		rec.Timeline = "4 hours"
	case total > 60 || financial > 50000:
		rec.Priority = models.ActionHigh
		rec.Action = "Schedule the fix in the current sprint"
		rec.Timeline = "1 week"
	case total > 40:
		rec.Priority = models.ActionMedium
		rec.Action = "Plan the fix for an upcoming sprint"
		rec.Timeline = "1 month"
	default:
		rec.Priority = models.ActionLow
		rec.Action = "Add to the backlog"
		rec.Timeline = "as resources permit"
	}

	rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("total impact score %.1f", total))
	if impact.Customer.Severity == models.SeverityCritical {
		rec.Reasoning = append(rec.Reasoning, "critical customer impact")
	}
	if financial > 0 {
		rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("financial exposure $%.0f", financial))
	}
	if impact.Timeline.CriticalPath {
		rec.Reasoning = append(rec.Reasoning, "fix puts a critical milestone at risk")
	}
	if len(impact.Business.Compliance.Regulations) > 0 {
		rec.Reasoning = append(rec.Reasoning, "compliance exposure")
	}
	return rec
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// severityBand maps a 0-100 score onto the severity ladder.
func severityBand(score float64) models.Severity {
	switch {
	case score >= 80:
		return models.SeverityCritical
	case score >= 50:
		return models.SeverityHigh
	case score >= 20:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
