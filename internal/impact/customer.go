package impact

import (
	"math"
	"strings"

	"github.com/miradorstack/mirador-triage/internal/models"
)

var tiers = []string{models.TierEnterprise, models.TierBusiness, models.TierStandard, models.TierTrial}

func (c *Calculator) tierWeight(tier string) float64 {
	switch tier {
	case models.TierEnterprise:
		return c.cfg.TierWeights.Tier1
	case models.TierBusiness:
		return c.cfg.TierWeights.Tier2
	case models.TierTrial:
		return c.cfg.TierWeights.Trial
	default:
		return c.cfg.TierWeights.Tier3
	}
}

func (c *Calculator) customerImpact(bug models.BugCandidate, actx models.AnalysisContext) models.CustomerImpact {
	out := models.CustomerImpact{TierBreakdown: make(map[string]int, len(tiers))}
	for _, t := range tiers {
		out.TierBreakdown[t] = 0
	}

	roster := make(map[string]string, len(actx.Customers))
	rosterTiers := make(map[string]int)
	for _, cust := range actx.Customers {
		tier := normalizeTier(cust.Tier)
		roster[cust.ID] = tier
		rosterTiers[tier]++
	}

	switch {
	case len(bug.AffectedCustomers) > 0:
		for _, id := range bug.AffectedCustomers {
			tier, ok := roster[id]
			if !ok {
				tier = models.TierStandard
			}
			out.TierBreakdown[tier]++
		}
	case len(actx.Customers) > 0:
		for tier, n := range rosterTiers {
			out.TierBreakdown[tier] = int(math.Round(bug.AffectedUsers * float64(n)))
		}
	default:
		out.Score = clamp(bug.AffectedUsers*100, 0, 100)
	}

	weighted := 0.0
	for _, tier := range tiers {
		n := out.TierBreakdown[tier]
		out.AffectedCount += n
		weighted += c.tierWeight(tier) * float64(n)
	}
	if out.AffectedCount > 0 {
		population := math.Max(float64(len(actx.Customers)), float64(out.AffectedCount))
		baseline := c.cfg.TierWeights.Tier1 * population
		out.Score = clamp(weighted/baseline*100, 0, 100)
	}

	enterprise := out.TierBreakdown[models.TierEnterprise]
	switch {
	case out.Score >= 80 || enterprise >= 3:
		out.Severity = models.SeverityCritical
	case out.Score >= 50 || enterprise >= 1:
		out.Severity = models.SeverityHigh
	case out.Score >= 20:
		out.Severity = models.SeverityMedium
	default:
		out.Severity = models.SeverityLow
	}

	out.UserExperience, out.Satisfaction = userExperience(bug)
	return out
}

// userExperience labels the experience and predicts a 0-100 satisfaction score.
func userExperience(bug models.BugCandidate) (string, float64) {
	label, drop := "minor", 5.0
	switch {
	case bug.UserImpact == "complete_outage":
		label, drop = "blocked", 60
	case bug.WorkflowInterruption:
		label, drop = "disrupted", 40
	case bug.Degradation > 0:
		label, drop = "degraded", 20
	}
	if bug.DataLossRisk || bug.DataLoss {
		drop += 20
	}
	return label, clamp(100-drop, 0, 100)
}

func normalizeTier(tier string) string {
	t := strings.ToLower(strings.TrimSpace(tier))
	for _, known := range tiers {
		if t == known {
			return t
		}
	}
	return models.TierStandard
}
