package impact

import (
	"strings"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// ordinal maps a severity onto the 2-5 risk scale.
func ordinal(s models.Severity) float64 {
	switch s {
	case models.SeverityCritical:
		return 5
	case models.SeverityHigh:
		return 4
	case models.SeverityMedium:
		return 3
	default:
		return 2
	}
}

func (c *Calculator) assessRisk(bug models.BugCandidate, customer models.CustomerImpact, business models.BusinessImpact, technical models.TechnicalImpact, actx models.AnalysisContext) models.RiskAssessment {
	probability := 0.5
	switch bug.Reproducible {
	case models.ReproducibleAlways:
		probability += 0.3
	case models.ReproducibleIntermittent:
		probability += 0.1
	}
	if strings.EqualFold(bug.Frequency, "constant") {
		probability = 1
	}
	if bug.EnvironmentSpecific {
		total := len(actx.Environments)
		if total == 0 {
			total = c.cfg.TotalEnvironments
		}
		if total > 0 {
			probability *= clamp(float64(len(bug.AffectedEnvironments))/float64(total), 0, 1)
		}
	}
	probability = clamp(probability, 0, 1)

	severity := ordinal(customer.Severity)*0.4 +
		ordinal(severityBand(business.Score))*0.4 +
		ordinal(severityBand(technical.Score))*0.2
	exposure := probability * severity

	out := models.RiskAssessment{
		Probability: probability,
		Severity:    severity,
		Exposure:    exposure,
		Score:       clamp(exposure*20, 0, 100),
	}
	if probability >= 0.8 {
		out.Mitigation = append(out.Mitigation, "add a regression test that reproduces the failure")
	}
	if customer.Severity == models.SeverityCritical || customer.Severity == models.SeverityHigh {
		out.Mitigation = append(out.Mitigation, "notify affected customers and prepare a workaround")
	}
	if business.Financial.Total > 50000 {
		out.Mitigation = append(out.Mitigation, "prepare a rollback plan before deploying the fix")
	}
	if technical.Architecture > 0 {
		out.Mitigation = append(out.Mitigation, "stage the fix behind a feature flag")
	}
	if bug.EnvironmentSpecific {
		out.Mitigation = append(out.Mitigation, "verify the fix in every affected environment")
	}
	return out
}
