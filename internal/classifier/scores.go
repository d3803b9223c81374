package classifier

import (
	"math"

	"github.com/miradorstack/mirador-triage/internal/models"
)

var (
	userImpactPoints = map[string]float64{
		"complete_outage":     30,
		"major_disruption":    20,
		"minor_inconvenience": 10,
		"no_impact":           0,
	}
	reputationPoints = map[string]float64{"high": 30, "medium": 20, "low": 10, "none": 0}
	trendPoints      = map[string]float64{"increasing": 20, "stable": 10}
	environmentPoint = map[string]float64{"production": 10, "staging": 5, "development": 2}
	complexityCost   = map[models.Complexity]float64{
		models.ComplexityTrivial:     0,
		models.ComplexitySimple:      20,
		models.ComplexityModerate:    40,
		models.ComplexityComplex:     60,
		models.ComplexityVeryComplex: 80,
	}
	fixRiskCost = map[models.FixRisk]float64{
		models.FixRiskLow:    0,
		models.FixRiskMedium: 10,
		models.FixRiskHigh:   20,
	}
)

const defaultComplexityCost = 40

func userImpactScore(bug models.BugCandidate) float64 {
	score := 40*bug.AffectedUsers + userImpactPoints[bug.UserImpact]
	if bug.WorkflowInterruption {
		score += 20
	}
	if bug.DataLossRisk {
		score += 10
	}
	return clamp(score, 0, 100)
}

func businessImpactScore(bug models.BugCandidate) float64 {
	var score float64
	switch {
	case bug.FinancialImpact > 100000:
		score = 40
	case bug.FinancialImpact > 10000:
		score = 30
	case bug.FinancialImpact > 1000:
		score = 20
	default:
		score = 10
	}
	score += reputationPoints[bug.ReputationRisk]
	if bug.ComplianceImpact {
		score += 20
	}
	if bug.ChurnRisk > 0.1 {
		score += 10
	}
	return clamp(score, 0, 100)
}

func frequencyScore(bug models.BugCandidate) float64 {
	var score float64
	switch {
	case bug.Occurrences > 1000:
		score = 40
	case bug.Occurrences > 100:
		score = 30
	case bug.Occurrences > 10:
		score = 20
	default:
		score = 10
	}
	switch bug.Reproducible {
	case models.ReproducibleAlways:
		score += 30
	case models.ReproducibleIntermittent:
		score += 15
	}
	score += trendPoints[bug.Trend]
	score += environmentPoint[bug.Environment]
	return clamp(score, 0, 100)
}

func effortScore(bug models.BugCandidate) float64 {
	cost, ok := complexityCost[bug.Complexity]
	if !ok {
		cost = defaultComplexityCost
	}
	score := 100 - cost
	score -= math.Min(30, 10*float64(len(bug.Dependencies)))
	score -= fixRiskCost[bug.FixRisk]
	if bug.RequiresExtensiveTesting {
		score -= 10
	}
	return clamp(score, 0, 100)
}
