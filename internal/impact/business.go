package impact

import (
	"math"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-triage/internal/models"
)

const (
	ticketRate      = 0.2
	hotfixCost      = 5000.0
	scalingCost     = 3000.0
	regulationScore = 40.0
)

var operationalBands = map[models.Severity]float64{
	models.SeverityCritical: 10000,
	models.SeverityHigh:     5000,
	models.SeverityMedium:   2000,
	models.SeverityLow:      500,
}

var visibilityMultipliers = map[string]float64{"high": 2.0, "medium": 1.0, "low": 0.5}

var frequencyMultipliers = map[string]float64{"constant": 2.0, "frequent": 1.5, "occasional": 1.0, "rare": 0.5}

func (c *Calculator) businessImpact(bug models.BugCandidate, customer models.CustomerImpact, actx models.AnalysisContext) models.BusinessImpact {
	out := models.BusinessImpact{}
	out.Compliance = complianceImpact(bug, actx.Regulations)
	out.Operational = c.operationalImpact(bug, customer)
	out.Financial = c.financialImpact(bug, out.Operational, actx)
	out.Reputation = reputationScore(bug, actx)
	out.Competitive = competitiveScore(bug, actx)

	out.Score = financialBand(out.Financial.Total)*0.4 +
		out.Reputation*0.25 +
		out.Compliance.Score*0.15 +
		out.Competitive*0.1 +
		out.Operational.Score*0.1
	return out
}

func (c *Calculator) financialImpact(bug models.BugCandidate, ops models.OperationalImpact, actx models.AnalysisContext) models.FinancialImpact {
	var out models.FinancialImpact

	out.Revenue = bug.RevenueLoss
	if out.Revenue <= 0 {
		txnValue := actx.AvgTransactionValue
		if txnValue <= 0 {
			txnValue = c.cfg.AvgTransactionValue
		}
		out.Revenue = float64(bug.AffectedTransactions) * bug.TransactionFailureRate * txnValue
	}

	p := c.cfg.Penalties
	out.Penalties = p.AvailabilityPerHour*bug.DowntimeHours + p.PerformancePerHour*bug.SLAViolationHours
	if bug.DataLoss {
		out.Penalties += p.DataLoss
	}
	for _, id := range bug.AffectedCustomers {
		if sla, ok := actx.CustomSLAs[id]; ok && sla != nil {
			out.Penalties += sla.Penalty(bug, bug.DowntimeHours)
		}
	}
	for _, reg := range actx.Regulations {
		if regulationApplies(bug, reg) {
			out.Penalties += reg.Penalty
		}
	}

	out.Costs = operationalBands[severityOrLow(bug.Severity)]
	if bug.RequiresHotfix {
		out.Costs += hotfixCost
	}
	if bug.RequiresScaling {
		out.Costs += scalingCost
	}
	ticketCost := actx.AvgTicketCost
	if ticketCost <= 0 {
		ticketCost = c.cfg.AvgTicketCost
	}
	out.Costs += float64(ops.SupportTickets) * ticketCost

	out.Total = out.Revenue + out.Costs + out.Penalties
	return out
}

func (c *Calculator) operationalImpact(bug models.BugCandidate, customer models.CustomerImpact) models.OperationalImpact {
	visibility, ok := visibilityMultipliers[strings.ToLower(bug.Visibility)]
	if !ok {
		visibility = 1
	}
	frequency, ok := frequencyMultipliers[strings.ToLower(bug.Frequency)]
	if !ok {
		frequency = 1
	}
	tickets := int(math.Ceil(float64(customer.AffectedCount) * ticketRate * visibility * frequency))

	score := float64(tickets) * 2
	if bug.RequiresHotfix {
		score += 20
	}
	if bug.RequiresScaling {
		score += 15
	}
	return models.OperationalImpact{SupportTickets: tickets, Score: clamp(score, 0, 100)}
}

func complianceImpact(bug models.BugCandidate, regulations []models.Regulation) models.ComplianceImpact {
	var out models.ComplianceImpact
	for _, reg := range regulations {
		if regulationApplies(bug, reg) {
			out.Regulations = append(out.Regulations, reg.Name)
		}
	}
	sort.Strings(out.Regulations)
	switch {
	case len(out.Regulations) > 0:
		out.Score = clamp(regulationScore*float64(len(out.Regulations)), 0, 100)
	case bug.ComplianceImpact:
		out.Score = 50
	}
	return out
}

func regulationApplies(bug models.BugCandidate, reg models.Regulation) bool {
	for _, category := range reg.Categories {
		if strings.EqualFold(category, bug.Category) {
			return true
		}
	}
	return false
}

func reputationScore(bug models.BugCandidate, actx models.AnalysisContext) float64 {
	score := 0.0
	switch strings.ToLower(bug.ReputationRisk) {
	case "high":
		score = 100
	case "medium":
		score = 60
	case "low":
		score = 20
	}
	if strings.EqualFold(bug.Visibility, "high") {
		score += 20
		if actx.SocialMedia {
			score += 20
		}
	}
	return clamp(score, 0, 100)
}

func competitiveScore(bug models.BugCandidate, actx models.AnalysisContext) float64 {
	score := bug.ChurnRisk * 100
	if !actx.CompetitorAnalysis {
		score *= 0.5
	}
	return clamp(score, 0, 100)
}

func financialBand(total float64) float64 {
	switch {
	case total >= 100000:
		return 100
	case total >= 50000:
		return 80
	case total >= 10000:
		return 60
	case total >= 1000:
		return 40
	case total > 0:
		return 20
	default:
		return 0
	}
}

func severityOrLow(s models.Severity) models.Severity {
	if s.Valid() {
		return s
	}
	return models.SeverityLow
}
