package impact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newCalculator(t *testing.T, history HistoryRepository) *Calculator {
	t.Helper()
	c, err := New(config.DefaultImpact(), history, utils.FixedClock{At: base}, nil)
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultImpact()
	cfg.Costs.HourlyRate = -5
	_, err := New(cfg, nil, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRevenueFromTransactions(t *testing.T) {
	impact := newCalculator(t, nil).Calculate(
		models.BugCandidate{ID: "b", AffectedTransactions: 1000, TransactionFailureRate: 0.05},
		models.AnalysisContext{AvgTransactionValue: 500},
	)
	assert.InDelta(t, 25000, impact.Business.Financial.Revenue, 1e-9)
}

func TestRevenueOverride(t *testing.T) {
	impact := newCalculator(t, nil).Calculate(
		models.BugCandidate{RevenueLoss: 1234, AffectedTransactions: 1000, TransactionFailureRate: 1},
		models.AnalysisContext{},
	)
	assert.Equal(t, 1234.0, impact.Business.Financial.Revenue)
}

func TestFinancialPenaltiesAndCosts(t *testing.T) {
	bug := models.BugCandidate{
		Category:          "data",
		DowntimeHours:     2,
		SLAViolationHours: 4,
		DataLoss:          true,
		AffectedCustomers: []string{"acme"},
		RequiresHotfix:    true,
	}
	actx := models.AnalysisContext{
		CustomSLAs:  map[string]models.SLAPenalty{"acme": models.FlatSLA{PerIncident: 1000, PerHour: 100}},
		Regulations: []models.Regulation{{Name: "GDPR", Categories: []string{"data"}, Penalty: 10000}, {Name: "PCI", Categories: []string{"payments"}}},
	}
	impact := newCalculator(t, nil).Calculate(bug, actx)

	fin := impact.Business.Financial
	assert.InDelta(t, 65200, fin.Penalties, 1e-9)
	assert.InDelta(t, 5525, fin.Costs, 1e-9)
	assert.InDelta(t, 70725, fin.Total, 1e-9)
	assert.Equal(t, 1, impact.Business.Operational.SupportTickets)
	assert.Equal(t, []string{"GDPR"}, impact.Business.Compliance.Regulations)
	assert.Equal(t, 40.0, impact.Business.Compliance.Score)
}

func TestSLAPenaltyFunc(t *testing.T) {
	var seen float64
	actx := models.AnalysisContext{CustomSLAs: map[string]models.SLAPenalty{
		"acme": models.SLAPenaltyFunc(func(_ models.BugCandidate, hours float64) float64 {
			seen = hours
			return 42
		}),
	}}
	impact := newCalculator(t, nil).Calculate(models.BugCandidate{AffectedCustomers: []string{"acme"}, DowntimeHours: 3}, actx)
	assert.Equal(t, 3.0, seen)
	assert.InDelta(t, 3042, impact.Business.Financial.Penalties, 1e-9)
}

func roster() []models.Customer {
	return []models.Customer{
		{ID: "e1", Tier: "tier1"}, {ID: "e2", Tier: "tier1"},
		{ID: "b1", Tier: "tier2"}, {ID: "b2", Tier: "tier2"}, {ID: "b3", Tier: "tier2"},
		{ID: "s1", Tier: "tier3"}, {ID: "s2", Tier: "tier3"}, {ID: "s3", Tier: "tier3"}, {ID: "s4", Tier: "tier3"}, {ID: "s5", Tier: "TIER3"},
	}
}

func TestCustomerImpact(t *testing.T) {
	c := newCalculator(t, nil)
	tests := []struct {
		name     string
		bug      models.BugCandidate
		actx     models.AnalysisContext
		count    int
		score    float64
		severity models.Severity
	}{
		{
			name:     "explicit customers",
			bug:      models.BugCandidate{AffectedCustomers: []string{"e1", "b1", "s1"}},
			actx:     models.AnalysisContext{Customers: roster()},
			count:    3,
			score:    17,
			severity: models.SeverityHigh,
		},
		{
			name:     "fraction of roster",
			bug:      models.BugCandidate{AffectedUsers: 0.5},
			actx:     models.AnalysisContext{Customers: roster()[:2]},
			count:    1,
			score:    50,
			severity: models.SeverityHigh,
		},
		{
			name:     "no roster",
			bug:      models.BugCandidate{AffectedUsers: 0.9},
			score:    90,
			severity: models.SeverityCritical,
		},
		{
			name:     "many enterprise customers",
			bug:      models.BugCandidate{AffectedCustomers: []string{"x", "y", "z"}},
			actx:     models.AnalysisContext{Customers: []models.Customer{{ID: "x", Tier: "tier1"}, {ID: "y", Tier: "tier1"}, {ID: "z", Tier: "tier1"}}},
			count:    3,
			score:    100,
			severity: models.SeverityCritical,
		},
		{
			name:     "unaffected",
			severity: models.SeverityLow,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.customerImpact(tc.bug, tc.actx)
			assert.Equal(t, tc.count, got.AffectedCount)
			assert.InDelta(t, tc.score, got.Score, 1e-9)
			assert.Equal(t, tc.severity, got.Severity)
		})
	}
}

func TestResourceEstimate(t *testing.T) {
	bug := models.BugCandidate{
		Complexity:           models.ComplexityComplex,
		ArchitecturalChange:  true,
		FilesAffected:        12,
		ExternalDependencies: []string{"stripe"},
		RequiresResearch:     true,
		RegressionTesting:    true,
		RequiresMigration:    true,
		MultiRegion:          true,
	}
	est := newCalculator(t, nil).Calculate(bug, models.AnalysisContext{}).Resources

	assert.Equal(t, 1.0, est.Calibration)
	assert.InDelta(t, 328, est.Development.Hours, 1e-9)
	assert.InDelta(t, 172, est.Testing.Hours, 1e-9)
	assert.InDelta(t, 20, est.Deployment.Hours, 1e-9)
	assert.InDelta(t, 520, est.Total.Hours, 1e-9)
	assert.Equal(t, 7, est.Total.People)
	assert.InDelta(t, 42640, est.Development.Cost, 1e-6)
	assert.InDelta(t, 17888, est.Testing.Cost, 1e-6)
	assert.InDelta(t, 3120, est.Deployment.Cost, 1e-6)
	assert.InDelta(t, 63648, est.Total.Cost, 1e-6)
}

func TestCalibrationFromHistory(t *testing.T) {
	history := NewRingHistory(8)
	c := newCalculator(t, history)
	bug := models.BugCandidate{ID: "b", Category: "runtime", Complexity: models.ComplexityModerate}

	c.RecordOutcome(bug, 10, 20)
	c.RecordOutcome(bug, 0, 5)
	require.Len(t, history.Records(), 1)

	est := c.Calculate(bug, models.AnalysisContext{HistoricalEstimates: []models.EstimateRecord{
		{Complexity: models.ComplexityModerate, Category: "runtime", EstimatedHours: 10, ActualHours: 10},
		{Complexity: models.ComplexityComplex, Category: "runtime", EstimatedHours: 10, ActualHours: 100},
	}}).Resources

	assert.InDelta(t, 1.35, est.Calibration, 1e-9)
	assert.InDelta(t, 32.4, est.Development.Hours, 1e-9)
}

func TestCalibrationSkipsNegativeActuals(t *testing.T) {
	c := newCalculator(t, nil)
	bug := models.BugCandidate{ID: "b", Category: "runtime", Complexity: models.ComplexityModerate}

	est := c.Calculate(bug, models.AnalysisContext{HistoricalEstimates: []models.EstimateRecord{
		{Complexity: models.ComplexityModerate, Category: "runtime", EstimatedHours: 10, ActualHours: -500},
		{Complexity: models.ComplexityModerate, Category: "runtime", EstimatedHours: 10, ActualHours: 20},
	}}).Resources

	assert.InDelta(t, 1.7, est.Calibration, 1e-9)
	assert.Positive(t, est.Development.Hours)
	assert.Positive(t, est.Total.Cost)
}

func TestRingHistoryIsBounded(t *testing.T) {
	h := NewRingHistory(2)
	for i := 1; i <= 3; i++ {
		h.Append(models.EstimateRecord{EstimatedHours: float64(i)})
	}
	records := h.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 2.0, records[0].EstimatedHours)
}

func TestTimelineMilestones(t *testing.T) {
	bug := models.BugCandidate{Component: "checkout"}
	impact := newCalculator(t, nil).Calculate(bug, models.AnalysisContext{Milestones: []models.Milestone{
		{Name: "beta", Date: base.Add(3 * 24 * time.Hour), Critical: true},
		{Name: "ga", Date: base.Add(30 * 24 * time.Hour)},
		{Name: "past", Date: base.Add(-24 * time.Hour)},
		{Name: "billing", Date: base.Add(24 * time.Hour), Components: []string{"billing"}},
	}})

	tl := impact.Timeline
	assert.Equal(t, 5.0, tl.FixDurationDays)
	require.Len(t, tl.MilestoneImpact, 2)
	assert.Equal(t, "beta", tl.MilestoneImpact[0].Name)
	assert.True(t, tl.MilestoneImpact[0].AtRisk)
	assert.InDelta(t, 3, tl.MilestoneImpact[0].DaysUntil, 1e-9)
	assert.False(t, tl.MilestoneImpact[1].AtRisk)
	assert.True(t, tl.CriticalPath)
	assert.Equal(t, 75.0, tl.Score)
}

func TestRiskAssessment(t *testing.T) {
	c := newCalculator(t, nil)

	risk := c.Calculate(models.BugCandidate{Frequency: "constant"}, models.AnalysisContext{}).Risk
	assert.Equal(t, 1.0, risk.Probability)
	assert.InDelta(t, 2, risk.Severity, 1e-9)
	assert.InDelta(t, 40, risk.Score, 1e-9)

	risk = c.Calculate(models.BugCandidate{
		Reproducible:         models.ReproducibleAlways,
		EnvironmentSpecific:  true,
		AffectedEnvironments: []string{"staging"},
	}, models.AnalysisContext{Environments: []string{"dev", "staging"}}).Risk
	assert.InDelta(t, 0.4, risk.Probability, 1e-9)
	assert.Contains(t, risk.Mitigation, "verify the fix in every affected environment")
}

func TestRecommendationLevels(t *testing.T) {
	c := newCalculator(t, nil)

	low := c.Calculate(models.BugCandidate{Frequency: "constant"}, models.AnalysisContext{})
	assert.InDelta(t, 8.9, low.TotalScore, 1e-9)
	assert.Equal(t, models.ActionLow, low.Recommendation.Priority)
	assert.Equal(t, "as resources permit", low.Recommendation.Timeline)

	immediate := c.Calculate(models.BugCandidate{AffectedUsers: 0.9}, models.AnalysisContext{})
	assert.Equal(t, models.ActionImmediate, immediate.Recommendation.Priority)
	assert.Equal(t, "4 hours", immediate.Recommendation.Timeline)
	assert.Contains(t, immediate.Recommendation.Reasoning, "critical customer impact")

	high := c.Calculate(models.BugCandidate{DataLoss: true}, models.AnalysisContext{})
	assert.InDelta(t, 50500, high.Business.Financial.Total, 1e-9)
	assert.Less(t, high.TotalScore, 60.0)
	assert.Equal(t, models.ActionHigh, high.Recommendation.Priority)
	assert.Equal(t, "1 week", high.Recommendation.Timeline)
	assert.Equal(t, high.Resources.Total, high.Recommendation.Resources)
}

func TestCalculateIsDeterministic(t *testing.T) {
	c := newCalculator(t, nil)
	bug := models.BugCandidate{
		ID:                "b",
		Severity:          models.SeverityHigh,
		AffectedCustomers: []string{"e1", "s1", "s2"},
		Degradation:       0.3,
		Complexity:        models.ComplexitySimple,
	}
	actx := models.AnalysisContext{Customers: roster()}
	assert.Equal(t, c.Calculate(bug, actx), c.Calculate(bug, actx))
}
