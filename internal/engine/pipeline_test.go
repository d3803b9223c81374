package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-triage/internal/classifier"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/detector"
	"github.com/miradorstack/mirador-triage/internal/impact"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/patterns"
	"github.com/miradorstack/mirador-triage/internal/rootcause"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("bug-%d", n)
	}
}

func newPipeline(t *testing.T, store patterns.Store) *Pipeline {
	t.Helper()
	clock := utils.FixedClock{At: base}
	det, err := detector.New(config.DefaultDetector(), nil, clock, sequentialIDs(), nil)
	require.NoError(t, err)
	cls, err := classifier.New(config.DefaultClassifier(), nil, nil)
	require.NoError(t, err)
	analyzer, err := rootcause.New(config.DefaultRootCause(), clock, nil)
	require.NoError(t, err)
	calculator, err := impact.New(config.DefaultImpact(), nil, clock, nil)
	require.NoError(t, err)
	p, err := NewPipeline(nil, config.EngineConfig{Workers: 2}, det, cls, analyzer, calculator, patterns.NewMiner(nil, store), clock)
	require.NoError(t, err)
	return p
}

func failingResults() models.TestResults {
	return models.TestResults{Failures: []models.TestFailure{
		{Name: "checkout", Message: "request timed out", Error: "ECONNREFUSED 10.0.0.2:443", Component: "cart"},
		{Name: "refund", Message: "request timed out", Error: "ECONNREFUSED 10.0.0.2:443", Component: "cart"},
		{Name: "banner", Message: "snapshot differs"},
	}}
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(nil, config.EngineConfig{Workers: 1}, nil, nil, nil, nil, nil, nil)
	require.Error(t, err)

	p := newPipeline(t, nil)
	_, err = NewPipeline(nil, config.EngineConfig{}, p.detector, p.classifier, p.analyzer, p.calculator, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunProducesReport(t *testing.T) {
	var storedBatch string
	var stored []models.PatternInsight
	store := patterns.StoreFunc(func(_ context.Context, batchID string, insights []models.PatternInsight) error {
		storedBatch = batchID
		stored = insights
		return nil
	})

	report, err := newPipeline(t, store).Run(context.Background(), failingResults(), models.AnalysisContext{})
	require.NoError(t, err)

	require.Len(t, report.Assessments, 2)
	assert.Equal(t, "bug-1", report.Assessments[0].Candidate.ID)
	assert.Equal(t, "bug-2", report.Assessments[1].Candidate.ID)
	for _, a := range report.Assessments {
		assert.Equal(t, a.Candidate.ID, a.Classification.BugID)
		assert.Equal(t, a.Candidate.ID, a.Analysis.BugID)
		assert.NotEmpty(t, a.Analysis.Recommendations)
	}

	require.Len(t, report.Queue, 2)
	assert.Equal(t, 1, report.Queue[0].Rank)
	assert.Equal(t, 2, report.Queue[1].Rank)

	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, base, report.Summary.GeneratedAt)
	assert.Equal(t, 2, report.Summary.BySeverity[report.Assessments[0].Classification.Severity])

	require.NotEmpty(t, report.Insights)
	assert.Equal(t, 2, report.Insights[0].Occurrences)
	assert.Equal(t, []string{"bug-1", "bug-2"}, report.Insights[0].BugIDs)
	assert.NotEmpty(t, storedBatch)
	assert.Equal(t, report.Insights, stored)
}

func TestTriageEmptyBatch(t *testing.T) {
	report, err := newPipeline(t, nil).Triage(context.Background(), nil, models.AnalysisContext{})
	require.NoError(t, err)
	assert.Empty(t, report.Assessments)
	assert.Empty(t, report.Queue)
	assert.Equal(t, 0, report.Summary.Total)
}

func TestTriageHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, nil).Triage(ctx, []models.BugCandidate{{ID: "b1"}}, models.AnalysisContext{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTriageDoesNotMutateInput(t *testing.T) {
	candidates := []models.BugCandidate{{ID: "b1", AffectedCustomers: []string{"acme"}, Measurements: map[string]float64{"k": 1}}}
	report, err := newPipeline(t, nil).Triage(context.Background(), candidates, models.AnalysisContext{})
	require.NoError(t, err)

	report.Assessments[0].Candidate.AffectedCustomers[0] = "changed"
	report.Assessments[0].Candidate.Measurements["k"] = 2
	assert.Equal(t, "acme", candidates[0].AffectedCustomers[0])
	assert.Equal(t, 1.0, candidates[0].Measurements["k"])
}

func TestSummarize(t *testing.T) {
	assessments := []models.Assessment{
		{
			Classification: models.Classification{Severity: models.SeverityCritical, Priority: models.PriorityP0},
			Analysis:       models.Analysis{RootCauses: []models.RootCause{{Type: "deployment", Confidence: 0.9}}},
			Impact: models.Impact{
				Business:  models.BusinessImpact{Financial: models.FinancialImpact{Total: 1000}},
				Resources: models.ResourceEstimate{Total: models.ResourceTotal{Hours: 10}},
			},
		},
		{
			Classification: models.Classification{Severity: models.SeverityLow, Priority: models.PriorityP3},
			Impact: models.Impact{
				Business:  models.BusinessImpact{Financial: models.FinancialImpact{Total: 250}},
				Resources: models.ResourceEstimate{Total: models.ResourceTotal{Hours: 2.5}},
			},
		},
	}

	summary := summarize(assessments, base)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.BySeverity[models.SeverityCritical])
	assert.Equal(t, 1, summary.ByPriority[models.PriorityP3])
	assert.InDelta(t, 1250, summary.FinancialExposure, 1e-9)
	assert.InDelta(t, 12.5, summary.EffortHours, 1e-9)
	assert.Equal(t, map[string]int{"deployment": 1}, summary.TopRootCauses)
}

func richContext() models.AnalysisContext {
	poolMax := 100.0
	var metrics []models.MetricSample
	for i := 9; i >= 0; i-- {
		for _, name := range []string{"latency_p95", "latency_p99", "queue_depth"} {
			value := 100.0
			if i <= 1 {
				value = 220
			}
			metrics = append(metrics, models.MetricSample{Timestamp: base.Add(-time.Duration(i*5) * time.Minute), Name: name, Value: value})
		}
	}
	return models.AnalysisContext{
		Customers: []models.Customer{
			{ID: "acme", Tier: models.TierEnterprise},
			{ID: "globex", Tier: models.TierBusiness},
			{ID: "initech", Tier: "unknown"},
		},
		CustomSLAs: map[string]models.SLAPenalty{
			"acme":   models.FlatSLA{PerIncident: 1000, PerHour: 100},
			"globex": models.FlatSLA{PerIncident: 250},
		},
		AvgTransactionValue: 80,
		RecentEvents: []models.ContextEvent{
			{Timestamp: base.Add(-2 * time.Minute), Type: "alert", Description: "latency"},
		},
		Logs: []models.LogEntry{
			{Timestamp: base.Add(-3 * time.Second), Level: "error", Component: "db", Message: "connection refused"},
			{Timestamp: base.Add(-2 * time.Second), Level: "error", Component: "db", Message: "pool exhausted"},
			{Timestamp: base.Add(-time.Second), Level: "error", Component: "db", Message: "query timeout"},
			{Timestamp: base.Add(-time.Minute), Level: "error", Component: "web", Message: "502 from checkout"},
		},
		Metrics: metrics,
		ResourceUsage: []models.ResourceSample{
			{Timestamp: base.Add(-time.Minute), Resource: "cpu", Utilization: 0.95},
			{Timestamp: base.Add(-time.Minute), Resource: "connections", Utilization: 0.97},
		},
		Deployments: []models.Deployment{{ID: "d-1", Service: "checkout", Timestamp: base.Add(-time.Hour)}},
		ComponentGraph: map[string][]string{
			"checkout":  {"payments", "inventory"},
			"payments":  {"ledger"},
			"inventory": {"ledger"},
		},
		ServiceMesh: map[string]models.MeshService{
			"checkout":        {Dependencies: []string{"payments", "inventory"}},
			"payments":        {Capability: "payment"},
			"payments-backup": {Capability: "payment"},
			"inventory":       {Capability: "stock"},
			"web":             {Dependencies: []string{"checkout"}},
			"mobile":          {Dependencies: []string{"checkout"}},
		},
		DataLineage: map[string][]string{"checkout": {"analytics", "billing"}},
		CodeMetrics: map[string]models.CodeMetric{
			"internal/cart/service.go": {Complexity: 25, Lines: 900},
			"internal/cart/price.go":   {Complexity: 30, Lines: 400},
		},
		GitHistory: models.GitHistory{Commits: []models.Commit{
			{Hash: "a1", Timestamp: base.Add(-48 * time.Hour), Files: []string{"internal/cart/service.go", "internal/cart/price.go"}},
		}},
		ConfigHistory: []models.ConfigChange{
			{Timestamp: base.Add(-time.Hour), Key: "db.password"},
			{Timestamp: base.Add(-time.Hour), Key: "feature.color"},
		},
		CurrentConfig: map[string]any{
			"db":   map[string]any{"host": "x", "pool": 500},
			"mode": "turbo",
		},
		RequiredConfigs: []string{"db.host", "cache.ttl", "cache.size"},
		ConfigSchema: map[string]models.SchemaRule{
			"db.pool": {Type: "number", Max: &poolMax},
			"mode":    {Enum: []string{"fast", "safe"}},
			"db.host": {Type: "string", Pattern: `^[a-z]+\.internal$`},
		},
		Milestones:  []models.Milestone{{Name: "ga", Date: base.Add(72 * time.Hour), Critical: true}},
		Regulations: []models.Regulation{{Name: "pci", Categories: []string{"payment"}, Penalty: 5000}},
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	bug := models.BugCandidate{
		ID:                     "bug-1",
		Timestamp:              base,
		Type:                   models.CandidateTestFailure,
		Category:               "payment",
		Component:              "checkout",
		Service:                "checkout",
		Environment:            "production",
		ErrorRate:              0.2,
		AffectedUsers:          0.3,
		Reproducible:           models.ReproducibleAlways,
		Complexity:             models.ComplexityComplex,
		Dependencies:           []string{"payments", "inventory"},
		StackTrace:             "main.checkout(...)\n\t/srv/app/internal/cart/service.go:42 +0x1d\n\t/srv/app/internal/cart/price.go:7 +0x10\n",
		AffectedCustomers:      []string{"acme", "globex", "initech"},
		AffectedTransactions:   1000,
		TransactionFailureRate: 0.05,
		DowntimeHours:          2,
	}
	actx := richContext()

	encode := func(a models.Assessment) [3][]byte {
		var out [3][]byte
		var err error
		out[0], err = json.Marshal(a.Classification)
		require.NoError(t, err)
		out[1], err = json.Marshal(a.Analysis)
		require.NoError(t, err)
		out[2], err = json.Marshal(a.Impact)
		require.NoError(t, err)
		return out
	}

	p := newPipeline(t, nil)
	first := p.Assess(context.Background(), bug.Clone(), actx)
	want := encode(first)
	assert.NotEmpty(t, first.Analysis.Correlations)
	assert.NotEmpty(t, first.Analysis.Configuration.Invalid)
	assert.NotEmpty(t, first.Analysis.Dependencies.Upstream)

	for i := 0; i < 5; i++ {
		got := encode(p.Assess(context.Background(), bug.Clone(), actx))
		for j := range want {
			assert.Equal(t, string(want[j]), string(got[j]))
		}
	}
	got := encode(newPipeline(t, nil).Assess(context.Background(), bug.Clone(), actx))
	for j := range want {
		assert.Equal(t, string(want[j]), string(got[j]))
	}
}
