package rootcause

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

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(config.DefaultRootCause(), utils.FixedClock{At: base}, nil)
	require.NoError(t, err)
	return a
}

func bugAt(at time.Time) models.BugCandidate {
	return models.BugCandidate{ID: "bug-1", Timestamp: at, Type: models.CandidateTestFailure, Component: "checkout"}
}

func recTypes(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}

func factorTypes(factors []models.ContributingFactor) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = f.Type
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultRootCause()
	cfg.PatternCacheSize = 0
	_, err := New(cfg, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestDeploymentCorrelation(t *testing.T) {
	a := newAnalyzer(t)
	analysis := a.Analyze(bugAt(base.Add(2*time.Hour)), models.AnalysisContext{
		Deployments: []models.Deployment{{ID: "deploy-42", Service: "checkout", Timestamp: base}},
	})

	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, models.CorrelationDeployment, c.Type)
	assert.InDelta(t, 0.9167, c.Confidence, 1e-3)
	assert.Equal(t, "deploy-42", c.DeploymentID)
	assert.Equal(t, 2*time.Hour, c.TimeDelta)

	primary, ok := analysis.PrimaryCause()
	require.True(t, ok)
	assert.Equal(t, models.RootCauseDeployment, primary.Type)
	assert.InDelta(t, c.Confidence, primary.Confidence, 1e-12)
	assert.Equal(t, []string{"deployment_rollback"}, recTypes(analysis.Recommendations))
}

func TestMissingBugTimestampUsesClock(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(models.BugCandidate{ID: "b"}, models.AnalysisContext{
		Deployments: []models.Deployment{{ID: "d", Timestamp: base.Add(-2 * time.Hour)}},
	})
	require.Len(t, analysis.Correlations, 1)
	assert.InDelta(t, 0.9167, analysis.Correlations[0].Confidence, 1e-3)
}

func TestWeakCorrelationsAreDropped(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{
		Deployments: []models.Deployment{{ID: "old", Timestamp: base.Add(-20 * time.Hour)}},
	})
	assert.Empty(t, analysis.Correlations)
	assert.Empty(t, analysis.RootCauses)
	assert.Equal(t, []string{"investigate"}, recTypes(analysis.Recommendations))
}

func TestTemporalCorrelation(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{
		RecentEvents: []models.ContextEvent{
			{Timestamp: base.Add(-time.Minute), Type: "alert", Description: "disk full"},
			{Timestamp: base.Add(-4 * time.Minute), Type: "restart", Description: "pod restarted"},
		},
	})
	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, models.CorrelationTemporal, c.Type)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.Equal(t, "alert: disk full", c.Event)
	assert.Equal(t, -time.Minute, c.TimeDelta)
	assert.Contains(t, factorTypes(analysis.ContributingFactors), "temporal")
}

func TestErrorSpike(t *testing.T) {
	var logs []models.LogEntry
	for i := 0; i < 10; i++ {
		logs = append(logs, models.LogEntry{Timestamp: base.Add(time.Duration(i)*time.Minute + time.Second), Level: "error", Message: "boom"})
	}
	for i := 2; i <= 10; i++ {
		logs = append(logs, models.LogEntry{Timestamp: base.Add(5*time.Minute + time.Duration(i)*time.Second), Level: "error", Message: "boom"})
	}

	analysis := newAnalyzer(t).Analyze(bugAt(base.Add(5*time.Minute+30*time.Second)), models.AnalysisContext{Logs: logs})

	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, models.CorrelationErrorSpike, c.Type)
	assert.Equal(t, 10.0, c.BugWindowRate)
	assert.InDelta(t, 1.9, c.AverageRate, 1e-9)
	assert.Equal(t, 10.0, c.MaxWindowRate)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
}

func TestErrorSpikeNeedsSamples(t *testing.T) {
	logs := []models.LogEntry{
		{Timestamp: base, Level: "error", Message: "a"},
		{Timestamp: base, Level: "error", Message: "b"},
	}
	_, ok := newAnalyzer(t).errorSpike(base, errorEventsFrom(logs))
	assert.False(t, ok)
}

func TestErrorSpikeIgnoresUndatedAndDistantErrors(t *testing.T) {
	var logs []models.LogEntry
	for i := 0; i < 5; i++ {
		logs = append(logs, models.LogEntry{Timestamp: base.Add(time.Duration(i) * time.Second), Level: "error", Message: "boom"})
	}
	logs = append(logs,
		models.LogEntry{Level: "error", Message: "no timestamp"},
		models.LogEntry{Timestamp: base.AddDate(-3, 0, 0), Level: "error", Message: "ancient"},
	)

	errs := errorEventsFrom(logs)
	require.Len(t, errs, 6)
	assert.False(t, errs[0].Timestamp.IsZero())

	// every remaining error sits in the bug's bucket, so there is no spike
	_, ok := newAnalyzer(t).errorSpike(base, errs)
	assert.False(t, ok)

	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{Logs: logs})
	assert.Empty(t, analysis.Correlations)
}

func errorEventsFrom(logs []models.LogEntry) []models.ErrorEvent {
	return errorEvents(models.AnalysisContext{Logs: logs})
}

func TestKnownErrorChain(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{
		Logs: []models.LogEntry{
			{Timestamp: base.Add(-3 * time.Second), Level: "error", Component: "db", Message: "connection refused"},
			{Timestamp: base.Add(-2 * time.Second), Level: "error", Component: "db", Message: "query timeout"},
			{Timestamp: base.Add(-1 * time.Second), Level: "error", Component: "db", Message: "service unavailable"},
		},
	})

	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, models.CorrelationErrorChain, c.Type)
	assert.Equal(t, 0.9, c.Confidence)
	assert.Equal(t, "connection_cascade", c.KnownPattern)
	assert.Len(t, c.Chain, 3)

	primary, ok := analysis.PrimaryCause()
	require.True(t, ok)
	assert.Equal(t, models.RootCauseKnownPattern, primary.Type)
	assert.Equal(t, []string{"runbook"}, recTypes(analysis.Recommendations))
}

func TestUnknownChainRelatedBySession(t *testing.T) {
	a := newAnalyzer(t)
	chains := a.errorChains(base, errorEventsFrom([]models.LogEntry{
		{Timestamp: base, Level: "error", SessionID: "s1", Message: "a"},
		{Timestamp: base.Add(time.Second), Level: "error", SessionID: "s1", Message: "b"},
		{Timestamp: base.Add(2 * time.Second), Level: "error", SessionID: "s1", Message: "c"},
	}))
	require.Len(t, chains, 1)
	assert.Equal(t, 0.7, chains[0].Confidence)
	assert.Empty(t, chains[0].KnownPattern)
}

func TestChainBrokenByGapOrUnrelatedErrors(t *testing.T) {
	a := newAnalyzer(t)
	chains := a.errorChains(base, errorEventsFrom([]models.LogEntry{
		{Timestamp: base.Add(-20 * time.Second), Level: "error", SessionID: "s1", Message: "a"},
		{Timestamp: base.Add(-19 * time.Second), Level: "error", SessionID: "s1", Message: "b"},
		{Timestamp: base.Add(-10 * time.Second), Level: "error", SessionID: "s1", Message: "c"},
		{Timestamp: base.Add(-9 * time.Second), Level: "error", SessionID: "s2", Message: "d"},
		{Timestamp: base.Add(-8 * time.Second), Level: "error", Message: "e"},
	}))
	assert.Empty(t, chains)
}

func TestChainRelatedByCausePair(t *testing.T) {
	cfg := config.DefaultRootCause()
	cfg.CausePairs = []config.CausePair{{Cause: "db", Effect: "api"}, {Cause: "api", Effect: "web"}}
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	chains := a.errorChains(base, errorEventsFrom([]models.LogEntry{
		{Timestamp: base, Level: "error", Component: "db", Message: "x"},
		{Timestamp: base.Add(time.Second), Level: "error", Component: "api", Message: "y"},
		{Timestamp: base.Add(2 * time.Second), Level: "error", Component: "web", Message: "z"},
	}))
	assert.Len(t, chains, 1)
}

func TestPerformanceDegradation(t *testing.T) {
	var metrics []models.MetricSample
	for i := 9; i >= 0; i-- {
		value := 100.0
		if i <= 1 {
			value = 200
		}
		metrics = append(metrics, models.MetricSample{Timestamp: base.Add(-time.Duration(i*5) * time.Minute), Name: "latency_p95", Value: value})
	}

	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{Metrics: metrics})

	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, models.CorrelationPerformanceDegradation, c.Type)
	assert.Equal(t, "latency_p95", c.Metric)
	assert.Equal(t, 100.0, c.Baseline)
	assert.Equal(t, 200.0, c.Current)
	assert.InDelta(t, 1.0, c.DegradationRatio, 1e-9)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
	assert.Contains(t, factorTypes(analysis.ContributingFactors), "performance_degradation")
	assert.Contains(t, recTypes(analysis.Recommendations), "performance_profiling")
}

func TestResourceSaturation(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{
		ResourceUsage: []models.ResourceSample{
			{Timestamp: base.Add(-time.Minute), Resource: "CPU", Utilization: 0.95},
			{Timestamp: base, Resource: "memory", Utilization: 0.5},
			{Timestamp: base.Add(-time.Hour), Resource: "disk", Utilization: 0.99},
		},
	})
	require.Len(t, analysis.Correlations, 1)
	c := analysis.Correlations[0]
	assert.Equal(t, "cpu", c.Resource)
	assert.Equal(t, 0.8, c.Confidence)

	primary, ok := analysis.PrimaryCause()
	require.True(t, ok)
	assert.Equal(t, models.RootCauseResourceExhaustion, primary.Type)
	assert.Equal(t, []string{"capacity"}, recTypes(analysis.Recommendations))
}

func TestTimelineOrdering(t *testing.T) {
	bug := bugAt(base)
	bug.Description = "checkout failed"
	analysis := newAnalyzer(t).Analyze(bug, models.AnalysisContext{
		RecentEvents: []models.ContextEvent{{Timestamp: base.Add(-2 * time.Minute), Type: "alert", Description: "latency"}},
		Deployments:  []models.Deployment{{ID: "d-1", Version: "v2", Timestamp: base.Add(-8 * time.Minute)}},
		Logs: []models.LogEntry{
			{Timestamp: base.Add(time.Minute), Level: "warn", Message: "retrying"},
			{Timestamp: base.Add(-time.Minute), Level: "info", Message: "noise"},
			{Timestamp: base.Add(-7 * time.Minute), Level: "error", Message: "too early"},
		},
	})

	tl := analysis.Timeline
	require.Len(t, tl, 4)
	assert.Equal(t, "deployment d-1 v2", tl[0].Event)
	assert.Equal(t, "alert: latency", tl[1].Event)
	assert.Equal(t, "checkout failed", tl[2].Event)
	assert.Equal(t, "bug", tl[2].Source)
	assert.Equal(t, "retrying", tl[3].Event)

	assert.Zero(t, tl[0].SincePrevious)
	assert.Equal(t, 6*time.Minute, tl[1].SincePrevious)
	assert.Equal(t, 2*time.Minute, tl[2].SincePrevious)
	assert.Equal(t, time.Minute, tl[3].SincePrevious)
}

func TestAnalyzeDependencies(t *testing.T) {
	actx := models.AnalysisContext{
		ComponentGraph: map[string][]string{
			"checkout":  {"payments", "inventory"},
			"payments":  {"ledger", "checkout"},
			"inventory": {"ledger"},
		},
		ServiceMesh: map[string]models.MeshService{
			"checkout":        {Dependencies: []string{"payments", "inventory"}},
			"payments":        {Capability: "payment"},
			"payments-backup": {Capability: "payment"},
			"inventory":       {Capability: "stock"},
			"web":             {Dependencies: []string{"checkout"}},
		},
		DataLineage: map[string][]string{"checkout": {"analytics"}},
	}
	impact := analyzeDependencies(bugAt(base), actx)

	assert.Equal(t, []string{"payments", "ledger", "inventory"}, impact.Transitive)
	assert.Equal(t, []string{"payments", "inventory"}, impact.Downstream)
	assert.Equal(t, []string{"inventory"}, impact.CriticalPath)
	assert.Equal(t, []string{"web"}, impact.Upstream)
	assert.Equal(t, []string{"analytics"}, impact.DataConsumers)
}

func TestUpstreamFailureFactor(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base), models.AnalysisContext{
		ServiceMesh: map[string]models.MeshService{
			"web":      {Dependencies: []string{"checkout"}},
			"checkout": {},
		},
		Logs: []models.LogEntry{
			{Timestamp: base.Add(-time.Minute), Level: "error", Component: "web", Message: "502 from checkout"},
			{Timestamp: base.Add(-10 * time.Minute), Level: "error", Component: "web", Message: "stale"},
		},
	})

	var upstream []models.ContributingFactor
	for _, f := range analysis.ContributingFactors {
		if f.Type == "upstream_failure" {
			upstream = append(upstream, f)
		}
	}
	require.Len(t, upstream, 1)
	assert.Equal(t, "web errors precede the bug by 1m0s", upstream[0].Description)
}

const cartDiff = `diff --git a/internal/cart/service.go b/internal/cart/service.go
index 1111111..2222222 100644
--- a/internal/cart/service.go
+++ b/internal/cart/service.go
@@ -1,1 +1,1 @@
-old
+new
`

func TestCodePath(t *testing.T) {
	bug := bugAt(base)
	bug.StackTrace = "goroutine 1 [running]:\nmain.checkout(...)\n\t/srv/app/internal/cart/service.go:42 +0x1d\n    at handler (/srv/web/src/api.js:10:5)\n"

	analysis := newAnalyzer(t).Analyze(bug, models.AnalysisContext{
		CodeMetrics: map[string]models.CodeMetric{
			"internal/cart/service.go": {Complexity: 25, Lines: 900},
			"src/api.js":               {Complexity: 4},
		},
		GitHistory: models.GitHistory{Commits: []models.Commit{
			{Hash: "a1", Timestamp: base.Add(-48 * time.Hour), Diff: cartDiff},
			{Hash: "b2", Timestamp: base.Add(-10 * 24 * time.Hour), Files: []string{"internal/cart/service.go"}},
			{Hash: "c3", Timestamp: base.Add(-24 * time.Hour), Files: []string{"docs/readme.md"}},
		}},
	})

	path := analysis.CodePath
	assert.Equal(t, []string{"/srv/app/internal/cart/service.go", "/srv/web/src/api.js"}, path.AffectedFiles)
	require.Len(t, path.Hotspots, 1)
	assert.Equal(t, "internal/cart/service.go", path.Hotspots[0].File)
	require.Len(t, path.RecentChanges, 1)
	assert.Equal(t, "a1", path.RecentChanges[0].Hash)
	assert.Equal(t, []string{"internal/cart/service.go"}, path.RecentChanges[0].Files)

	primary, ok := analysis.PrimaryCause()
	require.True(t, ok)
	assert.Equal(t, models.RootCauseCodeComplexity, primary.Type)
	assert.Equal(t, 0.6, primary.Confidence)
	assert.Contains(t, factorTypes(analysis.ContributingFactors), "recent_code_change")
}

func TestParseStackTraceFormats(t *testing.T) {
	trace := `Traceback (most recent call last):
  File "/app/orders/views.py", line 12, in create
java.lang.NullPointerException
	at com.acme.OrderService.place(OrderService.java:88)
    at /srv/web/lib/util.ts:3:14
	at com.acme.OrderService.place(OrderService.java:91)`
	assert.Equal(t, []string{"/app/orders/views.py", "OrderService.java", "/srv/web/lib/util.ts"}, parseStackTrace(trace))
	assert.Nil(t, parseStackTrace(""))
}

func ptr(v float64) *float64 { return &v }

func TestConfigurationAnalysis(t *testing.T) {
	a := newAnalyzer(t)
	analysis := a.Analyze(bugAt(base), models.AnalysisContext{
		ConfigHistory: []models.ConfigChange{
			{Timestamp: base.Add(-time.Hour), Key: "db.password"},
			{Timestamp: base.Add(-2 * time.Hour), Key: "feature.color"},
			{Timestamp: base.Add(-48 * time.Hour), Key: "db.timeout"},
		},
		CurrentConfig: map[string]any{
			"db":   map[string]any{"host": "x", "pool": 500},
			"mode": "turbo",
		},
		RequiredConfigs: []string{"db.host", "cache.ttl"},
		ConfigSchema: map[string]models.SchemaRule{
			"db.pool": {Type: "number", Max: ptr(100)},
			"mode":    {Enum: []string{"fast", "safe"}},
			"db.host": {Type: "string", Pattern: `^[a-z]+\.internal$`},
			"absent":  {Type: "string"},
		},
	})

	cfg := analysis.Configuration
	require.Len(t, cfg.Drift, 2)
	assert.Equal(t, "high", cfg.Drift[0].Risk)
	assert.Equal(t, "medium", cfg.Drift[1].Risk)
	assert.Equal(t, []string{"cache.ttl"}, cfg.Missing)

	require.Len(t, cfg.Invalid, 3)
	assert.Equal(t, "db.host", cfg.Invalid[0].Key)
	assert.Equal(t, "pattern", cfg.Invalid[0].Rule)
	assert.Equal(t, "max", cfg.Invalid[1].Rule)
	assert.Equal(t, "enum", cfg.Invalid[2].Rule)
	assert.True(t, a.patterns.Contains(`^[a-z]+\.internal$`))

	primary, ok := analysis.PrimaryCause()
	require.True(t, ok)
	assert.Equal(t, models.RootCauseConfigurationChange, primary.Type)
	assert.Equal(t, 0.85, primary.Confidence)
	assert.Contains(t, factorTypes(analysis.ContributingFactors), "missing_configuration")
	assert.Equal(t, []string{"configuration_rollback"}, recTypes(analysis.Recommendations))
}

func TestSchemaTypeMismatch(t *testing.T) {
	violations := newAnalyzer(t).validateValue("retries", "three", models.SchemaRule{Type: "integer", Min: ptr(1)})
	require.Len(t, violations, 1)
	assert.Equal(t, "type", violations[0].Rule)
}

func TestRootCausesSortedByConfidence(t *testing.T) {
	analysis := newAnalyzer(t).Analyze(bugAt(base.Add(time.Hour)), models.AnalysisContext{
		Deployments:   []models.Deployment{{ID: "d", Timestamp: base}},
		ConfigHistory: []models.ConfigChange{{Timestamp: base, Key: "ui.theme"}},
		ResourceUsage: []models.ResourceSample{{Timestamp: base.Add(time.Hour), Resource: "disk", Utilization: 0.9}},
	})
	var types []string
	for _, c := range analysis.RootCauses {
		types = append(types, c.Type)
	}
	assert.Equal(t, []string{
		models.RootCauseDeployment,
		models.RootCauseResourceExhaustion,
		models.RootCauseConfigurationChange,
	}, types)
	assert.Equal(t, []string{"deployment_rollback", "capacity", "configuration_rollback"}, recTypes(analysis.Recommendations))
}
