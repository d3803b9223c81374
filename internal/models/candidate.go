package models

import "time"

// Candidate types emitted by the detector.
const (
	CandidateTestFailure           = "test_failure"
	CandidatePerformanceRegression = "performance_regression"
	CandidatePerformanceTrend      = "performance_trend"
	CandidateErrorPattern          = "error_pattern"
	CandidateHighErrorRate         = "high_error_rate"
	CandidateMemoryLeak            = "memory_leak"
	CandidateConnectionExhaustion  = "connection_pool_exhaustion"
	CandidateFDExhaustion          = "file_descriptor_exhaustion"
)

// PatternMatch records a pattern-library hit on a piece of text.
type PatternMatch struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
}

// BugCandidate is a detected, not-yet-classified defect observation.
// Every optional signal is read as zero/false/absent when unset; the
// candidate is built once and treated as read-only afterwards.
type BugCandidate struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Severity    Severity  `json:"severity,omitempty"`
	Description string    `json:"description"`
	Component   string    `json:"component,omitempty"`
	Service     string    `json:"service,omitempty"`
	Environment string    `json:"environment,omitempty"`

	// Classifier signals.
	AffectedUsers            float64         `json:"affectedUsers,omitempty"`
	ErrorRate                float64         `json:"errorRate,omitempty"`
	FinancialImpact          float64         `json:"financialImpact,omitempty"`
	Degradation              float64         `json:"degradation,omitempty"`
	Occurrences              int             `json:"occurrences,omitempty"`
	Reproducible             Reproducibility `json:"reproducible,omitempty"`
	Workaround               bool            `json:"workaround,omitempty"`
	Complexity               Complexity      `json:"complexity,omitempty"`
	FixRisk                  FixRisk         `json:"fixRisk,omitempty"`
	Dependencies             []string        `json:"dependencies,omitempty"`
	StackTrace               string          `json:"stackTrace,omitempty"`
	MatchedPatterns          []PatternMatch  `json:"matchedPatterns,omitempty"`
	UserImpact               string          `json:"userImpact,omitempty"`
	WorkflowInterruption     bool            `json:"workflowInterruption,omitempty"`
	DataLossRisk             bool            `json:"dataLossRisk,omitempty"`
	ReputationRisk           string          `json:"reputationRisk,omitempty"`
	ComplianceImpact         bool            `json:"complianceImpact,omitempty"`
	ChurnRisk                float64         `json:"churnRisk,omitempty"`
	Trend                    string          `json:"trend,omitempty"`
	RequiresExtensiveTesting bool            `json:"requiresExtensiveTesting,omitempty"`

	// Impact signals.
	AffectedCustomers      []string `json:"affectedCustomers,omitempty"`
	AffectedTransactions   int      `json:"affectedTransactions,omitempty"`
	TransactionFailureRate float64  `json:"transactionFailureRate,omitempty"`
	RevenueLoss            float64  `json:"revenueLoss,omitempty"`
	DowntimeHours          float64  `json:"downtimeHours,omitempty"`
	SLAViolationHours      float64  `json:"slaViolationHours,omitempty"`
	DataLoss               bool     `json:"dataLoss,omitempty"`
	RequiresHotfix         bool     `json:"requiresHotfix,omitempty"`
	RequiresScaling        bool     `json:"requiresScaling,omitempty"`
	Visibility             string   `json:"visibility,omitempty"`
	Frequency              string   `json:"frequency,omitempty"`
	AffectedEnvironments   []string `json:"affectedEnvironments,omitempty"`
	EnvironmentSpecific    bool     `json:"environmentSpecific,omitempty"`

	// Fix profile.
	FilesAffected        int      `json:"filesAffected,omitempty"`
	LinesChanged         int      `json:"linesChanged,omitempty"`
	IntegrationPoints    int      `json:"integrationPoints,omitempty"`
	ExternalDependencies []string `json:"externalDependencies,omitempty"`
	CriticalDependencies []string `json:"criticalDependencies,omitempty"`
	ArchitecturalChange  bool     `json:"architecturalChange,omitempty"`
	QuickFix             bool     `json:"quickFix,omitempty"`
	RefactorPlanned      bool     `json:"refactorPlanned,omitempty"`
	TechDebt             float64  `json:"techDebt,omitempty"`
	RequiresResearch     bool     `json:"requiresResearch,omitempty"`
	RequiresMigration    bool     `json:"requiresMigration,omitempty"`
	InfrastructureChange bool     `json:"infrastructureChange,omitempty"`
	RequiresCoordination bool     `json:"requiresCoordination,omitempty"`
	RequiresDowntime     bool     `json:"requiresDowntime,omitempty"`
	MultiRegion          bool     `json:"multiRegion,omitempty"`
	RegressionTesting    bool     `json:"regressionTesting,omitempty"`
	PerformanceTesting   bool     `json:"performanceTesting,omitempty"`
	SecurityTesting      bool     `json:"securityTesting,omitempty"`

	// Measurements holds detector evidence such as growth rates and utilisation.
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// Clone returns a deep copy so concurrent consumers never share slices or maps.
func (b BugCandidate) Clone() BugCandidate {
	out := b
	out.Dependencies = append([]string(nil), b.Dependencies...)
	out.MatchedPatterns = append([]PatternMatch(nil), b.MatchedPatterns...)
	out.AffectedCustomers = append([]string(nil), b.AffectedCustomers...)
	out.AffectedEnvironments = append([]string(nil), b.AffectedEnvironments...)
	out.ExternalDependencies = append([]string(nil), b.ExternalDependencies...)
	out.CriticalDependencies = append([]string(nil), b.CriticalDependencies...)
	if b.Measurements != nil {
		out.Measurements = make(map[string]float64, len(b.Measurements))
		for k, v := range b.Measurements {
			out.Measurements[k] = v
		}
	}
	return out
}

// HighestPatternSeverity returns the most severe matched pattern severity, or "".
func (b BugCandidate) HighestPatternSeverity() Severity {
	var highest Severity
	for _, m := range b.MatchedPatterns {
		highest = MaxSeverity(highest, m.Severity)
	}
	return highest
}
