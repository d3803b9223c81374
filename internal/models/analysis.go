package models

import "time"

// CorrelationType enumerates the correlation detectors.
type CorrelationType string

const (
	CorrelationTemporal               CorrelationType = "temporal"
	CorrelationErrorSpike             CorrelationType = "error_spike"
	CorrelationErrorChain             CorrelationType = "error_chain"
	CorrelationPerformanceDegradation CorrelationType = "performance_degradation"
	CorrelationResourceSaturation     CorrelationType = "resource_saturation"
	CorrelationDeployment             CorrelationType = "deployment"
)

// Correlation links a bug to another signal. Evidence fields are populated per type.
type Correlation struct {
	Type       CorrelationType `json:"type"`
	Confidence float64         `json:"confidence"`

	// temporal
	Event     string        `json:"event,omitempty"`
	TimeDelta time.Duration `json:"timeDelta,omitempty"`

	// error_spike
	BugWindowRate float64 `json:"bugWindowRate,omitempty"`
	AverageRate   float64 `json:"averageRate,omitempty"`
	MaxWindowRate float64 `json:"maxWindowRate,omitempty"`

	// error_chain
	Chain        []ErrorEvent `json:"chain,omitempty"`
	KnownPattern string       `json:"knownPattern,omitempty"`

	// performance_degradation
	Metric           string  `json:"metric,omitempty"`
	Baseline         float64 `json:"baseline,omitempty"`
	Current          float64 `json:"current,omitempty"`
	DegradationRatio float64 `json:"degradationRatio,omitempty"`
	SampleCount      int     `json:"sampleCount,omitempty"`

	// resource_saturation
	Resource    string  `json:"resource,omitempty"`
	Utilization float64 `json:"utilization,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`

	// deployment
	DeploymentID string `json:"deploymentId,omitempty"`
	Service      string `json:"service,omitempty"`
}

// ErrorEvent is an error-level signal used for chain detection.
type ErrorEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
	Component     string    `json:"component,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// TimelineEvent records one step of the incident progression.
type TimelineEvent struct {
	Timestamp     time.Time     `json:"timestamp"`
	Event         string        `json:"event"`
	Source        string        `json:"source"`
	Component     string        `json:"component,omitempty"`
	SincePrevious time.Duration `json:"sincePrevious"`
}

// DependencyImpact is the structural blast radius of a bug.
type DependencyImpact struct {
	Component     string   `json:"component,omitempty"`
	Transitive    []string `json:"transitive,omitempty"`
	Upstream      []string `json:"upstream,omitempty"`
	Downstream    []string `json:"downstream,omitempty"`
	CriticalPath  []string `json:"criticalPath,omitempty"`
	DataConsumers []string `json:"dataConsumers,omitempty"`
}

// Hotspot is an affected file with known complexity metrics.
type Hotspot struct {
	File       string  `json:"file"`
	Complexity float64 `json:"complexity"`
	Lines      int     `json:"lines,omitempty"`
	Churn      int     `json:"churn,omitempty"`
}

// CodePath links a stack trace to files, their metrics, and recent commits.
type CodePath struct {
	AffectedFiles []string  `json:"affectedFiles"`
	Hotspots      []Hotspot `json:"hotspots"`
	RecentChanges []Commit  `json:"recentChanges"`
}

// ConfigDrift is a config key changed shortly before the bug.
type ConfigDrift struct {
	Change ConfigChange `json:"change"`
	Risk   string       `json:"risk"`
}

// ConfigViolation is a schema violation in the current config.
type ConfigViolation struct {
	Key     string `json:"key"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ConfigurationAnalysis reports drift, missing keys and invalid values.
type ConfigurationAnalysis struct {
	Drift   []ConfigDrift     `json:"drift"`
	Missing []string          `json:"missing"`
	Invalid []ConfigViolation `json:"invalid"`
}

// Root cause types.
const (
	RootCauseConfigurationChange = "configuration_change"
	RootCauseDeployment          = "deployment"
	RootCauseResourceExhaustion  = "resource_exhaustion"
	RootCauseKnownPattern        = "known_pattern"
	RootCauseCodeComplexity      = "code_complexity"
)

// RootCause is one candidate explanation.
type RootCause struct {
	Type        string   `json:"type"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
}

// ContributingFactor is a signal that made the bug worse without explaining it.
type ContributingFactor struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Analysis is the root-cause analyzer output for one candidate.
type Analysis struct {
	BugID               string                `json:"bugId"`
	Correlations        []Correlation         `json:"correlations"`
	Timeline            []TimelineEvent       `json:"timeline"`
	Dependencies        DependencyImpact      `json:"dependencies"`
	CodePath            CodePath              `json:"codePath"`
	Configuration       ConfigurationAnalysis `json:"configuration"`
	RootCauses          []RootCause           `json:"rootCauses"`
	ContributingFactors []ContributingFactor  `json:"contributingFactors"`
	Recommendations     []Recommendation      `json:"recommendations"`
}

// PrimaryCause returns the highest-confidence root cause, if any.
func (a Analysis) PrimaryCause() (RootCause, bool) {
	if len(a.RootCauses) == 0 {
		return RootCause{}, false
	}
	return a.RootCauses[0], true
}
