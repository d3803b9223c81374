package models

import "time"

// TestResults is the raw telemetry bundle handed to the detector.
type TestResults struct {
	Failures    []TestFailure       `json:"failures"`
	Performance []PerformanceMetric `json:"performance"`
	Logs        []LogEntry          `json:"logs"`
	Resources   Resources           `json:"resources"`
}

// TestFailure is one failed test case.
type TestFailure struct {
	Name       string    `json:"name"`
	Suite      string    `json:"suite,omitempty"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	StackTrace string    `json:"stackTrace,omitempty"`
	Component  string    `json:"component,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PerformanceMetric is a single timed operation, optionally with a precomputed trend.
type PerformanceMetric struct {
	Name       string    `json:"name"`
	DurationMs float64   `json:"duration"`
	Component  string    `json:"component,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Trend      Trend     `json:"trend"`
}

// Trend summarises a metric's recent direction.
type Trend struct {
	Degradation float64 `json:"degradation"`
	Direction   string  `json:"direction,omitempty"`
}

// LogEntry is one structured log line.
type LogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	Component     string    `json:"component,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// Resources groups resource counter series.
type Resources struct {
	Memory              []MemorySample  `json:"memory"`
	Connections         []CounterSample `json:"connections"`
	ConnectionLimit     float64         `json:"connectionLimit"`
	FileDescriptors     []CounterSample `json:"fileDescriptors"`
	FileDescriptorLimit float64         `json:"fileDescriptorLimit"`
	Scrapes             []Scrape        `json:"scrapes,omitempty"`
}

// Scrape is a Prometheus text exposition taken at Timestamp. Bundles may
// reference the scrape file by Path instead of inlining Body.
type Scrape struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
	Body      string    `json:"body,omitempty"`
}

// MemorySample is a heap reading in megabytes.
type MemorySample struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapUsedMB float64   `json:"heapUsed"`
}

// CounterSample is a point-in-time gauge value.
type CounterSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AnalysisContext carries every contextual collaborator the analyzers may consult.
// All fields are optional.
type AnalysisContext struct {
	Customers           []Customer               `json:"customers,omitempty"`
	AvgTransactionValue float64                  `json:"avgTransactionValue,omitempty"`
	AvgTicketCost       float64                  `json:"avgTicketCost,omitempty"`
	RecentEvents        []ContextEvent           `json:"recentEvents,omitempty"`
	Logs                []LogEntry               `json:"logs,omitempty"`
	Metrics             []MetricSample           `json:"metrics,omitempty"`
	ResourceUsage       []ResourceSample         `json:"resourceUsage,omitempty"`
	Deployments         []Deployment             `json:"deployments,omitempty"`
	Milestones          []Milestone              `json:"milestones,omitempty"`
	Regulations         []Regulation             `json:"regulations,omitempty"`
	ComponentGraph      map[string][]string      `json:"componentGraph,omitempty"`
	DependencyGraph     map[string]DependencySet `json:"dependencyGraph,omitempty"`
	ServiceMesh         map[string]MeshService   `json:"serviceMesh,omitempty"`
	DataLineage         map[string][]string      `json:"dataLineage,omitempty"`
	CodeMetrics         map[string]CodeMetric    `json:"codeMetrics,omitempty"`
	GitHistory          GitHistory               `json:"gitHistory,omitempty"`
	ConfigHistory       []ConfigChange           `json:"configHistory,omitempty"`
	CurrentConfig       map[string]any           `json:"currentConfig,omitempty"`
	RequiredConfigs     []string                 `json:"requiredConfigs,omitempty"`
	ConfigSchema        map[string]SchemaRule    `json:"configSchema,omitempty"`
	HistoricalEstimates []EstimateRecord         `json:"historicalEstimates,omitempty"`
	CustomSLAs          map[string]SLAPenalty    `json:"-"`
	Environments        []string                 `json:"environments,omitempty"`
	SocialMedia         bool                     `json:"socialMediaMonitoring,omitempty"`
	CompetitorAnalysis  bool                     `json:"competitorAnalysis,omitempty"`
}

// Customer tiers.
const (
	TierEnterprise = "tier1"
	TierBusiness   = "tier2"
	TierStandard   = "tier3"
	TierTrial      = "trial"
)

// Customer is one entry of the customer roster.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Tier string `json:"tier"`
}

// ContextEvent is anything that happened around the bug: errors, alerts, restarts.
type ContextEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Component     string    `json:"component,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// MetricSample is a named numeric observation.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
}

// ResourceSample is a utilisation reading in [0,1] for cpu, memory, disk or connections.
type ResourceSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Resource    string    `json:"resource"`
	Utilization float64   `json:"utilization"`
}

// Deployment is a release of a service.
type Deployment struct {
	ID        string    `json:"id"`
	Service   string    `json:"service,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Milestone is a delivery date the fix could put at risk.
type Milestone struct {
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Critical   bool      `json:"critical,omitempty"`
	Components []string  `json:"components,omitempty"`
}

// Regulation names a compliance regime and the bug categories it covers.
type Regulation struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Penalty    float64  `json:"penalty,omitempty"`
}

// DependencySet lists a component's dependencies by kind.
type DependencySet struct {
	Internal []string `json:"internal,omitempty"`
	External []string `json:"external,omitempty"`
	Critical []string `json:"critical,omitempty"`
}

// MeshService describes a service's outgoing calls and the capability it provides.
type MeshService struct {
	Dependencies []string `json:"dependencies,omitempty"`
	Capability   string   `json:"capability,omitempty"`
}

// CodeMetric is per-file static analysis output.
type CodeMetric struct {
	Complexity float64 `json:"complexity"`
	Lines      int     `json:"lines,omitempty"`
	Churn      int     `json:"churn,omitempty"`
}

// GitHistory holds recent commits.
type GitHistory struct {
	Commits []Commit `json:"commits,omitempty"`
}

// Commit is one change set; Files may be empty when Diff carries a unified diff.
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files,omitempty"`
	Diff      string    `json:"-"`
}

// ConfigChange is one key mutation in the config history.
type ConfigChange struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	OldValue  any       `json:"oldValue,omitempty"`
	NewValue  any       `json:"newValue,omitempty"`
	Author    string    `json:"author,omitempty"`
}

// SchemaRule constrains one dotted config key.
type SchemaRule struct {
	Type    string   `json:"type,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// EstimateRecord pairs an effort estimate with the hours it actually took.
type EstimateRecord struct {
	Complexity     Complexity `json:"complexity"`
	Category       string     `json:"category"`
	EstimatedHours float64    `json:"estimatedHours"`
	ActualHours    float64    `json:"actualHours"`
}

// SLAPenalty computes a customer-specific contractual penalty for a bug.
type SLAPenalty interface {
	Penalty(bug BugCandidate, downtimeHours float64) float64
}

// SLAPenaltyFunc adapts a function to SLAPenalty.
type SLAPenaltyFunc func(bug BugCandidate, downtimeHours float64) float64

// Penalty implements SLAPenalty.
func (f SLAPenaltyFunc) Penalty(bug BugCandidate, downtimeHours float64) float64 {
	return f(bug, downtimeHours)
}

// FlatSLA charges a fixed amount per incident plus an hourly downtime rate.
type FlatSLA struct {
	PerIncident float64 `json:"perIncident"`
	PerHour     float64 `json:"perHour"`
}

// Penalty implements SLAPenalty.
func (s FlatSLA) Penalty(_ BugCandidate, downtimeHours float64) float64 {
	return s.PerIncident + s.PerHour*downtimeHours
}
