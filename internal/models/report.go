package models

import "time"

// Assessment bundles every stage output for one candidate.
type Assessment struct {
	Candidate      BugCandidate   `json:"candidate"`
	Classification Classification `json:"classification"`
	Analysis       Analysis       `json:"analysis"`
	Impact         Impact         `json:"impact"`
}

// PatternInsight is a failure signature recurring across a batch.
type PatternInsight struct {
	Pattern         string    `json:"pattern"`
	Category        string    `json:"category"`
	Occurrences     int       `json:"occurrences"`
	Prevalence      float64   `json:"prevalence"`
	HighestPriority Priority  `json:"highestPriority"`
	BugIDs          []string  `json:"bugIds"`
	LastSeen        time.Time `json:"lastSeen"`
}

// BatchSummary aggregates one batch.
type BatchSummary struct {
	Total             int              `json:"total"`
	BySeverity        map[Severity]int `json:"bySeverity"`
	ByPriority        map[Priority]int `json:"byPriority"`
	FinancialExposure float64          `json:"financialExposure"`
	EffortHours       float64          `json:"effortHours"`
	TopRootCauses     map[string]int   `json:"topRootCauses"`
	GeneratedAt       time.Time        `json:"generatedAt"`
}

// Report is the batch-level output consumed by export layers.
type Report struct {
	Assessments []Assessment     `json:"assessments"`
	Queue       []QueueEntry     `json:"queue"`
	Summary     BatchSummary     `json:"summary"`
	Insights    []PatternInsight `json:"insights"`
}
