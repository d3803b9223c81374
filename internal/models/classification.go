package models

import "time"

// Recommendation is an actionable follow-up attached to a result.
type Recommendation struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Scores are the four classifier subscores, each in [0,100].
type Scores struct {
	UserImpact     float64 `json:"userImpact"`
	BusinessImpact float64 `json:"businessImpact"`
	Frequency      float64 `json:"frequency"`
	Effort         float64 `json:"effort"`
}

// Classification is the classifier verdict for one candidate.
type Classification struct {
	BugID           string           `json:"bugId"`
	Severity        Severity         `json:"severity"`
	Priority        Priority         `json:"priority"`
	SLA             time.Duration    `json:"sla"`
	Scores          Scores           `json:"scores"`
	FinalScore      float64          `json:"finalScore"`
	Reasons         []string         `json:"reasons"`
	Recommendations []Recommendation `json:"recommendations"`
}

// QueueEntry is a classification placed in the 1-indexed priority queue.
type QueueEntry struct {
	Rank           int            `json:"rank"`
	Classification Classification `json:"classification"`
}
