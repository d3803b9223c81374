package models

import "time"

// CustomerImpact quantifies who is affected.
type CustomerImpact struct {
	AffectedCount  int            `json:"affectedCount"`
	Score          float64        `json:"score"`
	Severity       Severity       `json:"severity"`
	TierBreakdown  map[string]int `json:"tierBreakdown"`
	UserExperience string         `json:"userExperience"`
	Satisfaction   float64        `json:"satisfaction"`
}

// FinancialImpact is the money side of business impact.
type FinancialImpact struct {
	Revenue   float64 `json:"revenue"`
	Costs     float64 `json:"costs"`
	Penalties float64 `json:"penalties"`
	Total     float64 `json:"total"`
}

// ComplianceImpact lists regulations the bug touches.
type ComplianceImpact struct {
	Regulations []string `json:"regulations,omitempty"`
	Score       float64  `json:"score"`
}

// OperationalImpact is the support and ops load.
type OperationalImpact struct {
	SupportTickets int     `json:"supportTickets"`
	Score          float64 `json:"score"`
}

// BusinessImpact aggregates the business dimensions.
type BusinessImpact struct {
	Financial   FinancialImpact   `json:"financial"`
	Reputation  float64           `json:"reputation"`
	Compliance  ComplianceImpact  `json:"compliance"`
	Competitive float64           `json:"competitive"`
	Operational OperationalImpact `json:"operational"`
	Score       float64           `json:"score"`
}

// TechnicalImpact aggregates engineering cost dimensions, each in [0,100].
type TechnicalImpact struct {
	Complexity   float64 `json:"complexity"`
	Dependencies float64 `json:"dependencies"`
	TechDebt     float64 `json:"techDebt"`
	Architecture float64 `json:"architecture"`
	Performance  float64 `json:"performance"`
	Score        float64 `json:"score"`
}

// Effort is hours and cost for one activity.
type Effort struct {
	Hours float64 `json:"hours"`
	Cost  float64 `json:"cost"`
}

// ResourceTotal sums all activities.
type ResourceTotal struct {
	Hours  float64 `json:"hours"`
	Cost   float64 `json:"cost"`
	People int     `json:"people"`
}

// ResourceEstimate is the fix effort estimate.
type ResourceEstimate struct {
	Development Effort        `json:"development"`
	Testing     Effort        `json:"testing"`
	Deployment  Effort        `json:"deployment"`
	Total       ResourceTotal `json:"total"`
	Calibration float64       `json:"calibration"`
}

// MilestoneImpact states whether a milestone is at risk from the fix duration.
type MilestoneImpact struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	DaysUntil float64   `json:"daysUntil"`
	AtRisk    bool      `json:"atRisk"`
	Critical  bool      `json:"critical"`
}

// TimelineImpact is the schedule side of impact.
type TimelineImpact struct {
	FixDurationDays float64           `json:"fixDurationDays"`
	CriticalPath    bool              `json:"criticalPath"`
	MilestoneImpact []MilestoneImpact `json:"milestoneImpact"`
	Score           float64           `json:"score"`
}

// RiskAssessment is probability times severity.
type RiskAssessment struct {
	Probability float64  `json:"probability"`
	Severity    float64  `json:"severity"`
	Exposure    float64  `json:"exposure"`
	Mitigation  []string `json:"mitigation"`
	Score       float64  `json:"score"`
}

// Action urgency levels for the impact recommendation.
const (
	ActionImmediate = "IMMEDIATE"
	ActionHigh      = "HIGH"
	ActionMedium    = "MEDIUM"
	ActionLow       = "LOW"
)

// ImpactRecommendation is the single verdict attached to an Impact.
type ImpactRecommendation struct {
	Priority  string        `json:"priority"`
	Action    string        `json:"action"`
	Reasoning []string      `json:"reasoning"`
	Timeline  string        `json:"timeline"`
	Resources ResourceTotal `json:"resources"`
}

// Impact is the full impact assessment for one candidate.
type Impact struct {
	BugID          string               `json:"bugId"`
	Customer       CustomerImpact       `json:"customer"`
	Business       BusinessImpact       `json:"business"`
	Technical      TechnicalImpact      `json:"technical"`
	Resources      ResourceEstimate     `json:"resources"`
	Timeline       TimelineImpact       `json:"timeline"`
	Risk           RiskAssessment       `json:"risk"`
	TotalScore     float64              `json:"totalScore"`
	Recommendation ImpactRecommendation `json:"recommendation"`
}
