package classifier

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// Classifier assigns severity, priority and a weighted score to candidates.
type Classifier struct {
	cfg       config.ClassifierConfig
	overrides []Override
	logger    *slog.Logger
}

// New validates cfg and builds a Classifier. Overrides are evaluated in order after
// the built-in tiers; when several match, the last one wins.
func New(cfg config.ClassifierConfig, overrides []Override, logger *slog.Logger) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, overrides: append([]Override(nil), overrides...), logger: logger}, nil
}

// Classify produces the classification of a single candidate.
func (c *Classifier) Classify(bug models.BugCandidate) models.Classification {
	severity, reasons := tier(bug)
	severity, reasons = hardOverrides(bug, severity, reasons)
	severity, reasons = c.applyOverrides(bug, severity, reasons)

	scores := models.Scores{
		UserImpact:     userImpactScore(bug),
		BusinessImpact: businessImpactScore(bug),
		Frequency:      frequencyScore(bug),
		Effort:         effortScore(bug),
	}
	w := c.cfg.Weights
	final := clamp(scores.UserImpact*w.UserImpact+
		scores.BusinessImpact*w.BusinessImpact+
		scores.Frequency*w.Frequency+
		scores.Effort*w.Effort, 0, 100)

	priority := priorityFor(severity, final)
	cls := models.Classification{
		BugID:      bug.ID,
		Severity:   severity,
		Priority:   priority,
		SLA:        c.sla(priority),
		Scores:     scores,
		FinalScore: final,
		Reasons:    reasons,
	}
	cls.Recommendations = recommend(bug, cls)

	c.logger.Debug("classified candidate",
		slog.String("bug", bug.ID),
		slog.String("severity", string(severity)),
		slog.String("priority", string(priority)),
		slog.Float64("score", final))
	return cls
}

type criterion struct {
	hit    bool
	reason string
}

func tier(bug models.BugCandidate) (models.Severity, []string) {
	perf := bug.Category == "performance"
	tiers := []struct {
		severity models.Severity
		criteria []criterion
	}{
		{models.SeverityCritical, []criterion{
			{bug.Category == "security", "security category"},
			{bug.Category == "data" && strings.Contains(bug.Type, "corruption"), "data corruption"},
			{hasPatternSeverity(bug, models.SeverityCritical), "matched critical pattern " + patternNames(bug, models.SeverityCritical)},
			{bug.UserImpact == "complete_outage", "complete outage"},
			{bug.AffectedUsers > 0.5, fmt.Sprintf("affects %.0f%% of users", bug.AffectedUsers*100)},
			{bug.FinancialImpact > 10000, fmt.Sprintf("financial impact $%.0f above $10000", bug.FinancialImpact)},
			{bug.ErrorRate > 0.5, fmt.Sprintf("error rate %.1f%% above 50%%", bug.ErrorRate*100)},
		}},
		{models.SeverityHigh, []criterion{
			{perf && bug.Degradation > 0.5, fmt.Sprintf("performance degraded %.0f%%", bug.Degradation*100)},
			{hasPatternSeverity(bug, models.SeverityHigh), "matched high-severity pattern " + patternNames(bug, models.SeverityHigh)},
			{bug.ErrorRate > 0.05, fmt.Sprintf("error rate %.1f%% above 5%%", bug.ErrorRate*100)},
			{bug.AffectedUsers > 0.1, fmt.Sprintf("affects %.0f%% of users", bug.AffectedUsers*100)},
			{bug.Type == "feature_broken", "feature broken"},
			{bug.Reproducible == models.ReproducibleAlways && !bug.Workaround, "reproducible with no workaround"},
		}},
		{models.SeverityMedium, []criterion{
			{perf && bug.Degradation > 0.2, fmt.Sprintf("performance degraded %.0f%%", bug.Degradation*100)},
			{bug.Category == "usability", "usability issue"},
			{bug.ErrorRate > 0.01, fmt.Sprintf("error rate %.1f%% above 1%%", bug.ErrorRate*100)},
			{bug.AffectedUsers > 0.05, fmt.Sprintf("affects %.0f%% of users", bug.AffectedUsers*100)},
			{bug.Workaround, "workaround available"},
		}},
	}

	for _, t := range tiers {
		var reasons []string
		for _, c := range t.criteria {
			if c.hit {
				reasons = append(reasons, c.reason)
			}
		}
		if len(reasons) > 0 {
			return t.severity, reasons
		}
	}
	return models.SeverityLow, []string{"no severity criteria met"}
}

func hardOverrides(bug models.BugCandidate, severity models.Severity, reasons []string) (models.Severity, []string) {
	switch {
	case bug.Type == "security_vulnerability" || bug.Category == "security":
		if severity != models.SeverityCritical {
			reasons = append(reasons, "security issues are always critical")
		}
		return models.SeverityCritical, reasons
	case bug.Type == "data_corruption":
		if severity != models.SeverityCritical {
			reasons = append(reasons, "data corruption is always critical")
		}
		return models.SeverityCritical, reasons
	}
	return severity, reasons
}

func (c *Classifier) applyOverrides(bug models.BugCandidate, severity models.Severity, reasons []string) (models.Severity, []string) {
	var matched []Override
	for _, o := range c.overrides {
		if o.Match(bug) {
			matched = append(matched, o)
		}
	}
	if len(matched) == 0 {
		return severity, reasons
	}
	winner := matched[len(matched)-1]
	if conflicting(matched) {
		names := make([]string, 0, len(matched))
		for _, o := range matched {
			names = append(names, fmt.Sprintf("%s=%s", o.Reason(), o.Severity()))
		}
		c.logger.Warn("conflicting severity overrides, last match wins",
			slog.String("bug", bug.ID),
			slog.String("matched", strings.Join(names, ", ")),
			slog.String("severity", string(winner.Severity())))
	}
	return winner.Severity(), append(reasons, winner.Reason())
}

func conflicting(matched []Override) bool {
	for _, o := range matched[1:] {
		if o.Severity() != matched[0].Severity() {
			return true
		}
	}
	return false
}

func priorityFor(severity models.Severity, score float64) models.Priority {
	switch {
	case severity == models.SeverityCritical:
		return models.PriorityP0
	case severity == models.SeverityHigh || score > 70:
		return models.PriorityP1
	case severity == models.SeverityMedium || score > 40:
		return models.PriorityP2
	default:
		return models.PriorityP3
	}
}

func (c *Classifier) sla(p models.Priority) time.Duration {
	switch p {
	case models.PriorityP0:
		return c.cfg.SLA.P0
	case models.PriorityP1:
		return c.cfg.SLA.P1
	case models.PriorityP2:
		return c.cfg.SLA.P2
	default:
		return c.cfg.SLA.P3
	}
}

func hasPatternSeverity(bug models.BugCandidate, severity models.Severity) bool {
	for _, m := range bug.MatchedPatterns {
		if m.Severity == severity {
			return true
		}
	}
	return false
}

func patternNames(bug models.BugCandidate, severity models.Severity) string {
	var names []string
	for _, m := range bug.MatchedPatterns {
		if m.Severity == severity {
			names = append(names, m.Name)
		}
	}
	return strings.Join(names, ", ")
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
