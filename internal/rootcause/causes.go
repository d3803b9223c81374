package rootcause

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

const (
	deploymentCauseFloor = 0.7
	complexityCauseFloor = 20
	longTimeline         = 10
)

func identifyRootCauses(analysis models.Analysis) []models.RootCause {
	var causes []models.RootCause

	if drift := analysis.Configuration.Drift; len(drift) > 0 {
		confidence := 0.65
		var keys []string
		for _, d := range drift {
			keys = append(keys, fmt.Sprintf("%s (%s risk)", d.Change.Key, d.Risk))
			if d.Risk == riskHigh {
				confidence = 0.85
			}
		}
		causes = append(causes, models.RootCause{
			Type:        models.RootCauseConfigurationChange,
			Confidence:  confidence,
			Description: "configuration changed shortly before the bug",
			Evidence:    keys,
		})
	}

	if c, ok := strongest(analysis.Correlations, models.CorrelationDeployment); ok && c.Confidence > deploymentCauseFloor {
		causes = append(causes, models.RootCause{
			Type:        models.RootCauseDeployment,
			Confidence:  c.Confidence,
			Description: fmt.Sprintf("deployment %s preceded the bug by %s", c.DeploymentID, c.TimeDelta.Round(time.Minute)),
			Evidence:    []string{"deployment " + c.DeploymentID},
		})
	}

	var saturated []string
	for _, c := range analysis.Correlations {
		if c.Type == models.CorrelationResourceSaturation {
			saturated = append(saturated, fmt.Sprintf("%s at %.0f%%", c.Resource, c.Utilization*100))
		}
	}
	if len(saturated) > 0 {
		causes = append(causes, models.RootCause{
			Type:        models.RootCauseResourceExhaustion,
			Confidence:  0.8,
			Description: "resources saturated around the bug",
			Evidence:    saturated,
		})
	}

	for _, c := range analysis.Correlations {
		if c.Type == models.CorrelationErrorChain && c.KnownPattern != "" {
			causes = append(causes, models.RootCause{
				Type:        models.RootCauseKnownPattern,
				Confidence:  0.9,
				Description: "error chain matches the " + c.KnownPattern + " cascade",
				Evidence:    chainMessages(c.Chain),
			})
			break
		}
	}

	var hot []string
	for _, h := range analysis.CodePath.Hotspots {
		if h.Complexity > complexityCauseFloor {
			hot = append(hot, fmt.Sprintf("%s complexity %.0f", h.File, h.Complexity))
		}
	}
	if len(hot) > 0 {
		causes = append(causes, models.RootCause{
			Type:        models.RootCauseCodeComplexity,
			Confidence:  0.6,
			Description: "stack trace runs through highly complex code",
			Evidence:    hot,
		})
	}

	sort.SliceStable(causes, func(i, j int) bool { return causes[i].Confidence > causes[j].Confidence })
	return causes
}

func (a *Analyzer) contributingFactors(at time.Time, analysis models.Analysis, actx models.AnalysisContext) []models.ContributingFactor {
	var factors []models.ContributingFactor
	for _, c := range analysis.Correlations {
		switch c.Type {
		case models.CorrelationPerformanceDegradation:
			factors = append(factors, models.ContributingFactor{
				Type:        string(models.CorrelationPerformanceDegradation),
				Description: fmt.Sprintf("%s degraded %.0f%% over baseline", c.Metric, c.DegradationRatio*100),
			})
		case models.CorrelationErrorSpike:
			factors = append(factors, models.ContributingFactor{
				Type:        string(models.CorrelationErrorSpike),
				Description: fmt.Sprintf("%.0f errors/min against an average of %.1f", c.BugWindowRate, c.AverageRate),
			})
		case models.CorrelationTemporal:
			factors = append(factors, models.ContributingFactor{
				Type:        string(models.CorrelationTemporal),
				Description: fmt.Sprintf("%s within %s of the bug", c.Event, absDuration(c.TimeDelta).Round(time.Second)),
			})
		}
	}

	cfg := analysis.Configuration
	if len(cfg.Missing) > 0 {
		factors = append(factors, models.ContributingFactor{
			Type:        "missing_configuration",
			Description: "required keys absent: " + strings.Join(cfg.Missing, ", "),
		})
	}
	for _, v := range cfg.Invalid {
		factors = append(factors, models.ContributingFactor{
			Type:        "invalid_configuration",
			Description: v.Key + ": " + v.Message,
		})
	}
	if n := len(analysis.CodePath.RecentChanges); n > 0 {
		factors = append(factors, models.ContributingFactor{
			Type:        "recent_code_change",
			Description: fmt.Sprintf("%d recent commits touch the failing code path", n),
		})
	}
	if critical := analysis.Dependencies.CriticalPath; len(critical) > 0 {
		factors = append(factors, models.ContributingFactor{
			Type:        "critical_dependency",
			Description: "no redundancy for " + strings.Join(critical, ", "),
		})
	}
	return append(factors, a.upstreamFailures(at, analysis.Dependencies.Upstream, actx)...)
}

var causeRecommendations = map[string]models.Recommendation{
	models.RootCauseConfigurationChange: {
		Type:   "configuration_rollback",
		Action: "Review and revert the recent configuration changes",
		Reason: "configuration drift preceded the bug",
	},
	models.RootCauseDeployment: {
		Type:   "deployment_rollback",
		Action: "Roll back the deployment or ship a hotfix",
		Reason: "the bug appeared shortly after a deployment",
	},
	models.RootCauseResourceExhaustion: {
		Type:   "capacity",
		Action: "Scale the saturated resources and add capacity alerts",
		Reason: "resource utilisation exceeded safe limits",
	},
	models.RootCauseKnownPattern: {
		Type:   "runbook",
		Action: "Apply the runbook for the matched failure cascade",
		Reason: "errors follow a known cascade",
	},
	models.RootCauseCodeComplexity: {
		Type:   "refactor",
		Action: "Refactor the complex hotspot and add regression tests",
		Reason: "the failing path runs through high-complexity code",
	},
}

func generateRecommendations(analysis models.Analysis) []models.Recommendation {
	var recs []models.Recommendation
	for _, cause := range analysis.RootCauses {
		if rec, ok := causeRecommendations[cause.Type]; ok {
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, models.Recommendation{
			Type:   "investigate",
			Action: "Collect more telemetry around the failure and reproduce it",
			Reason: "no root cause reached the confidence threshold",
		})
	}
	for _, f := range analysis.ContributingFactors {
		if f.Type == string(models.CorrelationPerformanceDegradation) {
			recs = append(recs, models.Recommendation{
				Type:   "performance_profiling",
				Action: "Profile the degraded operations against the baseline",
				Reason: f.Description,
			})
			break
		}
	}
	if len(analysis.Timeline) > longTimeline {
		recs = append(recs, models.Recommendation{
			Type:   "incident_review",
			Action: "Run a post-incident review of the event sequence",
			Reason: fmt.Sprintf("%d events in the incident timeline", len(analysis.Timeline)),
		})
	}
	return recs
}

func strongest(correlations []models.Correlation, kind models.CorrelationType) (models.Correlation, bool) {
	var best models.Correlation
	found := false
	for _, c := range correlations {
		if c.Type == kind && (!found || c.Confidence > best.Confidence) {
			best, found = c, true
		}
	}
	return best, found
}

func chainMessages(chain []models.ErrorEvent) []string {
	out := make([]string, len(chain))
	for i, e := range chain {
		out[i] = e.Message
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
