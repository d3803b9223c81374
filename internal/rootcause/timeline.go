package rootcause

import (
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// reconstructTimeline orders the bug, nearby context events and deployments, and
// error or warning logs into one sequence.
func (a *Analyzer) reconstructTimeline(bug models.BugCandidate, at time.Time, actx models.AnalysisContext) []models.TimelineEvent {
	events := []models.TimelineEvent{{
		Timestamp: at,
		Event:     bugEvent(bug),
		Source:    "bug",
		Component: bug.Component,
	}}

	wide := 2 * a.cfg.TimeWindow
	for _, ev := range actx.RecentEvents {
		if within(ev.Timestamp, at, wide) {
			events = append(events, models.TimelineEvent{
				Timestamp: ev.Timestamp,
				Event:     describeEvent(ev),
				Source:    "event",
				Component: ev.Component,
			})
		}
	}
	for _, d := range actx.Deployments {
		if within(d.Timestamp, at, wide) {
			events = append(events, models.TimelineEvent{
				Timestamp: d.Timestamp,
				Event:     "deployment " + strings.TrimSpace(d.ID+" "+d.Version),
				Source:    "deployment",
				Component: d.Service,
			})
		}
	}
	for _, l := range actx.Logs {
		if !within(l.Timestamp, at, a.cfg.TimeWindow) {
			continue
		}
		if isErrorLevel(l.Level) || isWarnLevel(l.Level) {
			events = append(events, models.TimelineEvent{
				Timestamp: l.Timestamp,
				Event:     l.Message,
				Source:    "log",
				Component: l.Component,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	for i := 1; i < len(events); i++ {
		events[i].SincePrevious = events[i].Timestamp.Sub(events[i-1].Timestamp)
	}
	return events
}

func bugEvent(bug models.BugCandidate) string {
	if bug.Description != "" {
		return bug.Description
	}
	return bug.Type
}

func isWarnLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warn", "warning":
		return true
	default:
		return false
	}
}
