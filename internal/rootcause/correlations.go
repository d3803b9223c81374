package rootcause

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-triage/internal/models"
)

func (a *Analyzer) temporalCorrelations(at time.Time, events []models.ContextEvent) []models.Correlation {
	window := a.cfg.TimeWindow
	var out []models.Correlation
	for _, ev := range events {
		delta := ev.Timestamp.Sub(at)
		abs := delta
		if abs < 0 {
			abs = -abs
		}
		if abs >= window {
			continue
		}
		out = append(out, models.Correlation{
			Type:       models.CorrelationTemporal,
			Confidence: 1 - float64(abs)/float64(window),
			Event:      describeEvent(ev),
			TimeDelta:  delta,
		})
	}
	return out
}

// errorEvents merges error-level logs and error-typed context events, oldest
// first. Records without a timestamp cannot be placed and are skipped.
func errorEvents(actx models.AnalysisContext) []models.ErrorEvent {
	var out []models.ErrorEvent
	for _, l := range actx.Logs {
		if isErrorLevel(l.Level) && !l.Timestamp.IsZero() {
			out = append(out, models.ErrorEvent{
				Timestamp:     l.Timestamp,
				Message:       l.Message,
				Component:     l.Component,
				SessionID:     l.SessionID,
				CorrelationID: l.CorrelationID,
			})
		}
	}
	for _, ev := range actx.RecentEvents {
		if isErrorLevel(ev.Type) && !ev.Timestamp.IsZero() {
			out = append(out, models.ErrorEvent{
				Timestamp:     ev.Timestamp,
				Message:       ev.Description,
				Component:     ev.Component,
				SessionID:     ev.SessionID,
				CorrelationID: ev.CorrelationID,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// spikeHorizon bounds how far from the bug errors are bucketed.
const spikeHorizon = 24 * time.Hour

// errorSpike compares the error count of the bug's minute bucket with the
// average over every bucket between the first and last error within
// spikeHorizon of the bug.
func (a *Analyzer) errorSpike(at time.Time, errs []models.ErrorEvent) (models.Correlation, bool) {
	near := make([]models.ErrorEvent, 0, len(errs))
	for _, e := range errs {
		if within(e.Timestamp, at, spikeHorizon) {
			near = append(near, e)
		}
	}
	if len(near) < a.cfg.MinSampleSize {
		return models.Correlation{}, false
	}
	first := near[0].Timestamp.Truncate(time.Minute)
	last := near[len(near)-1].Timestamp.Truncate(time.Minute)
	buckets := make([]float64, int(last.Sub(first)/time.Minute)+1)
	for _, e := range near {
		buckets[int(e.Timestamp.Truncate(time.Minute).Sub(first)/time.Minute)]++
	}

	bugBucket := at.Truncate(time.Minute)
	if bugBucket.Before(first) || bugBucket.After(last) {
		return models.Correlation{}, false
	}
	bugRate := buckets[int(bugBucket.Sub(first)/time.Minute)]
	avg := stat.Mean(buckets, nil)
	peak := 0.0
	for _, b := range buckets {
		peak = math.Max(peak, b)
	}
	if avg == 0 || bugRate <= 2*avg {
		return models.Correlation{}, false
	}
	return models.Correlation{
		Type:          models.CorrelationErrorSpike,
		Confidence:    math.Min(0.9, bugRate/peak),
		BugWindowRate: bugRate,
		AverageRate:   avg,
		MaxWindowRate: peak,
	}, true
}

// errorChains finds runs of at least three related errors, each less than
// ChainGap after the previous, near the bug.
func (a *Analyzer) errorChains(at time.Time, errs []models.ErrorEvent) []models.Correlation {
	var near []models.ErrorEvent
	for _, e := range errs {
		if within(e.Timestamp, at, a.cfg.TimeWindow) {
			near = append(near, e)
		}
	}
	var out []models.Correlation
	flush := func(chain []models.ErrorEvent) {
		if len(chain) < 3 {
			return
		}
		c := models.Correlation{
			Type:       models.CorrelationErrorChain,
			Confidence: 0.7,
			Chain:      append([]models.ErrorEvent(nil), chain...),
		}
		if name, ok := a.knownChain(chain); ok {
			c.Confidence = 0.9
			c.KnownPattern = name
		}
		out = append(out, c)
	}

	var chain []models.ErrorEvent
	for _, e := range near {
		if len(chain) > 0 {
			prev := chain[len(chain)-1]
			if e.Timestamp.Sub(prev.Timestamp) < a.cfg.ChainGap && a.related(prev, e) {
				chain = append(chain, e)
				continue
			}
			flush(chain)
		}
		chain = []models.ErrorEvent{e}
	}
	flush(chain)
	return out
}

func (a *Analyzer) related(prev, next models.ErrorEvent) bool {
	switch {
	case prev.Component != "" && prev.Component == next.Component:
		return true
	case prev.SessionID != "" && prev.SessionID == next.SessionID:
		return true
	case prev.CorrelationID != "" && prev.CorrelationID == next.CorrelationID:
		return true
	}
	for _, pair := range a.cfg.CausePairs {
		if strings.EqualFold(pair.Cause, prev.Component) && strings.EqualFold(pair.Effect, next.Component) {
			return true
		}
	}
	return false
}

// knownChain reports the first configured cascade whose steps appear in order in the chain messages.
func (a *Analyzer) knownChain(chain []models.ErrorEvent) (string, bool) {
	for _, known := range a.cfg.KnownChains {
		step := 0
		for _, e := range chain {
			if step < len(known.Steps) && strings.Contains(strings.ToLower(e.Message), strings.ToLower(known.Steps[step])) {
				step++
			}
		}
		if step == len(known.Steps) {
			return known.Name, true
		}
	}
	return "", false
}

func (a *Analyzer) performanceDegradation(at time.Time, samples []models.MetricSample) []models.Correlation {
	byName := make(map[string][]models.MetricSample)
	var names []string
	for _, s := range samples {
		if _, ok := byName[s.Name]; !ok {
			names = append(names, s.Name)
		}
		byName[s.Name] = append(byName[s.Name], s)
	}

	var out []models.Correlation
	for _, name := range names {
		series := byName[name]
		if len(series) < 2 {
			continue
		}
		sort.SliceStable(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
		baselineValues := values(series[:len(series)/2])
		var current []float64
		for _, s := range series {
			if within(s.Timestamp, at, a.cfg.TimeWindow) {
				current = append(current, s.Value)
			}
		}
		if len(current) == 0 {
			continue
		}
		baseline := median(baselineValues)
		if baseline <= 0 {
			continue
		}
		now := median(current)
		ratio := (now - baseline) / baseline
		if ratio <= 0.1 {
			continue
		}
		out = append(out, models.Correlation{
			Type:             models.CorrelationPerformanceDegradation,
			Confidence:       math.Min(0.9, float64(len(series))/10),
			Metric:           name,
			Baseline:         baseline,
			Current:          now,
			DegradationRatio: ratio,
			SampleCount:      len(series),
		})
	}
	return out
}

func (a *Analyzer) resourceSaturation(at time.Time, usage []models.ResourceSample) []models.Correlation {
	thresholds := map[string]float64{
		"cpu":         a.cfg.Saturation.CPU,
		"memory":      a.cfg.Saturation.Memory,
		"disk":        a.cfg.Saturation.Disk,
		"connections": a.cfg.Saturation.Connections,
	}
	peaks := make(map[string]float64)
	var order []string
	for _, u := range usage {
		resource := strings.ToLower(u.Resource)
		if _, known := thresholds[resource]; !known || !within(u.Timestamp, at, a.cfg.TimeWindow) {
			continue
		}
		if _, seen := peaks[resource]; !seen {
			order = append(order, resource)
		}
		peaks[resource] = math.Max(peaks[resource], u.Utilization)
	}
	var out []models.Correlation
	for _, resource := range order {
		if peaks[resource] <= thresholds[resource] {
			continue
		}
		out = append(out, models.Correlation{
			Type:        models.CorrelationResourceSaturation,
			Confidence:  0.8,
			Resource:    resource,
			Utilization: peaks[resource],
			Threshold:   thresholds[resource],
		})
	}
	return out
}

func (a *Analyzer) deploymentCorrelations(at time.Time, deployments []models.Deployment) []models.Correlation {
	window := a.cfg.DeploymentWindow
	var out []models.Correlation
	for _, d := range deployments {
		since := at.Sub(d.Timestamp)
		if since < 0 || since > window {
			continue
		}
		out = append(out, models.Correlation{
			Type:         models.CorrelationDeployment,
			Confidence:   math.Max(0, 1-float64(since)/float64(window)),
			TimeDelta:    since,
			DeploymentID: d.ID,
			Service:      d.Service,
		})
	}
	return out
}

func values(samples []models.MetricSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

// median uses the empirical quantile, so even-length input yields the lower middle value.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func isErrorLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error", "fatal", "critical":
		return true
	default:
		return false
	}
}

func describeEvent(ev models.ContextEvent) string {
	if ev.Type == "" {
		return ev.Description
	}
	if ev.Description == "" {
		return ev.Type
	}
	return fmt.Sprintf("%s: %s", ev.Type, ev.Description)
}
