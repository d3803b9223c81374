package detector

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// minLeakSamples is the smallest series the leak regression will fit.
const minLeakSamples = 3

// LeakFit is the least-squares fit of heap usage over the regression axis.
type LeakFit struct {
	Slope      float64
	Intercept  float64
	GrowthRate float64 // MB per hour
	Samples    int
	Leaking    bool
}

// DetectMemoryLeak fits heapUsed = slope*x + intercept. With the index axis x is the
// sample position and each step is taken as one second; with the elapsed axis x is
// seconds since the first sample. ok is false when the series cannot be fitted.
func (d *Detector) DetectMemoryLeak(samples []models.MemorySample) (fit LeakFit, ok bool) {
	if len(samples) < minLeakSamples {
		return LeakFit{}, false
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	origin := samples[0].Timestamp
	for i, s := range samples {
		if d.cfg.MemoryRegressionAxis == config.MemoryAxisElapsed {
			xs[i] = s.Timestamp.Sub(origin).Seconds()
		} else {
			xs[i] = float64(i)
		}
		ys[i] = s.HeapUsedMB
	}
	if stat.Variance(xs, nil) == 0 {
		d.logger.Warn("memory samples share one timestamp, skipping leak fit", slog.Int("samples", len(samples)))
		return LeakFit{}, false
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return LeakFit{}, false
	}
	growth := slope * 3600
	return LeakFit{
		Slope:      slope,
		Intercept:  intercept,
		GrowthRate: growth,
		Samples:    len(samples),
		Leaking:    growth > d.cfg.MemoryLeakThreshold,
	}, true
}

// AnalyzeResources flags memory leaks and connection or file-descriptor exhaustion.
func (d *Detector) AnalyzeResources(res models.Resources) []models.BugCandidate {
	var out []models.BugCandidate

	if fit, ok := d.DetectMemoryLeak(res.Memory); ok && fit.Leaking {
		last := res.Memory[len(res.Memory)-1]
		bug := d.candidate(models.CandidateMemoryLeak, last.Timestamp)
		bug.Severity = models.SeverityHigh
		bug.Category = "resource"
		bug.Description = fmt.Sprintf("Heap grows %.1fMB/h over %d samples (threshold %.0fMB/h)", fit.GrowthRate, fit.Samples, d.cfg.MemoryLeakThreshold)
		bug.Trend = "increasing"
		bug.Measurements = map[string]float64{
			"slope":      fit.Slope,
			"intercept":  fit.Intercept,
			"growthRate": fit.GrowthRate,
			"heapUsedMB": last.HeapUsedMB,
		}
		out = append(out, bug)
	}

	if bug, ok := d.exhaustion(models.CandidateConnectionExhaustion, "connection pool", res.Connections, res.ConnectionLimit, d.cfg.ConnectionThreshold); ok {
		out = append(out, bug)
	}
	if bug, ok := d.exhaustion(models.CandidateFDExhaustion, "file descriptors", res.FileDescriptors, res.FileDescriptorLimit, d.cfg.FDThreshold); ok {
		out = append(out, bug)
	}
	return out
}

func (d *Detector) exhaustion(kind, label string, samples []models.CounterSample, limit, threshold float64) (models.BugCandidate, bool) {
	if len(samples) == 0 || limit <= 0 {
		return models.BugCandidate{}, false
	}
	peak := samples[0]
	for _, s := range samples[1:] {
		if s.Value > peak.Value {
			peak = s
		}
	}
	utilization := peak.Value / limit
	if utilization <= threshold {
		return models.BugCandidate{}, false
	}
	bug := d.candidate(kind, peak.Timestamp)
	bug.Severity = models.SeverityHigh
	bug.Category = "resource"
	bug.Description = fmt.Sprintf("%s at %.0f%% of limit (%.0f/%.0f)", label, utilization*100, peak.Value, limit)
	bug.Measurements = map[string]float64{
		"peak":        peak.Value,
		"limit":       limit,
		"utilization": utilization,
	}
	return bug, true
}
