package detector

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/patterns"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// Detector turns raw test telemetry into bug candidates.
type Detector struct {
	cfg     config.DetectorConfig
	library *patterns.Library
	clock   utils.Clock
	newID   func() string
	logger  *slog.Logger
}

// New validates cfg and builds a Detector. A nil library uses the built-in taxonomy,
// a nil clock the system clock and a nil newID random UUIDs.
func New(cfg config.DetectorConfig, library *patterns.Library, clock utils.Clock, newID func() string, logger *slog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	if library == nil {
		library = patterns.DefaultLibrary()
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		cfg:     cfg,
		library: library,
		clock:   utils.ClockOrSystem(clock),
		newID:   newID,
		logger:  logger,
	}, nil
}

// Analyze runs every detector over one bundle. Candidates are returned in
// failure, performance, log, resource order.
func (d *Detector) Analyze(results models.TestResults) []models.BugCandidate {
	var out []models.BugCandidate
	out = append(out, d.AnalyzeFailures(results.Failures)...)
	out = append(out, d.AnalyzePerformance(results.Performance)...)
	out = append(out, d.AnalyzeLogs(results.Logs)...)
	out = append(out, d.AnalyzeResources(d.withScrapes(results.Resources))...)
	return out
}

// DetectPatterns returns every library pattern matching text.
func (d *Detector) DetectPatterns(text string) []models.PatternMatch {
	return d.library.Detect(text)
}

// AnalyzeFailures emits a test_failure candidate for each failure whose text matches a pattern.
func (d *Detector) AnalyzeFailures(failures []models.TestFailure) []models.BugCandidate {
	var out []models.BugCandidate
	for _, f := range failures {
		text := strings.TrimSpace(f.Message + " " + f.Error)
		matches := d.DetectPatterns(text)
		if len(matches) == 0 {
			continue
		}
		top := strongest(matches)
		name := f.Name
		if f.Suite != "" {
			name = f.Suite + " > " + f.Name
		}
		bug := d.candidate(models.CandidateTestFailure, f.Timestamp)
		bug.Severity = top.Severity
		bug.Category = top.Category
		bug.Description = fmt.Sprintf("Test failure in %s: %s", name, firstLine(text))
		bug.Component = f.Component
		bug.StackTrace = f.StackTrace
		bug.MatchedPatterns = matches
		bug.Reproducible = models.ReproducibleAlways
		d.logger.Debug("test failure matched", slog.String("test", name), slog.String("pattern", top.Name))
		out = append(out, bug)
	}
	return out
}

// AnalyzePerformance flags slow operations and degrading trends.
func (d *Detector) AnalyzePerformance(metrics []models.PerformanceMetric) []models.BugCandidate {
	var out []models.BugCandidate
	threshold := d.cfg.PerformanceThreshold
	for _, m := range metrics {
		if m.DurationMs > threshold {
			ratio := m.DurationMs / threshold
			bug := d.candidate(models.CandidatePerformanceRegression, m.Timestamp)
			bug.Severity = severityForRatio(ratio)
			bug.Category = "performance"
			bug.Component = m.Component
			bug.Description = fmt.Sprintf("%s took %.0fms (threshold %.0fms, %.1fx)", m.Name, m.DurationMs, threshold, ratio)
			bug.Degradation = clamp01((m.DurationMs - threshold) / threshold)
			bug.Measurements = map[string]float64{
				"durationMs":  m.DurationMs,
				"thresholdMs": threshold,
				"ratio":       ratio,
			}
			out = append(out, bug)
		}
		if m.Trend.Degradation > d.cfg.TrendThreshold {
			bug := d.candidate(models.CandidatePerformanceTrend, m.Timestamp)
			bug.Severity = models.SeverityMedium
			bug.Category = "performance"
			bug.Component = m.Component
			bug.Description = fmt.Sprintf("%s is degrading by %.0f%%", m.Name, m.Trend.Degradation*100)
			bug.Degradation = clamp01(m.Trend.Degradation)
			bug.Trend = "increasing"
			bug.Measurements = map[string]float64{"trendDegradation": m.Trend.Degradation}
			out = append(out, bug)
		}
	}
	return out
}

// AnalyzeLogs emits one error_pattern candidate per pattern combination the
// moment it recurs LogPatternThreshold times, plus at most one high_error_rate candidate.
func (d *Detector) AnalyzeLogs(logs []models.LogEntry) []models.BugCandidate {
	if len(logs) == 0 {
		return nil
	}
	var out []models.BugCandidate
	counts := make(map[string]int)
	errorCount := 0
	var lastError time.Time
	for _, entry := range logs {
		if isErrorLevel(entry.Level) {
			errorCount++
			if entry.Timestamp.After(lastError) {
				lastError = entry.Timestamp
			}
		}
		matches := d.DetectPatterns(entry.Message)
		if len(matches) == 0 {
			continue
		}
		key := signatureKey(matches)
		counts[key]++
		if counts[key] != d.cfg.LogPatternThreshold {
			continue
		}
		top := strongest(matches)
		bug := d.candidate(models.CandidateErrorPattern, entry.Timestamp)
		bug.Severity = top.Severity
		bug.Category = top.Category
		bug.Component = entry.Component
		bug.Description = fmt.Sprintf("Recurring log pattern %s seen %d times", key, counts[key])
		bug.MatchedPatterns = matches
		bug.Occurrences = counts[key]
		out = append(out, bug)
	}

	rate := float64(errorCount) / float64(len(logs))
	if rate > d.cfg.ErrorRateThreshold {
		bug := d.candidate(models.CandidateHighErrorRate, lastError)
		bug.Severity = models.SeverityHigh
		bug.Category = "reliability"
		bug.Description = fmt.Sprintf("Error rate %.1f%% exceeds %.1f%% (%d of %d log lines)", rate*100, d.cfg.ErrorRateThreshold*100, errorCount, len(logs))
		bug.ErrorRate = rate
		bug.Occurrences = errorCount
		bug.Measurements = map[string]float64{"errorRate": rate, "errors": float64(errorCount), "total": float64(len(logs))}
		out = append(out, bug)
	}
	return out
}

func (d *Detector) candidate(kind string, at time.Time) models.BugCandidate {
	if at.IsZero() {
		at = d.clock.Now()
	}
	return models.BugCandidate{ID: d.newID(), Timestamp: at, Type: kind}
}

func severityForRatio(ratio float64) models.Severity {
	switch {
	case ratio > 10:
		return models.SeverityCritical
	case ratio > 5:
		return models.SeverityHigh
	case ratio > 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// strongest returns the first match with the highest severity.
func strongest(matches []models.PatternMatch) models.PatternMatch {
	top := matches[0]
	for _, m := range matches[1:] {
		if m.Severity.Rank() > top.Severity.Rank() {
			top = m
		}
	}
	return top
}

func signatureKey(matches []models.PatternMatch) string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

func isErrorLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error", "fatal", "critical":
		return true
	default:
		return false
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
