package rootcause

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// Analyzer correlates a candidate with its surrounding context to infer root causes.
// It is safe for concurrent use.
type Analyzer struct {
	cfg      config.RootCauseConfig
	clock    utils.Clock
	logger   *slog.Logger
	patterns *lru.Cache[string, *regexp.Regexp]
}

// New validates cfg and builds an Analyzer.
func New(cfg config.RootCauseConfig, clock utils.Clock, logger *slog.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rootcause: %w", err)
	}
	cache, err := lru.New[string, *regexp.Regexp](cfg.PatternCacheSize)
	if err != nil {
		return nil, fmt.Errorf("rootcause: pattern cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, clock: utils.ClockOrSystem(clock), logger: logger, patterns: cache}, nil
}

// Analyze runs every correlation detector and derives ranked root causes.
func (a *Analyzer) Analyze(bug models.BugCandidate, actx models.AnalysisContext) models.Analysis {
	at := bug.Timestamp
	if at.IsZero() {
		at = a.clock.Now()
	}

	analysis := models.Analysis{BugID: bug.ID}
	analysis.Correlations = a.correlate(bug, at, actx)
	analysis.Timeline = a.reconstructTimeline(bug, at, actx)
	analysis.Dependencies = analyzeDependencies(bug, actx)
	analysis.CodePath = a.analyzeCodePath(bug, at, actx)
	analysis.Configuration = a.analyzeConfiguration(at, actx)
	analysis.RootCauses = identifyRootCauses(analysis)
	analysis.ContributingFactors = a.contributingFactors(at, analysis, actx)
	analysis.Recommendations = generateRecommendations(analysis)

	if primary, ok := analysis.PrimaryCause(); ok {
		a.logger.Debug("root cause identified",
			slog.String("bug", bug.ID),
			slog.String("type", primary.Type),
			slog.Float64("confidence", primary.Confidence))
	}
	return analysis
}

func (a *Analyzer) correlate(bug models.BugCandidate, at time.Time, actx models.AnalysisContext) []models.Correlation {
	var all []models.Correlation
	all = append(all, a.temporalCorrelations(at, actx.RecentEvents)...)
	if c, ok := a.errorSpike(at, errorEvents(actx)); ok {
		all = append(all, c)
	}
	all = append(all, a.errorChains(at, errorEvents(actx))...)
	all = append(all, a.performanceDegradation(at, actx.Metrics)...)
	all = append(all, a.resourceSaturation(at, actx.ResourceUsage)...)
	all = append(all, a.deploymentCorrelations(at, actx.Deployments)...)

	kept := all[:0]
	for _, c := range all {
		if c.Confidence >= a.cfg.CorrelationThreshold {
			kept = append(kept, c)
			continue
		}
		a.logger.Debug("correlation below threshold",
			slog.String("bug", bug.ID),
			slog.String("type", string(c.Type)),
			slog.Float64("confidence", c.Confidence))
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func within(t, at time.Time, window time.Duration) bool {
	d := t.Sub(at)
	if d < 0 {
		d = -d
	}
	return d <= window
}
