package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-triage/internal/classifier"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/detector"
	"github.com/miradorstack/mirador-triage/internal/impact"
	"github.com/miradorstack/mirador-triage/internal/metrics"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/patterns"
	"github.com/miradorstack/mirador-triage/internal/rootcause"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

var tracer = otel.Tracer("github.com/miradorstack/mirador-triage/internal/engine")

// Pipeline runs detection, classification, root-cause analysis and impact
// quantification over a batch.
type Pipeline struct {
	logger     *slog.Logger
	detector   *detector.Detector
	classifier *classifier.Classifier
	analyzer   *rootcause.Analyzer
	calculator *impact.Calculator
	miner      *patterns.Miner
	clock      utils.Clock
	workers    int
}

// NewPipeline constructs a pipeline. The detector, classifier, analyzer and
// calculator are required; a nil miner mines insights without persisting them.
func NewPipeline(
	logger *slog.Logger,
	cfg config.EngineConfig,
	det *detector.Detector,
	cls *classifier.Classifier,
	analyzer *rootcause.Analyzer,
	calculator *impact.Calculator,
	miner *patterns.Miner,
	clock utils.Clock,
) (*Pipeline, error) {
	if det == nil || cls == nil || analyzer == nil || calculator == nil {
		return nil, errors.New("engine: detector, classifier, analyzer and calculator are required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("engine: %w: workers must be >= 1, got %d", config.ErrInvalidConfig, cfg.Workers)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if miner == nil {
		miner = patterns.NewMiner(logger, nil)
	}
	return &Pipeline{
		logger:     logger,
		detector:   det,
		classifier: cls,
		analyzer:   analyzer,
		calculator: calculator,
		miner:      miner,
		clock:      utils.ClockOrSystem(clock),
		workers:    cfg.Workers,
	}, nil
}

// Run detects candidates in results and triages them against actx.
func (p *Pipeline) Run(ctx context.Context, results models.TestResults, actx models.AnalysisContext) (models.Report, error) {
	candidates := p.detector.Analyze(results)
	for _, c := range candidates {
		metrics.ObserveCandidate(c.Type)
	}
	p.logger.Debug("detection finished", slog.Int("candidates", len(candidates)))
	return p.Triage(ctx, candidates, actx)
}

// Triage assesses already-detected candidates. Candidates are processed in
// parallel, bounded by the configured worker count; assessments keep input order.
func (p *Pipeline) Triage(ctx context.Context, candidates []models.BugCandidate, actx models.AnalysisContext) (models.Report, error) {
	batchID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "triage.batch", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.candidates", len(candidates)),
	))
	defer span.End()

	assessments := make([]models.Assessment, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, bug := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assessments[i] = p.Assess(gctx, bug.Clone(), actx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return models.Report{}, fmt.Errorf("triage batch %s: %w", batchID, err)
	}

	classifications := make([]models.Classification, len(assessments))
	for i, a := range assessments {
		classifications[i] = a.Classification
		metrics.ObserveClassification(string(a.Classification.Priority))
	}

	insights, err := p.miner.Mine(ctx, batchID, assessments)
	if err != nil {
		return models.Report{}, fmt.Errorf("mine batch %s: %w", batchID, err)
	}

	report := models.Report{
		Assessments: assessments,
		Queue:       classifier.RankQueue(classifications),
		Summary:     summarize(assessments, p.clock.Now()),
		Insights:    insights,
	}
	p.logger.Info("batch triaged",
		slog.String("batch", batchID),
		slog.Int("candidates", report.Summary.Total),
		slog.Float64("financial_exposure", report.Summary.FinancialExposure))
	return report, nil
}

// Assess runs classification, root-cause analysis and impact calculation for one candidate.
func (p *Pipeline) Assess(ctx context.Context, bug models.BugCandidate, actx models.AnalysisContext) models.Assessment {
	bugAttr := attribute.String("bug.id", bug.ID)

	_, span := tracer.Start(ctx, "triage.classify", trace.WithAttributes(bugAttr))
	cls := p.classifier.Classify(bug)
	span.SetAttributes(attribute.String("bug.priority", string(cls.Priority)))
	span.End()

	_, span = tracer.Start(ctx, "triage.analyze", trace.WithAttributes(bugAttr))
	analysis := p.analyzer.Analyze(bug, actx)
	span.SetAttributes(attribute.Int("analysis.root_causes", len(analysis.RootCauses)))
	span.End()

	_, span = tracer.Start(ctx, "triage.impact", trace.WithAttributes(bugAttr))
	imp := p.calculator.Calculate(bug, actx)
	span.SetAttributes(attribute.Float64("impact.score", imp.TotalScore))
	span.End()

	return models.Assessment{Candidate: bug, Classification: cls, Analysis: analysis, Impact: imp}
}
