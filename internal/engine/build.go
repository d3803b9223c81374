package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-triage/internal/classifier"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/detector"
	"github.com/miradorstack/mirador-triage/internal/impact"
	"github.com/miradorstack/mirador-triage/internal/patterns"
	"github.com/miradorstack/mirador-triage/internal/rootcause"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// Build wires every stage from cfg. The pattern pack and override rules are
// loaded from the paths in cfg; store may be nil.
func Build(cfg *config.Config, store patterns.Store, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: %w: nil config", config.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	clock := utils.SystemClock{}

	library, err := patterns.LoadLibrary(cfg.Patterns.Path)
	if err != nil {
		return nil, utils.NewAppError("engine.Build", "load pattern pack", err)
	}
	overrides, err := classifier.LoadOverrides(cfg.Rules.Path)
	if err != nil {
		return nil, utils.NewAppError("engine.Build", "load override rules", err)
	}

	det, err := detector.New(cfg.Detector, library, clock, uuid.NewString, logger.With(slog.String("stage", "detector")))
	if err != nil {
		return nil, err
	}
	cls, err := classifier.New(cfg.Classifier, overrides, logger.With(slog.String("stage", "classifier")))
	if err != nil {
		return nil, err
	}
	analyzer, err := rootcause.New(cfg.RootCause, clock, logger.With(slog.String("stage", "rootcause")))
	if err != nil {
		return nil, err
	}
	calculator, err := impact.New(cfg.Impact, nil, clock, logger.With(slog.String("stage", "impact")))
	if err != nil {
		return nil, err
	}

	logger.Info("triage pipeline ready",
		slog.Int("patterns", len(library.Patterns())),
		slog.Int("overrides", len(overrides)),
		slog.Int("workers", cfg.Engine.Workers))
	return NewPipeline(logger, cfg.Engine, det, cls, analyzer, calculator, patterns.NewMiner(logger, store), clock)
}
