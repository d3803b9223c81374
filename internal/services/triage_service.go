package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/miradorstack/mirador-triage/internal/engine"
	"github.com/miradorstack/mirador-triage/internal/metrics"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

const reportSuffix = ".report.json"

// TriageService fronts the pipeline for long-running use: it records metrics
// and latency, and turns bundle files into report files.
type TriageService struct {
	logger    *slog.Logger
	pipeline  atomic.Pointer[engine.Pipeline]
	loader    *repo.BundleLoader
	latencies *utils.LatencyTracker
}

// NewTriageService constructs the service facade.
func NewTriageService(logger *slog.Logger, pipeline *engine.Pipeline, loader *repo.BundleLoader) *TriageService {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = repo.NewBundleLoader(nil, logger)
	}
	s := &TriageService{
		logger:    logger,
		loader:    loader,
		latencies: utils.NewLatencyTracker(1024),
	}
	s.pipeline.Store(pipeline)
	return s
}

// SetPipeline swaps the pipeline used for subsequent batches, e.g. after a config reload.
func (s *TriageService) SetPipeline(p *engine.Pipeline) {
	if p == nil {
		return
	}
	s.pipeline.Store(p)
	s.logger.Info("triage pipeline replaced")
}

// Triage runs one batch through the pipeline.
func (s *TriageService) Triage(ctx context.Context, results models.TestResults, actx models.AnalysisContext) (models.Report, error) {
	pipeline := s.pipeline.Load()
	if pipeline == nil {
		return models.Report{}, utils.NewAppError("services.Triage", "pipeline not configured", nil)
	}

	start := time.Now()
	report, err := pipeline.Run(ctx, results, actx)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveBatch(duration, metrics.OutcomeError)
		s.logger.Error("triage batch failed", slog.Any("error", err))
		return models.Report{}, utils.NewAppError("services.Triage", "batch failed", err)
	}
	s.latencies.Observe(duration)
	metrics.ObserveBatch(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("triage latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return report, nil
}

// ProcessFile triages a combined bundle file and writes the report into outDir.
// It returns the report path.
func (s *TriageService) ProcessFile(ctx context.Context, path, outDir string) (string, error) {
	bundle, err := s.loader.LoadBundle(path)
	if err != nil {
		metrics.ObserveBatch(0, metrics.OutcomeError)
		return "", err
	}
	report, err := s.Triage(ctx, bundle.Results, bundle.Context)
	if err != nil {
		return "", err
	}

	out := ReportPath(path, outDir)
	if err := WriteReport(out, report); err != nil {
		return "", utils.NewAppError("services.ProcessFile", path, err)
	}
	s.logger.Info("report written",
		slog.String("bundle", path),
		slog.String("report", out),
		slog.Int("candidates", report.Summary.Total))
	return out, nil
}

// LatencyP95 returns the current p95 batch latency.
func (s *TriageService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// ReportPath maps a bundle path to its report file name inside outDir.
func ReportPath(bundlePath, outDir string) string {
	name := filepath.Base(bundlePath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(outDir, name+reportSuffix)
}

// WriteReport writes report as indented JSON, replacing path atomically.
func WriteReport(path string, report models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
