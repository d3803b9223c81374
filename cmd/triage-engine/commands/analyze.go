package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-triage/internal/engine"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/services"
)

var (
	analyzeResults string
	analyzeContext string
	analyzeBundle  string
	analyzeOut     string
	analyzeWorkers int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Triage one batch of test results",
	Long: `Reads a test-result bundle (and optionally a context bundle), runs the full
triage pipeline and prints the batch report as JSON. Bundles may be YAML or JSON.`,
	Example: `  triage-engine analyze --results nightly.yaml --context prod-context.yaml
  triage-engine analyze --bundle drop.json --out report.json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeResults, "results", "", "Path to a test-result bundle")
	analyzeCmd.Flags().StringVar(&analyzeContext, "context", "", "Path to an analysis-context bundle")
	analyzeCmd.Flags().StringVar(&analyzeBundle, "bundle", "", "Path to a combined bundle with results and context keys")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write the report to this file instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Override engine.workers")

	analyzeCmd.MarkFlagsMutuallyExclusive("results", "bundle")
	analyzeCmd.MarkFlagsMutuallyExclusive("context", "bundle")
	analyzeCmd.MarkFlagsOneRequired("results", "bundle")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if analyzeWorkers > 0 {
		cfg.Engine.Workers = analyzeWorkers
	}

	loader := repo.NewBundleLoader(nil, logger)
	results, actx, err := loadInputs(loader)
	if err != nil {
		return err
	}

	pipeline, err := engine.Build(cfg, insightStore(cfg), logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := services.NewTriageService(logger, pipeline, loader).Triage(ctx, results, actx)
	if err != nil {
		return err
	}

	if analyzeOut != "" {
		if err := services.WriteReport(analyzeOut, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report written", slog.String("path", analyzeOut), slog.Int("candidates", report.Summary.Total))
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func loadInputs(loader *repo.BundleLoader) (models.TestResults, models.AnalysisContext, error) {
	if analyzeBundle != "" {
		bundle, err := loader.LoadBundle(analyzeBundle)
		return bundle.Results, bundle.Context, err
	}

	results, err := loader.LoadTestResults(analyzeResults)
	if err != nil {
		return results, models.AnalysisContext{}, err
	}
	var actx models.AnalysisContext
	if analyzeContext != "" {
		if actx, err = loader.LoadContext(analyzeContext); err != nil {
			return results, actx, err
		}
	}
	return results, actx, nil
}
