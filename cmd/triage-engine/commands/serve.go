package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-triage/internal/api"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/engine"
	"github.com/miradorstack/mirador-triage/internal/metrics"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch an inbox directory and triage every bundle dropped into it",
	Long: `Runs the triage engine as a long-lived process. Bundles written to inbox.dir are
triaged and their reports written to inbox.outDir. Prometheus metrics are served
on server.metricsAddress and gRPC health on server.healthAddress. The config file
is hot-reloaded.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Info("starting mirador-triage",
		slog.String("version", Version),
		slog.String("inbox", cfg.Inbox.Dir),
		slog.String("health", cfg.Server.HealthAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	pipeline, err := engine.Build(cfg, insightStore(cfg), logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	svc := services.NewTriageService(logger, pipeline, repo.NewBundleLoader(nil, logger))

	server, err := api.NewServer(cfg.Server)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go func() {
		if err := svc.WatchInbox(ctx, cfg.Inbox.Dir, cfg.Inbox.OutDir); err != nil {
			logger.Error("inbox watcher exited", slog.Any("error", err))
			stop()
		}
	}()

	if path := resolvedConfigPath(); path != "" {
		go func() {
			err := config.Watch(ctx, path, logger, func(next *config.Config) {
				rebuilt, err := engine.Build(next, insightStore(next), newLogger(next))
				if err != nil {
					logger.Error("pipeline rebuild failed, keeping previous pipeline", slog.Any("error", err))
					server.SetServing(false)
					return
				}
				svc.SetPipeline(rebuilt)
				server.SetServing(true)
			})
			if err != nil {
				logger.Warn("config watcher unavailable", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("mirador-triage stopped", slog.Duration("p95", svc.LatencyP95()))
	return nil
}
