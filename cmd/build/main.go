// Command build runs the flight delay batch once: it ingests the raw extracts,
// writes the enriched dataset and per-level tables, and persists the bundle
// served by cmd/serve.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	badgeradapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/badger"
	csvadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/csv"
	httpadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flight-delay-etl/internal/config"
	"github.com/couchcryptid/flight-delay-etl/internal/fit"
	"github.com/couchcryptid/flight-delay-etl/internal/observability"
	"github.com/couchcryptid/flight-delay-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	schema := csvadapter.DefaultSchema()
	if cfg.SchemaFile != "" {
		s, err := csvadapter.LoadSchema(cfg.SchemaFile)
		if err != nil {
			return err
		}
		schema = s
		logger.Info("column schema loaded", "path", cfg.SchemaFile)
	}

	opts := pipeline.Options{
		MinRecords: cfg.MinRecords,
		Workers:    cfg.FitWorkers,
		Overwrite:  cfg.Overwrite,
	}
	if cfg.ExportEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts.Publisher = publisher
		logger.Info("summary export enabled", "topic", cfg.KafkaSummaryTopic)
	}

	builder := pipeline.New(
		csvadapter.NewSource(cfg.DataDir, schema, logger),
		csvadapter.NewWriter(cfg.OutputDir),
		badgeradapter.NewStore(cfg.BundlePath, logger),
		fit.NewFitter(),
		logger,
		metrics,
		opts,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, builder, nil, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("build starting",
		"data_dir", cfg.DataDir,
		"output_dir", cfg.OutputDir,
		"bundle_path", cfg.BundlePath,
		"min_records", opts.MinRecords,
		"overwrite", opts.Overwrite,
	)
	report, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	if report.Skipped {
		return nil
	}

	logger.Info("build complete",
		"records", report.Ingest.Records,
		"level5_groups", report.Retained[5],
		"level4_groups", report.Retained[4],
		"level3_groups", report.Retained[3],
	)
	return nil
}
