// Command serve loads a built bundle once and answers delay queries over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	badgeradapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/badger"
	httpadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/http"
	"github.com/couchcryptid/flight-delay-etl/internal/config"
	"github.com/couchcryptid/flight-delay-etl/internal/observability"
	"github.com/couchcryptid/flight-delay-etl/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	bundle, err := badgeradapter.NewStore(cfg.BundlePath, logger).Load()
	if err != nil {
		logger.Error("failed to load bundle", "error", err, "path", cfg.BundlePath)
		os.Exit(1)
	}
	meta := bundle.Meta()
	for _, l := range bundle.Levels() {
		metrics.BundleRows.WithLabelValues(strconv.Itoa(int(l))).Set(float64(bundle.Len(l)))
	}
	logger.Info("bundle loaded", "build_id", meta.BuildID, "built_at", meta.BuiltAt, "min_records", meta.MinRecords)

	res := resolver.New(bundle, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, res, res, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
