// Package observability provides the structured logger and Prometheus metrics.
package observability

import (
	"log/slog"

	"github.com/couchcryptid/flight-delay-etl/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds a slog logger from LOG_LEVEL and LOG_FORMAT and installs
// it as the process default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
