package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, filepath.Join("output", "chrome.db"), cfg.BundlePath)
	assert.Empty(t, cfg.SchemaFile)
	assert.Equal(t, 30, cfg.MinRecords)
	assert.Zero(t, cfg.FitWorkers)
	assert.False(t, cfg.Overwrite)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "flight-delay-summaries", cfg.KafkaSummaryTopic)
	assert.False(t, cfg.ExportEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/extracts")
	t.Setenv("OUTPUT_DIR", "/srv/out")
	t.Setenv("SCHEMA_FILE", "/etc/flight/schema.yaml")
	t.Setenv("MIN_RECORDS", "50")
	t.Setenv("FIT_WORKERS", "6")
	t.Setenv("OVERWRITE", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SUMMARY_TOPIC", "custom-summaries")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/extracts", cfg.DataDir)
	assert.Equal(t, "/srv/out", cfg.OutputDir)
	assert.Equal(t, "/srv/out/chrome.db", cfg.BundlePath)
	assert.Equal(t, "/etc/flight/schema.yaml", cfg.SchemaFile)
	assert.Equal(t, 50, cfg.MinRecords)
	assert.Equal(t, 6, cfg.FitWorkers)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-summaries", cfg.KafkaSummaryTopic)
	assert.True(t, cfg.ExportEnabled())
}

func TestLoad_ExplicitBundlePath(t *testing.T) {
	t.Setenv("BUNDLE_PATH", "/var/lib/flight/bundle")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flight/bundle", cfg.BundlePath)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{key: "MIN_RECORDS", value: "0"},
		{key: "MIN_RECORDS", value: "thirty"},
		{key: "FIT_WORKERS", value: "-2"},
		{key: "FIT_WORKERS", value: "many"},
		{key: "OVERWRITE", value: "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
