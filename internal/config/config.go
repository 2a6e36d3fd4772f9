package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir    string
	OutputDir  string
	BundlePath string
	SchemaFile string
	MinRecords int
	FitWorkers int // 0 selects NumCPU-1
	Overwrite  bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Summary export is enabled when KafkaBrokers is non-empty.
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	minRecords, err := parsePositiveInt("MIN_RECORDS", 30)
	if err != nil {
		return nil, err
	}

	fitWorkers, err := parseFitWorkers()
	if err != nil {
		return nil, err
	}

	overwrite, err := parseBool("OVERWRITE", false)
	if err != nil {
		return nil, err
	}

	outputDir := sharedcfg.EnvOrDefault("OUTPUT_DIR", "output")

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		DataDir:    sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		OutputDir:  outputDir,
		BundlePath: sharedcfg.EnvOrDefault("BUNDLE_PATH", filepath.Join(outputDir, "chrome.db")),
		SchemaFile: os.Getenv("SCHEMA_FILE"),
		MinRecords: minRecords,
		FitWorkers: fitWorkers,
		Overwrite:  overwrite,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:      brokers,
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "flight-delay-summaries"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ExportEnabled reports whether bundle rows should be published to Kafka.
func (c *Config) ExportEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parseFitWorkers() (int, error) {
	s := os.Getenv("FIT_WORKERS")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid FIT_WORKERS %q: must be a non-negative integer", s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be true or false", key, s)
	}
	return b, nil
}
