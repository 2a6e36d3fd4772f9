package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flight_delay"

// Metrics holds the Prometheus collectors for the batch build and the query service.
type Metrics struct {
	// Ingest metrics.
	FilesLoaded     prometheus.Counter
	FilesFailed     prometheus.Counter
	RowsSkipped     prometheus.Counter
	RecordsIngested prometheus.Counter

	// Aggregation and fitting metrics.
	GroupsRetained *prometheus.GaugeVec     // labels: level
	GroupsDropped  *prometheus.CounterVec   // labels: level
	FitFallbacks   *prometheus.CounterVec   // labels: level
	FitDuration    *prometheus.HistogramVec // labels: level
	FitProgress    *prometheus.GaugeVec     // labels: level
	BuildRunning   prometheus.Gauge

	// Query metrics.
	Queries    *prometheus.CounterVec // labels: outcome={matched,insufficient_data,no_match}, level
	BundleRows *prometheus.GaugeVec   // labels: level
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      "Extract files read successfully.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Extract files skipped because they could not be read.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Malformed rows skipped inside readable extract files.",
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Flight records ingested across all extract files.",
		}),
		GroupsRetained: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups_retained",
			Help:      "Groups meeting the minimum record count in the last build, by level.",
		}, []string{"level"}),
		GroupsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_dropped_total",
			Help:      "Groups dropped for having too few records, by level.",
		}, []string{"level"}),
		FitFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_fallbacks_total",
			Help:      "Groups that received the default shape and scale, by level.",
		}, []string{"level"}),
		FitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Wall time to fit every group of a level.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"level"}),
		FitProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_progress_ratio",
			Help:      "Fraction of a level's groups fitted so far.",
		}, []string{"level"}),
		BuildRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_running",
			Help:      "1 while a dataset build is in progress, 0 otherwise.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Resolved queries by outcome and matched level.",
		}, []string{"outcome", "level"}),
		BundleRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_rows",
			Help:      "Rows in the loaded bundle, by level.",
		}, []string{"level"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesLoaded,
		m.FilesFailed,
		m.RowsSkipped,
		m.RecordsIngested,
		m.GroupsRetained,
		m.GroupsDropped,
		m.FitFallbacks,
		m.FitDuration,
		m.FitProgress,
		m.BuildRunning,
		m.Queries,
		m.BundleRows,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
