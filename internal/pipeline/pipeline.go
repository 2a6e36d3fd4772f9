package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/flight-delay-etl/internal/fit"
	"github.com/couchcryptid/flight-delay-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// FlightSource reads every raw flight record for a build.
type FlightSource interface {
	LoadFlights(ctx context.Context) ([]domain.FlightRecord, domain.IngestReport, error)
}

// TableWriter persists the consolidated dataset and the per-level tables.
type TableWriter interface {
	DatasetExists() bool
	TableExists(l domain.Level) bool
	WriteDataset(flights []domain.EnrichedFlight) error
	WriteTable(l domain.Level, rows []domain.GroupSummary) error
}

// BundleStore persists the bundle.
type BundleStore interface {
	Exists() bool
	Save(b *domain.Bundle) error
}

// SummaryPublisher exports the rows of a freshly saved bundle.
type SummaryPublisher interface {
	PublishBundle(ctx context.Context, b *domain.Bundle) error
}

// Options tunes a Builder.
type Options struct {
	MinRecords int
	Workers    int // <= 0 selects fit.DefaultWorkers
	Overwrite  bool
	Publisher  SummaryPublisher
}

// Report describes one build.
type Report struct {
	// Skipped is set when every output already existed and nothing ran.
	Skipped   bool
	Ingest    domain.IngestReport
	Retained  map[domain.Level]int
	Dropped   map[domain.Level]int
	Fallbacks map[domain.Level]int
	Bundle    *domain.Bundle
}

// Builder runs ingest, enrich, aggregate, fit and persist once.
type Builder struct {
	source  FlightSource
	tables  TableWriter
	store   BundleStore
	fitter  fit.GroupFitter
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	ready   atomic.Bool
}

// New creates a Builder with the given stages and observability.
func New(src FlightSource, tables TableWriter, store BundleStore, fitter fit.GroupFitter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Builder {
	if opts.MinRecords <= 0 {
		opts.MinRecords = domain.DefaultMinRecords
	}
	return &Builder{
		source:  src,
		tables:  tables,
		store:   store,
		fitter:  fitter,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// CheckReadiness returns nil once a build has persisted its bundle or found
// every output already in place.
func (b *Builder) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("build has not completed yet")
	}
	return nil
}

// Build runs the batch once. Existing outputs are left alone unless
// Options.Overwrite is set; when all of them exist nothing is read.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	b.metrics.BuildRunning.Set(1)
	defer b.metrics.BuildRunning.Set(0)

	if !b.opts.Overwrite && b.allOutputsExist() {
		b.logger.Info("all outputs exist, skipping build")
		b.ready.Store(true)
		return &Report{Skipped: true}, nil
	}

	records, ingest, err := b.source.LoadFlights(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	b.recordIngest(ingest)
	b.logger.Info("ingest complete",
		"files_loaded", ingest.FilesLoaded,
		"files_failed", ingest.FilesFailed,
		"rows_skipped", ingest.RowsSkipped,
		"records", ingest.Records,
	)

	flights := domain.EnrichAll(records)
	if b.shouldWrite(b.tables.DatasetExists()) {
		if err := b.tables.WriteDataset(flights); err != nil {
			return nil, fmt.Errorf("write dataset: %w", err)
		}
	}

	report := &Report{
		Ingest:    ingest,
		Retained:  make(map[domain.Level]int),
		Dropped:   make(map[domain.Level]int),
		Fallbacks: make(map[domain.Level]int),
	}

	var all []domain.GroupSummary
	for _, l := range domain.CascadeLevels {
		rows, stats, err := b.buildLevel(ctx, flights, l)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", l, err)
		}
		report.Retained[l] = len(rows)
		report.Dropped[l] = stats.dropped
		report.Fallbacks[l] = stats.fallbacks

		if b.shouldWrite(b.tables.TableExists(l)) {
			if err := b.tables.WriteTable(l, rows); err != nil {
				return nil, fmt.Errorf("write level %d table: %w", l, err)
			}
		}
		all = append(all, rows...)
	}

	bundle := domain.NewBundle(domain.NewBundleMeta(b.opts.MinRecords), all)
	report.Bundle = bundle

	if !b.shouldWrite(b.store.Exists()) {
		b.logger.Info("bundle exists, not replacing")
		b.ready.Store(true)
		return report, nil
	}
	if err := b.store.Save(bundle); err != nil {
		return nil, fmt.Errorf("save bundle: %w", err)
	}
	b.logger.Info("bundle saved", "build_id", bundle.Meta().BuildID, "rows", len(all))
	b.ready.Store(true)

	if b.opts.Publisher != nil {
		if err := b.opts.Publisher.PublishBundle(ctx, bundle); err != nil {
			b.logger.Error("summary export failed", "error", err, "build_id", bundle.Meta().BuildID)
		}
	}
	return report, nil
}

func (b *Builder) allOutputsExist() bool {
	if !b.tables.DatasetExists() || !b.store.Exists() {
		return false
	}
	for _, l := range domain.CascadeLevels {
		if !b.tables.TableExists(l) {
			return false
		}
	}
	return true
}

func (b *Builder) shouldWrite(exists bool) bool {
	return b.opts.Overwrite || !exists
}

func (b *Builder) recordIngest(r domain.IngestReport) {
	b.metrics.FilesLoaded.Add(float64(r.FilesLoaded))
	b.metrics.FilesFailed.Add(float64(r.FilesFailed))
	b.metrics.RowsSkipped.Add(float64(r.RowsSkipped))
	b.metrics.RecordsIngested.Add(float64(r.Records))
}

func levelLabel(l domain.Level) string {
	return strconv.Itoa(int(l))
}
