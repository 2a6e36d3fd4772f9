// Package csv reads monthly flight extracts from a directory and writes the
// per-level summary tables and the consolidated enriched dataset.
package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
)

var (
	// ErrNoFiles means the data directory holds no extract files.
	ErrNoFiles = errors.New("no csv files found")
	// ErrNoUsableFiles means every extract file failed to parse.
	ErrNoUsableFiles = errors.New("no csv files could be read")
)

// Source loads every *.csv extract in a directory.
// It implements pipeline.FlightSource.
type Source struct {
	dir    string
	schema Schema
	logger *slog.Logger
}

// NewSource creates a Source over dir using schema for column reconciliation.
func NewSource(dir string, schema Schema, logger *slog.Logger) *Source {
	return &Source{dir: dir, schema: schema, logger: logger}
}

// LoadFlights reads all extracts in lexical file order. A file that cannot be
// opened or has no header is logged and skipped; malformed rows inside a
// readable file are skipped and counted. It fails only when the directory is
// missing or empty, or when no file could be read at all.
func (s *Source) LoadFlights(ctx context.Context) ([]domain.FlightRecord, domain.IngestReport, error) {
	var report domain.IngestReport

	files, err := s.discover()
	if err != nil {
		return nil, report, err
	}

	var records []domain.FlightRecord
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		recs, skipped, err := s.readFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable extract", "file", filepath.Base(path), "error", err)
			report.FilesFailed++
			continue
		}

		s.logger.Info("loaded extract", "file", filepath.Base(path), "records", len(recs), "skipped_rows", skipped)
		report.FilesLoaded++
		report.RowsSkipped += skipped
		records = append(records, recs...)
	}

	if report.FilesLoaded == 0 {
		return nil, report, fmt.Errorf("%w in %s (%d failed)", ErrNoUsableFiles, s.dir, report.FilesFailed)
	}

	report.Records = len(records)
	return records, report, nil
}

func (s *Source) discover() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, s.dir)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Source) readFile(path string) ([]domain.FlightRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, errors.New("empty file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	idx := s.schema.Resolve(header)

	var (
		records []domain.FlightRecord
		skipped int
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		records = append(records, domain.ParseFlightRecord(func(col string) (string, bool) {
			i, ok := idx[col]
			if !ok {
				return "", false
			}
			if i >= len(row) {
				return "", true
			}
			return row[i], true
		}))
	}
	return records, skipped, nil
}
