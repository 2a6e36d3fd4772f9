package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
)

// DatasetFile is the consolidated enriched dataset written beside the tables.
const DatasetFile = "flights.csv"

// TableFile returns the file name of a level's summary table.
func TableFile(l domain.Level) string {
	return fmt.Sprintf("chrome%d.csv", l)
}

// Writer writes output tables into a directory.
// It implements pipeline.TableWriter.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// TableExists reports whether the level's table is already on disk.
func (w *Writer) TableExists(l domain.Level) bool {
	return fileExists(filepath.Join(w.dir, TableFile(l)))
}

// DatasetExists reports whether the consolidated dataset is already on disk.
func (w *Writer) DatasetExists() bool {
	return fileExists(filepath.Join(w.dir, DatasetFile))
}

// WriteTable writes one level's rows with the level's key columns first.
func (w *Writer) WriteTable(l domain.Level, rows []domain.GroupSummary) error {
	return w.writeAtomic(TableFile(l), func(cw *csv.Writer) error {
		if err := cw.Write(domain.TableHeader(l)); err != nil {
			return err
		}
		for i := range rows {
			if rows[i].Key.Level != l {
				return fmt.Errorf("row %s belongs to level %d, not %d", rows[i].Key, rows[i].Key.Level, l)
			}
			if err := cw.Write(rows[i].Cells()); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDataset writes the enriched flights.
func (w *Writer) WriteDataset(flights []domain.EnrichedFlight) error {
	return w.writeAtomic(DatasetFile, func(cw *csv.Writer) error {
		header := append(domain.Columns(), domain.EnrichedColumns()...)
		if err := cw.Write(header); err != nil {
			return err
		}
		for i := range flights {
			if err := cw.Write(flights[i].Cells()); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAtomic writes into a temp file in the target directory and renames
// it over name, so readers never see a half-written table.
func (w *Writer) writeAtomic(name string, fill func(*csv.Writer) error) (err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	cw := csv.NewWriter(tmp)
	if err := fill(cw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
