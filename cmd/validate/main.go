// Command validate checks a built bundle against the invariants every build
// must hold: all three levels present, no group below the minimum record
// count, fitted parameters inside the search bounds, well-formed keys,
// probabilities in [0, 1], and coarser levels covering finer ones. With
// -tables it also checks the per-level CSV tables agree with the bundle.
//
// Usage:
//
//	go run ./cmd/validate -bundle output/chrome.db -tables output
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	badgeradapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/badger"
	csvadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/csv"
	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/flight-delay-etl/internal/fit"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	bundlePath := flag.String("bundle", "output/chrome.db", "badger directory holding the bundle")
	tablesDir := flag.String("tables", "", "directory holding chrome{5,4,3}.csv (optional)")
	flag.Parse()

	os.Exit(run(*bundlePath, *tablesDir, os.Stdout))
}

func run(bundlePath, tablesDir string, out io.Writer) int {
	fmt.Fprintln(out, "=== Flight Delay Bundle Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := badgeradapter.NewStore(bundlePath, logger).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load bundle: %v\n", err)
		return 1
	}

	phases := validateBundle(b)
	if tablesDir != "" {
		phases = append(phases, validateTables(b, tablesDir))
	}

	return report(out, b, phases)
}

func validateBundle(b *domain.Bundle) []*phase {
	return []*phase{
		validateLevels(b),
		validateMinRecords(b),
		validateParamBounds(b),
		validateKeys(b),
		validateProbabilities(b),
		validateCoverage(b),
	}
}

func report(out io.Writer, b *domain.Bundle, phases []*phase) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	meta := b.Meta()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Build %s at %s, min records %d\n", meta.BuildID, meta.BuiltAt.Format("2006-01-02T15:04:05Z07:00"), meta.MinRecords)
	fmt.Fprintf(out, "Rows: level5=%d level4=%d level3=%d\n", b.Len(5), b.Len(4), b.Len(3))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateLevels(b *domain.Bundle) *phase {
	p := &phase{name: "Levels present"}
	for _, l := range domain.CascadeLevels {
		if b.Len(l) == 0 {
			p.errorf("level %d has no rows", l)
		}
	}
	return p
}

func validateMinRecords(b *domain.Bundle) *phase {
	p := &phase{name: "Minimum record count"}
	minRecords := b.Meta().MinRecords
	if minRecords < 1 {
		p.errorf("bundle metadata has min records %d", minRecords)
		return p
	}
	eachRow(b, func(l domain.Level, row *domain.GroupSummary) {
		if row.N < minRecords {
			p.errorf("level %d key %s: n=%d below %d", l, row.Key, row.N, minRecords)
		}
	})
	return p
}

func validateParamBounds(b *domain.Bundle) *phase {
	p := &phase{name: "Fitted parameter bounds"}
	eachRow(b, func(l domain.Level, row *domain.GroupSummary) {
		if row.Shape < fit.MinShape || row.Shape > fit.MaxShape {
			p.errorf("level %d key %s: shape %g outside [%g, %g]", l, row.Key, row.Shape, fit.MinShape, fit.MaxShape)
		}
		if row.Scale < fit.MinScale || row.Scale > fit.MaxScale {
			p.errorf("level %d key %s: scale %g outside [%g, %g]", l, row.Key, row.Scale, fit.MinScale, fit.MaxScale)
		}
	})
	return p
}

func validateKeys(b *domain.Bundle) *phase {
	p := &phase{name: "Key shape per level"}
	eachRow(b, func(l domain.Level, row *domain.GroupSummary) {
		k := row.Key
		if k.Level != l {
			p.errorf("row %s filed under level %d", k, l)
			return
		}
		if k.Airline == "" {
			p.errorf("level %d key %s: empty airline", l, k)
		}
		// 2400 departures bucket to hour 24.
		if k.Hour < 0 || k.Hour > 24 || k.Month < 1 || k.Month > 12 {
			p.errorf("level %d key %s: hour or month out of range", l, k)
		}
		if l >= 4 && k.Origin == "" {
			p.errorf("level %d key %s: empty origin", l, k)
		}
		if l == 5 && (k.DayOfWeek < 1 || k.DayOfWeek > 7) {
			p.errorf("level %d key %s: day of week out of range", l, k)
		}
		if k.At(l) != k {
			p.errorf("level %d key %s: fields set past the level prefix", l, k)
		}
		if parsed, err := domain.ParseGroupKey(l, k.String()); err != nil || parsed != k {
			p.errorf("level %d key %s: does not round-trip", l, k)
		}
	})
	return p
}

func validateProbabilities(b *domain.Bundle) *phase {
	p := &phase{name: "Probabilities in [0, 1]"}
	check := func(l domain.Level, k domain.GroupKey, name string, v *float64) {
		if v != nil && (*v < 0 || *v > 1) {
			p.errorf("level %d key %s: %s=%g", l, k, name, *v)
		}
	}
	eachRow(b, func(l domain.Level, row *domain.GroupSummary) {
		check(l, row.Key, "pLessThan15", row.PLessThan15)
		check(l, row.Key, "pGreaterThan60", row.PGreaterThan60)
		check(l, row.Key, "pCancel", row.PCancel)
	})
	return p
}

// validateCoverage checks that every retained group's coarser parent is also
// retained. A parent holds a superset of its child's flights, so it can never
// fall below the threshold when the child did not.
func validateCoverage(b *domain.Bundle) *phase {
	p := &phase{name: "Coarser levels cover finer ones"}
	levels := domain.CascadeLevels
	for i := 0; i+1 < len(levels); i++ {
		fine, coarse := levels[i], levels[i+1]
		for _, row := range b.Rows(fine) {
			parent := row.Key.At(coarse)
			if len(b.Lookup(parent)) == 0 {
				p.errorf("level %d key %s has no level %d parent %s", fine, row.Key, coarse, parent)
			}
			if parents := b.Lookup(parent); len(parents) > 0 && parents[0].N < row.N {
				p.errorf("level %d parent %s has n=%d below child %s n=%d", coarse, parent, parents[0].N, row.Key, row.N)
			}
		}
	}
	return p
}

func validateTables(b *domain.Bundle, dir string) *phase {
	p := &phase{name: "Per-level tables match bundle"}
	for _, l := range domain.CascadeLevels {
		name := csvadapter.TableFile(l)
		rows, err := readTable(filepath.Join(dir, name))
		if err != nil {
			p.errorf("%s: %v", name, err)
			continue
		}
		if len(rows) == 0 {
			p.errorf("%s: missing header", name)
			continue
		}
		want := domain.TableHeader(l)
		if fmt.Sprint(rows[0]) != fmt.Sprint(want) {
			p.errorf("%s: header %v, want %v", name, rows[0], want)
		}
		keys := len(l.Fields())
		for i, rec := range rows[1:] {
			k, err := domain.ParseGroupKey(l, strings.Join(rec[:min(keys, len(rec))], "|"))
			if err != nil {
				p.errorf("%s line %d: %v", name, i+2, err)
				continue
			}
			if len(b.Lookup(k)) == 0 {
				p.errorf("%s line %d: key %s not in bundle", name, i+2, k)
			}
		}
		if got := len(rows) - 1; got != b.Len(l) {
			p.errorf("%s: %d rows, bundle has %d", name, got, b.Len(l))
		}
	}
	return p
}

// ── Helpers ──

func eachRow(b *domain.Bundle, fn func(l domain.Level, row *domain.GroupSummary)) {
	for _, l := range b.Levels() {
		rows := b.Rows(l)
		for i := range rows {
			fn(l, &rows[i])
		}
	}
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
