package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	badgeradapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/badger"
	csvadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/csv"
	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(k domain.GroupKey, n int) domain.GroupSummary {
	return domain.GroupSummary{
		Key:            k,
		N:              n,
		PLessThan15:    domain.Ptr(0.8),
		PGreaterThan60: domain.Ptr(0.05),
		PCancel:        domain.Ptr(0.01),
		Shape:          2,
		Scale:          10,
	}
}

func healthyRows() []domain.GroupSummary {
	k := domain.GroupKey{Level: 5, Airline: "AA", Hour: 8, Month: 3, Origin: "SEA", DayOfWeek: 2}
	return []domain.GroupSummary{row(k, 40), row(k.At(4), 90), row(k.At(3), 300)}
}

func healthyBundle() *domain.Bundle {
	return domain.NewBundle(domain.BundleMeta{BuildID: "b1", MinRecords: 30}, healthyRows())
}

func failing(phases []*phase) []string {
	var names []string
	for _, p := range phases {
		if !p.passed() {
			names = append(names, p.name)
		}
	}
	return names
}

func TestValidateBundle_Healthy(t *testing.T) {
	assert.Empty(t, failing(validateBundle(healthyBundle())))
}

func TestValidateBundle_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rows []domain.GroupSummary) []domain.GroupSummary
		phase  string
	}{
		{
			name:   "thin group",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary { rows[0].N = 12; return rows },
			phase:  "Minimum record count",
		},
		{
			name:   "shape out of bounds",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary { rows[1].Shape = 9; return rows },
			phase:  "Fitted parameter bounds",
		},
		{
			name:   "probability above one",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary { rows[2].PCancel = domain.Ptr(1.5); return rows },
			phase:  "Probabilities in [0, 1]",
		},
		{
			name:   "missing level",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary { return rows[:2] },
			phase:  "Levels present",
		},
		{
			name: "orphaned child",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary {
				rows[0].Key.Airline = "DL"
				return rows
			},
			phase: "Coarser levels cover finer ones",
		},
		{
			name: "stray field past prefix",
			mutate: func(rows []domain.GroupSummary) []domain.GroupSummary {
				rows[2].Key.Origin = "SEA"
				return rows
			},
			phase: "Key shape per level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := domain.NewBundle(domain.BundleMeta{MinRecords: 30}, tt.mutate(healthyRows()))
			assert.Contains(t, failing(validateBundle(b)), tt.phase)
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "chrome.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := healthyBundle()
	require.NoError(t, badgeradapter.NewStore(bundlePath, logger).Save(b))
	w := csvadapter.NewWriter(dir)
	for _, l := range domain.CascadeLevels {
		require.NoError(t, w.WriteTable(l, b.Rows(l)))
	}

	var out bytes.Buffer
	assert.Equal(t, 0, run(bundlePath, dir, &out), out.String())
	assert.Contains(t, out.String(), "All validations passed.")

	require.NoError(t, os.Remove(filepath.Join(dir, csvadapter.TableFile(4))))
	out.Reset()
	assert.Equal(t, 1, run(bundlePath, dir, &out))
	assert.Contains(t, out.String(), "Per-level tables match bundle")
}
