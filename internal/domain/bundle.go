package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// BundleMeta describes the batch run that produced a bundle.
type BundleMeta struct {
	BuildID    string    `json:"buildId"`
	BuiltAt    time.Time `json:"builtAt"`
	MinRecords int       `json:"minRecords"`
}

// NewBundleMeta stamps a new build with a fresh ID and the current clock time.
func NewBundleMeta(minRecords int) BundleMeta {
	return BundleMeta{
		BuildID:    uuid.NewString(),
		BuiltAt:    clock.Now().UTC(),
		MinRecords: minRecords,
	}
}

// Bundle is the complete set of per-level summary tables produced by one
// batch run. It has no mutation methods and is safe for concurrent reads.
type Bundle struct {
	meta   BundleMeta
	tables map[Level]map[GroupKey][]GroupSummary
	counts map[Level]int
}

// NewBundle indexes rows by level and key. Each row is filed under its own
// Key.Level; rows are copied so later changes to the input have no effect.
func NewBundle(meta BundleMeta, rows []GroupSummary) *Bundle {
	b := &Bundle{
		meta:   meta,
		tables: make(map[Level]map[GroupKey][]GroupSummary),
		counts: make(map[Level]int),
	}
	for _, r := range rows {
		l := r.Key.Level
		t, ok := b.tables[l]
		if !ok {
			t = make(map[GroupKey][]GroupSummary)
			b.tables[l] = t
		}
		t[r.Key] = append(t[r.Key], r)
		b.counts[l]++
	}
	return b
}

// Meta returns the build metadata.
func (b *Bundle) Meta() BundleMeta {
	return b.meta
}

// Lookup returns the rows stored under k in the table of k.Level. The
// returned slice must not be modified.
func (b *Bundle) Lookup(k GroupKey) []GroupSummary {
	return b.tables[k.Level][k]
}

// Levels returns the levels present in the bundle, most specific first.
func (b *Bundle) Levels() []Level {
	levels := make([]Level, 0, len(b.tables))
	for l := range b.tables {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] > levels[j] })
	return levels
}

// Len returns the number of rows stored at level l.
func (b *Bundle) Len(l Level) int {
	return b.counts[l]
}

// Rows returns a copy of every row at level l, sorted by key.
func (b *Bundle) Rows(l Level) []GroupSummary {
	out := make([]GroupSummary, 0, b.counts[l])
	for _, rows := range b.tables[l] {
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
