// Package resolver answers point queries against a loaded bundle by falling
// back from the most specific grouping level to the coarsest.
package resolver

import (
	"context"
	"errors"
	"strconv"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/flight-delay-etl/internal/observability"
)

// CancelMinSample is the sample size a group must exceed before its
// cancellation rate is reported.
const CancelMinSample = 100

// Outcome is the result class of a resolution.
type Outcome int

const (
	// NoMatch means no level held a row for the query.
	NoMatch Outcome = iota
	// MatchedButInsufficient means a row matched but its on-time rate is null.
	MatchedButInsufficient
	// Matched means a row matched and Result is populated.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case MatchedButInsufficient:
		return "insufficient_data"
	default:
		return "no_match"
	}
}

// Query is a point query. Waypoint and Layover are carried for callers but
// take no part in matching.
type Query struct {
	DayOfWeek int
	Month     int
	Origin    string
	Waypoint  string
	Airline   string
	Hour      int
	Layover   string
}

// Key returns the most specific key for the query.
func (q Query) Key() domain.GroupKey {
	return domain.GroupKey{
		Level:     5,
		Airline:   q.Airline,
		Hour:      q.Hour,
		Month:     q.Month,
		Origin:    q.Origin,
		DayOfWeek: q.DayOfWeek,
	}
}

// Summary is the mean of every row matched at one level.
type Summary struct {
	Key  domain.GroupKey
	Rows int

	PLessThan15    *float64
	PGreaterThan60 *float64
	Delay90th      *float64
	DelayMedian    *float64
	DelayStd       *float64
	PCancel        *float64
	N              float64
	ArrDelayMean   *float64
	ArrDelayStd    *float64
	Shape          float64
	Scale          float64
}

// Result holds the rounded values shown to a caller.
type Result struct {
	OnTimePercent      int
	SevereDelayPercent *int
	DelayMedianMinutes *int
	DelayStdMinutes    *int
	Delay90thMinutes   *int
	// CancelPercent is nil when the group has CancelMinSample flights or fewer.
	CancelPercent *float64
	SampleSize    int
	Shape         float64
	Scale         float64
}

// Resolution is what Resolve returns. Level and Summary are set unless the
// outcome is NoMatch; Result is set only when the outcome is Matched.
type Resolution struct {
	Outcome Outcome
	Level   domain.Level
	Summary *Summary
	Result  *Result
}

// Resolver resolves queries against one immutable bundle. It is safe for
// concurrent use.
type Resolver struct {
	bundle  *domain.Bundle
	levels  []domain.Level
	metrics *observability.Metrics
}

// New creates a Resolver cascading through domain.CascadeLevels. metrics may be nil.
func New(b *domain.Bundle, metrics *observability.Metrics) *Resolver {
	return &Resolver{bundle: b, levels: domain.CascadeLevels, metrics: metrics}
}

// CheckReadiness reports whether a bundle is loaded.
func (r *Resolver) CheckReadiness(_ context.Context) error {
	if r.bundle == nil {
		return errors.New("no bundle loaded")
	}
	return nil
}

// Bundle returns the bundle being served.
func (r *Resolver) Bundle() *domain.Bundle {
	return r.bundle
}

// Resolve walks the cascade and stops at the first level with any rows.
func (r *Resolver) Resolve(q Query) Resolution {
	res := Resolution{Outcome: NoMatch}
	key := q.Key()
	for _, l := range r.levels {
		if res = r.step(key.At(l)); res.Outcome != NoMatch {
			break
		}
	}
	r.record(res)
	return res
}

// step resolves a single level.
func (r *Resolver) step(k domain.GroupKey) Resolution {
	rows := r.bundle.Lookup(k)
	if len(rows) == 0 {
		return Resolution{Outcome: NoMatch}
	}

	s := reduce(k, rows)
	if s.PLessThan15 == nil {
		return Resolution{Outcome: MatchedButInsufficient, Level: k.Level, Summary: s}
	}
	return Resolution{Outcome: Matched, Level: k.Level, Summary: s, Result: present(s)}
}

func (r *Resolver) record(res Resolution) {
	if r.metrics == nil {
		return
	}
	level := ""
	if res.Outcome != NoMatch {
		level = strconv.Itoa(int(res.Level))
	}
	r.metrics.Queries.WithLabelValues(res.Outcome.String(), level).Inc()
}

// reduce averages every numeric field across rows. Null values are left out
// of their field's mean; a field null in every row stays null.
func reduce(k domain.GroupKey, rows []domain.GroupSummary) *Summary {
	var p15, p60, d90, med, std, cancel, arrMean, arrStd nullableMean
	var n, shape, scale float64
	for i := range rows {
		row := &rows[i]
		p15.add(row.PLessThan15)
		p60.add(row.PGreaterThan60)
		d90.add(row.Delay90th)
		med.add(row.DelayMedian)
		std.add(row.DelayStd)
		cancel.add(row.PCancel)
		arrMean.add(row.ArrDelayMean)
		arrStd.add(row.ArrDelayStd)
		n += float64(row.N)
		shape += row.Shape
		scale += row.Scale
	}
	count := float64(len(rows))
	return &Summary{
		Key:            k,
		Rows:           len(rows),
		PLessThan15:    p15.value(),
		PGreaterThan60: p60.value(),
		Delay90th:      d90.value(),
		DelayMedian:    med.value(),
		DelayStd:       std.value(),
		PCancel:        cancel.value(),
		N:              n / count,
		ArrDelayMean:   arrMean.value(),
		ArrDelayStd:    arrStd.value(),
		Shape:          shape / count,
		Scale:          scale / count,
	}
}

func present(s *Summary) *Result {
	res := &Result{
		OnTimePercent:      roundInt(100 * *s.PLessThan15),
		SevereDelayPercent: roundIntPtr(scaled(s.PGreaterThan60, 100)),
		DelayMedianMinutes: roundIntPtr(s.DelayMedian),
		DelayStdMinutes:    roundIntPtr(s.DelayStd),
		Delay90thMinutes:   roundIntPtr(s.Delay90th),
		SampleSize:         roundInt(s.N),
		Shape:              s.Shape,
		Scale:              s.Scale,
	}
	if s.N > CancelMinSample && s.PCancel != nil {
		res.CancelPercent = domain.Ptr(roundHalfEven(100 * *s.PCancel, 1))
	}
	return res
}

type nullableMean struct {
	sum   float64
	count int
}

func (m *nullableMean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.count++
}

func (m *nullableMean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	return domain.Ptr(m.sum / float64(m.count))
}

func scaled(v *float64, by float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Ptr(*v * by)
}
