package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	// OnTimeThreshold is the departure delay in minutes at or below which a
	// flight counts as on time.
	OnTimeThreshold = 15.0
	// SevereDelayThreshold is the departure delay in minutes at or above which
	// a flight counts as severely delayed.
	SevereDelayThreshold = 60.0

	flightDateLayout = "2006-01-02"
)

// EnrichedFlight is a FlightRecord plus the fields derived from it.
type EnrichedFlight struct {
	FlightRecord

	Month            *int
	Hour             *int
	OnTime           *bool
	SevereDelay      *bool
	PositiveDepDelay *float64
}

// Enrich derives calendar, time-bucket and delay-classification fields from a
// single record. It reads nothing but r.
func Enrich(r FlightRecord) EnrichedFlight {
	r.CancellationCode = nullIfBlank(r.CancellationCode)
	r.Div1Airport = nullIfBlank(r.Div1Airport)

	e := EnrichedFlight{FlightRecord: r}

	if r.FlightDate != nil {
		if t, err := time.Parse(flightDateLayout, strings.TrimSpace(*r.FlightDate)); err == nil {
			e.Month = Ptr(int(t.Month()))
		}
	}

	if r.CRSDepTime != nil {
		e.Hour = Ptr(floorDiv(*r.CRSDepTime, 100))
	}

	if r.DepDelay != nil {
		d := *r.DepDelay
		e.OnTime = Ptr(d <= OnTimeThreshold)
		e.SevereDelay = Ptr(d >= SevereDelayThreshold)
		if d <= 0 {
			d = 0
		}
		e.PositiveDepDelay = Ptr(d)
	}

	return e
}

// EnrichAll enriches each record in order.
func EnrichAll(records []FlightRecord) []EnrichedFlight {
	out := make([]EnrichedFlight, len(records))
	for i := range records {
		out[i] = Enrich(records[i])
	}
	return out
}

// EnrichedColumns lists the derived columns appended after Columns when the
// enriched dataset is written out.
func EnrichedColumns() []string {
	return []string{"Month", "Hour", "OnTimeFlag", "SevereDelayFlag", "PositiveDepDelay"}
}

// Cells formats the record followed by its derived fields.
func (e *EnrichedFlight) Cells() []string {
	cells := e.FlightRecord.Cells()
	return append(cells,
		formatInt(e.Month),
		formatInt(e.Hour),
		formatBool(e.OnTime),
		formatBool(e.SevereDelay),
		FormatFloat(e.PositiveDepDelay),
	)
}

func nullIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
