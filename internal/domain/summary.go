package domain

import "strconv"

// DefaultMinRecords is the smallest group kept by Aggregate unless configured otherwise.
const DefaultMinRecords = 30

// GroupSummary holds the delay statistics and fitted distribution of one group.
// Nil statistics come from groups where the underlying values were all null.
type GroupSummary struct {
	Key GroupKey `json:"key"`

	PLessThan15    *float64 `json:"pLessThan15"`
	PGreaterThan60 *float64 `json:"pGreaterThan60"`
	Delay90th      *float64 `json:"delay90th"`
	// DelayMedian is the median of clamped-positive delay. It keeps the
	// delayMean wire name used by existing tables and bundles.
	DelayMedian  *float64 `json:"delayMean"`
	DelayStd     *float64 `json:"delayStd"`
	PCancel      *float64 `json:"pCancel"`
	N            int      `json:"n"`
	ArrDelayMean *float64 `json:"arrDelayMean"`
	ArrDelayStd  *float64 `json:"arrDelayStd"`

	Shape float64 `json:"shape"`
	Scale float64 `json:"scale"`
}

// SummaryColumns lists the statistic columns written after a level's key
// columns in a per-level table.
func SummaryColumns() []string {
	return []string{
		"pGreaterThan60", "pLessThan15", "delay90th", "delayMean", "delayStd",
		"pCancel", "n", "arrDelayMean", "arrDelayStd", "shape", "scale",
	}
}

// TableHeader returns the full column header of a level's table.
func TableHeader(l Level) []string {
	fields := l.Fields()
	header := make([]string, 0, len(fields)+len(SummaryColumns()))
	for _, f := range fields {
		header = append(header, f.String())
	}
	return append(header, SummaryColumns()...)
}

// Cells formats the summary as a table row matching TableHeader(s.Key.Level).
func (s *GroupSummary) Cells() []string {
	cells := s.Key.Values()
	return append(cells,
		FormatFloat(s.PGreaterThan60),
		FormatFloat(s.PLessThan15),
		FormatFloat(s.Delay90th),
		FormatFloat(s.DelayMedian),
		FormatFloat(s.DelayStd),
		FormatFloat(s.PCancel),
		strconv.Itoa(s.N),
		FormatFloat(s.ArrDelayMean),
		FormatFloat(s.ArrDelayStd),
		strconv.FormatFloat(s.Shape, 'g', -1, 64),
		strconv.FormatFloat(s.Scale, 'g', -1, 64),
	)
}
