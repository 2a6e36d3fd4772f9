package domain

import (
	"math"
	"strconv"
	"strings"
)

// FlightRecord is one historical flight leg projected onto the canonical
// column set. A nil field was either absent from the source extract or held
// a value that could not be cast to the column's type.
type FlightRecord struct {
	FlyingAirline     *string
	Airline           *string
	FlightDate        *string
	DayOfWeek         *int
	Origin            *string
	CRSDepTime        *int
	DepDelay          *float64
	Dest              *string
	ArrDelay          *float64
	Cancelled         *float64
	ActualElapsedTime *float64
	TaxiIn            *float64
	TaxiOut           *float64
	CarrierDelay      *float64
	WeatherDelay      *float64
	NASDelay          *float64
	SecurityDelay     *float64
	LateAircraftDelay *float64
	CancellationCode  *string
	Div1Airport       *string
}

// Canonical column names.
const (
	ColFlyingAirline     = "Flying_Airline"
	ColAirline           = "Airline"
	ColFlightDate        = "FlightDate"
	ColDayOfWeek         = "DayOfWeek"
	ColOrigin            = "Origin"
	ColCRSDepTime        = "CRSDepTime"
	ColDepDelay          = "DepDelay"
	ColDest              = "Dest"
	ColArrDelay          = "ArrDelay"
	ColCancelled         = "Cancelled"
	ColActualElapsedTime = "ActualElapsedTime"
	ColTaxiIn            = "TaxiIn"
	ColTaxiOut           = "TaxiOut"
	ColCarrierDelay      = "CarrierDelay"
	ColWeatherDelay      = "WeatherDelay"
	ColNASDelay          = "NASDelay"
	ColSecurityDelay     = "SecurityDelay"
	ColLateAircraftDelay = "LateAircraftDelay"
	ColCancellationCode  = "CancellationCode"
	ColDiv1Airport       = "Div1Airport"
)

// column binds a canonical column name to its typed field on FlightRecord.
type column struct {
	name   string
	parse  func(r *FlightRecord, raw string)
	format func(r *FlightRecord) string
}

func stringColumn(name string, field func(r *FlightRecord) **string) column {
	return column{
		name:   name,
		parse:  func(r *FlightRecord, raw string) { *field(r) = castString(raw) },
		format: func(r *FlightRecord) string { return formatString(*field(r)) },
	}
}

func intColumn(name string, field func(r *FlightRecord) **int) column {
	return column{
		name:   name,
		parse:  func(r *FlightRecord, raw string) { *field(r) = castInt(raw) },
		format: func(r *FlightRecord) string { return formatInt(*field(r)) },
	}
}

func floatColumn(name string, field func(r *FlightRecord) **float64) column {
	return column{
		name:   name,
		parse:  func(r *FlightRecord, raw string) { *field(r) = castFloat(raw) },
		format: func(r *FlightRecord) string { return FormatFloat(*field(r)) },
	}
}

var columns = []column{
	stringColumn(ColFlyingAirline, func(r *FlightRecord) **string { return &r.FlyingAirline }),
	stringColumn(ColAirline, func(r *FlightRecord) **string { return &r.Airline }),
	stringColumn(ColFlightDate, func(r *FlightRecord) **string { return &r.FlightDate }),
	intColumn(ColDayOfWeek, func(r *FlightRecord) **int { return &r.DayOfWeek }),
	stringColumn(ColOrigin, func(r *FlightRecord) **string { return &r.Origin }),
	intColumn(ColCRSDepTime, func(r *FlightRecord) **int { return &r.CRSDepTime }),
	floatColumn(ColDepDelay, func(r *FlightRecord) **float64 { return &r.DepDelay }),
	stringColumn(ColDest, func(r *FlightRecord) **string { return &r.Dest }),
	floatColumn(ColArrDelay, func(r *FlightRecord) **float64 { return &r.ArrDelay }),
	floatColumn(ColCancelled, func(r *FlightRecord) **float64 { return &r.Cancelled }),
	floatColumn(ColActualElapsedTime, func(r *FlightRecord) **float64 { return &r.ActualElapsedTime }),
	floatColumn(ColTaxiIn, func(r *FlightRecord) **float64 { return &r.TaxiIn }),
	floatColumn(ColTaxiOut, func(r *FlightRecord) **float64 { return &r.TaxiOut }),
	floatColumn(ColCarrierDelay, func(r *FlightRecord) **float64 { return &r.CarrierDelay }),
	floatColumn(ColWeatherDelay, func(r *FlightRecord) **float64 { return &r.WeatherDelay }),
	floatColumn(ColNASDelay, func(r *FlightRecord) **float64 { return &r.NASDelay }),
	floatColumn(ColSecurityDelay, func(r *FlightRecord) **float64 { return &r.SecurityDelay }),
	floatColumn(ColLateAircraftDelay, func(r *FlightRecord) **float64 { return &r.LateAircraftDelay }),
	stringColumn(ColCancellationCode, func(r *FlightRecord) **string { return &r.CancellationCode }),
	stringColumn(ColDiv1Airport, func(r *FlightRecord) **string { return &r.Div1Airport }),
}

// Columns returns the canonical column names in output order.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// ParseFlightRecord projects a source row onto the canonical columns.
// lookup returns the raw cell for a canonical column and false when the
// source has no such column; missing columns stay nil. Casting is
// permissive: a cell that does not parse as the column's type becomes nil.
func ParseFlightRecord(lookup func(col string) (string, bool)) FlightRecord {
	var r FlightRecord
	for _, c := range columns {
		raw, ok := lookup(c.name)
		if !ok {
			continue
		}
		c.parse(&r, raw)
	}
	return r
}

// Cells formats the record in Columns order. Nil fields are empty strings.
func (r *FlightRecord) Cells() []string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = c.format(r)
	}
	return cells
}

func castString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

func castInt(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	// Some extracts write integral columns as "830.00".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

func castFloat(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// FormatFloat renders a nullable float in its shortest exact form, or "" for nil.
func FormatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
