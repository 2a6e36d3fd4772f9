// Package domain models historical flight legs and the delay summaries built
// from them.
//
// # Data Source
//
// Flight records come from monthly on-time performance extracts (one CSV per
// month). Older extracts name the carrier columns Reporting_Airline and
// IATA_CODE_Reporting_Airline; newer ones split them into
// Marketing_Airline_Network and Operating_Airline. The ingest adapter resolves
// both onto Airline (the marketing carrier) and Flying_Airline (the carrier
// operating the leg) before [ParseFlightRecord] runs.
//
// # Derived Fields
//
//	Month:            calendar month of FlightDate (YYYY-MM-DD)
//	Hour:             CRSDepTime floor-divided by 100, so 0830 -> 8
//	OnTime:           DepDelay <= 15
//	SevereDelay:      DepDelay >= 60
//	PositiveDepDelay: DepDelay with early and on-the-minute departures mapped to 0
//
// # Grouping
//
// Summaries are keyed on a prefix of (Airline, Hour, Month, Origin, DayOfWeek).
// Level 5 uses all five fields, level 4 drops DayOfWeek and level 3 also drops
// Origin. A group is kept only when it holds at least MinRecords non-null
// delays; thinner groups are never stored.
//
// # Statistics
//
//	pLessThan15:    mean of OnTime
//	pGreaterThan60: mean of SevereDelay
//	delay90th:      nearest-rank 90th percentile of PositiveDepDelay
//	delayMean:      median of PositiveDepDelay (the name is historical)
//	delayStd:       sample standard deviation of PositiveDepDelay
//	pCancel:        mean of Cancelled
//	n:              count of non-null PositiveDepDelay
//
// Shape and scale come from the Weibull fit in package fit.
package domain
