// Command genflights writes synthetic monthly on-time performance extracts
// for local builds and demos. Months alternate between the carrier-era column
// layout (Reporting_Airline, IATA_CODE_Reporting_Airline) and the later
// marketing/operating layout (Marketing_Airline_Network, "Operating_Airline ")
// so the ingest schema reconciliation is exercised.
//
// Usage:
//
//	go run ./cmd/genflights -out data -year 2019 -months 6 -per-day 40
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

var carrierEraHeader = []string{
	"Year", "Month", "FlightDate", "Reporting_Airline", "IATA_CODE_Reporting_Airline", "DayOfWeek",
	"Origin", "Dest", "CRSDepTime", "DepDelay", "ArrDelay", "Cancelled", "CancellationCode",
	"TaxiOut", "TaxiIn", "ActualElapsedTime", "CarrierDelay", "WeatherDelay", "NASDelay",
	"SecurityDelay", "LateAircraftDelay", "Div1Airport",
}

var marketingEraHeader = []string{
	"FlightDate", "Marketing_Airline_Network", "Operating_Airline ", "DayOfWeek", "Origin", "Dest",
	"CRSDepTime", "DepDelay", "ArrDelay", "Cancelled", "CancellationCode", "Div1Airport",
}

// carrier is a synthetic airline with its own delay character.
type carrier struct {
	code     string
	operator string
	shape    float64
	scale    float64
	cancel   float64
}

var carriers = []carrier{
	{code: "AA", operator: "MQ", shape: 1.4, scale: 14, cancel: 0.020},
	{code: "DL", operator: "DL", shape: 1.8, scale: 9, cancel: 0.010},
	{code: "UA", operator: "OO", shape: 1.3, scale: 16, cancel: 0.025},
	{code: "WN", operator: "WN", shape: 1.6, scale: 12, cancel: 0.015},
	{code: "AS", operator: "QX", shape: 2.2, scale: 8, cancel: 0.008},
}

var airports = []string{"SEA", "ORD", "ATL", "DEN", "JFK", "SFO"}

var departures = []int{600, 745, 815, 930, 1120, 1305, 1450, 1635, 1810, 2040}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data", "directory to write extract CSVs into")
	year := flag.Int("year", 2019, "calendar year of the generated flights")
	months := flag.Int("months", 3, "number of months to generate, starting in January")
	perDay := flag.Int("per-day", 40, "flights per airline, origin and day")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *months < 1 || *months > 12 {
		flag.Usage()
		return fmt.Errorf("-months must be 1-12, got %d", *months)
	}
	if *perDay < 1 {
		flag.Usage()
		return fmt.Errorf("-per-day must be positive, got %d", *perDay)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	counts := map[string]int{}

	for m := 1; m <= *months; m++ {
		rows := generateMonth(rng, *year, time.Month(m), *perDay)
		header := marketingEraHeader
		if m%2 == 1 {
			header = carrierEraHeader
		}
		name := fmt.Sprintf("ontime_%d_%02d.csv", *year, m)
		path := filepath.Join(*outDir, name)
		if err := writeCSV(path, header, rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		for _, r := range rows {
			counts[r["Reporting_Airline"]]++
		}
		log.Printf("%s: %d flights", name, len(rows))
	}

	printStats(counts)
	return nil
}

// generateMonth returns one row per flight, keyed by column name. Both
// layouts are projected from the same map.
func generateMonth(rng *rand.Rand, year int, month time.Month, perDay int) []map[string]string {
	var rows []map[string]string
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day := first; day.Month() == month; day = day.AddDate(0, 0, 1) {
		for _, c := range carriers {
			delays := distuv.Weibull{K: c.shape, Lambda: c.scale, Src: rng}
			for _, origin := range airports {
				for range perDay {
					rows = append(rows, flightRow(rng, delays, c, origin, day))
				}
			}
		}
	}
	return rows
}

func flightRow(rng *rand.Rand, delays distuv.Weibull, c carrier, origin string, day time.Time) map[string]string {
	dest := airports[rng.IntN(len(airports))]
	for dest == origin {
		dest = airports[rng.IntN(len(airports))]
	}
	dep := departures[rng.IntN(len(departures))]
	date := day.Format("2006-01-02")

	row := map[string]string{
		"Year":                        strconv.Itoa(day.Year()),
		"Month":                       strconv.Itoa(int(day.Month())),
		"FlightDate":                  date,
		"Reporting_Airline":           c.code,
		"IATA_CODE_Reporting_Airline": c.operator,
		"Marketing_Airline_Network":   c.code,
		"Operating_Airline ":          c.operator,
		"DayOfWeek":                   strconv.Itoa(isoWeekday(day)),
		"Origin":                      origin,
		"Dest":                        dest,
		"CRSDepTime":                  fmt.Sprintf("%04d", dep),
		"Cancelled":                   "0.00",
	}

	if rng.Float64() < c.cancel {
		row["Cancelled"] = "1.00"
		row["CancellationCode"] = string(rune('A' + rng.IntN(4)))
		return row
	}

	// Shift the draw so a share of flights leave early.
	delay := math.Round(delays.Rand() - 8)
	arr := delay + math.Round(rng.NormFloat64()*6)
	taxiOut := 10 + rng.IntN(20)
	taxiIn := 4 + rng.IntN(10)

	row["DepDelay"] = strconv.FormatFloat(delay, 'f', 2, 64)
	row["ArrDelay"] = strconv.FormatFloat(arr, 'f', 2, 64)
	row["TaxiOut"] = strconv.Itoa(taxiOut)
	row["TaxiIn"] = strconv.Itoa(taxiIn)
	row["ActualElapsedTime"] = strconv.Itoa(90 + taxiOut + taxiIn + rng.IntN(180))
	if arr >= 15 {
		row["CarrierDelay"] = strconv.FormatFloat(math.Round(arr*0.6), 'f', 2, 64)
		row["LateAircraftDelay"] = strconv.FormatFloat(arr-math.Round(arr*0.6), 'f', 2, 64)
		row["WeatherDelay"] = "0.00"
		row["NASDelay"] = "0.00"
		row["SecurityDelay"] = "0.00"
	}
	return row
}

// isoWeekday returns 1 for Monday through 7 for Sunday.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

func writeCSV(path string, header []string, rows []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func printStats(counts map[string]int) {
	codes := make([]string, 0, len(counts))
	total := 0
	for code, n := range counts {
		codes = append(codes, code)
		total += n
	}
	sort.Strings(codes)

	fmt.Println("\n=== Generated flights ===")
	fmt.Printf("Total: %d\n", total)
	for _, code := range codes {
		fmt.Printf("  %s=%d\n", code, counts[code])
	}
}
