package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
)

// --- mocks ---

type mockSource struct {
	records []domain.FlightRecord
	err     error
	calls   int
}

func (m *mockSource) LoadFlights(_ context.Context) ([]domain.FlightRecord, domain.IngestReport, error) {
	m.calls++
	if m.err != nil {
		return nil, domain.IngestReport{}, m.err
	}
	return m.records, domain.IngestReport{FilesLoaded: 1, Records: len(m.records)}, nil
}

type mockTables struct {
	datasetExists bool
	existing      map[domain.Level]bool

	dataset []domain.EnrichedFlight
	written map[domain.Level][]domain.GroupSummary
}

func newMockTables() *mockTables {
	return &mockTables{
		existing: make(map[domain.Level]bool),
		written:  make(map[domain.Level][]domain.GroupSummary),
	}
}

func (m *mockTables) DatasetExists() bool {
	return m.datasetExists
}

func (m *mockTables) TableExists(l domain.Level) bool {
	return m.existing[l]
}

func (m *mockTables) WriteDataset(flights []domain.EnrichedFlight) error {
	m.dataset = flights
	return nil
}

func (m *mockTables) WriteTable(l domain.Level, rows []domain.GroupSummary) error {
	m.written[l] = rows
	return nil
}

type mockStore struct {
	exists bool
	saved  *domain.Bundle
	err    error
}

func (m *mockStore) Exists() bool { return m.exists }

func (m *mockStore) Save(b *domain.Bundle) error {
	if m.err != nil {
		return m.err
	}
	m.saved = b
	return nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published []*domain.Bundle
	fail      bool
}

func (m *mockPublisher) PublishBundle(_ context.Context, b *domain.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker unavailable")
	}
	m.published = append(m.published, b)
	return nil
}

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flightRecord builds a raw record for a March 2019 flight on the given
// day of week. dep is a 4-digit scheduled departure time.
func flightRecord(airline, origin string, dow, dep int, delay float64) domain.FlightRecord {
	return domain.FlightRecord{
		FlyingAirline: domain.Ptr(airline),
		Airline:       domain.Ptr(airline),
		FlightDate:    domain.Ptr(fmt.Sprintf("2019-03-%02d", 3+dow)),
		DayOfWeek:     domain.Ptr(dow),
		Origin:        domain.Ptr(origin),
		CRSDepTime:    domain.Ptr(dep),
		DepDelay:      domain.Ptr(delay),
		Dest:          domain.Ptr("JFK"),
		ArrDelay:      domain.Ptr(delay),
		Cancelled:     domain.Ptr(0.0),
	}
}

func repeatRecords(n int, r domain.FlightRecord) []domain.FlightRecord {
	out := make([]domain.FlightRecord, n)
	for i := range out {
		out[i] = r
	}
	return out
}
