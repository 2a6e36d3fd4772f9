package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/flight-delay-etl/internal/adapter/http"
	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/flight-delay-etl/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type recordingResolver struct {
	res  resolver.Resolution
	last resolver.Query
}

func (m *recordingResolver) Resolve(q resolver.Query) resolver.Resolution {
	m.last = q
	return m.res
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, discardLogger())
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthzReturns200(t *testing.T) {
	rec, body := get(t, newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec, body := get(t, newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec, body := get(t, newTestServer(fmt.Errorf("no bundle loaded")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no bundle loaded", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDelayRouteAbsentWithoutResolver(t *testing.T) {
	rec, _ := get(t, newTestServer(nil), "/v1/delays/2/3/SEA/JFK/AA/8/0")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelay_ParsesQuery(t *testing.T) {
	res := &recordingResolver{res: resolver.Resolution{Outcome: resolver.NoMatch}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, res, discardLogger())

	get(t, srv, "/v1/delays/2/3/sea/JFK/aa/8/1")

	assert.Equal(t, resolver.Query{
		DayOfWeek: 2, Month: 3, Origin: "SEA", Waypoint: "JFK", Airline: "AA", Hour: 8, Layover: "1",
	}, res.last)
}

func TestDelay_InvalidInput(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &recordingResolver{}, discardLogger())

	tests := []struct {
		name, path, field string
	}{
		{"day of week zero", "/v1/delays/0/3/SEA/JFK/AA/8/0", "dayOfWeek"},
		{"day of week eight", "/v1/delays/8/3/SEA/JFK/AA/8/0", "dayOfWeek"},
		{"month thirteen", "/v1/delays/2/13/SEA/JFK/AA/8/0", "month"},
		{"month not a number", "/v1/delays/2/march/SEA/JFK/AA/8/0", "month"},
		{"hour 24", "/v1/delays/2/3/SEA/JFK/AA/24/0", "hour"},
		{"negative hour", "/v1/delays/2/3/SEA/JFK/AA/-1/0", "hour"},
		{"blank airline", "/v1/delays/2/3/SEA/JFK/%20/8/0", "airline"},
		{"blank origin", "/v1/delays/2/3/%20/JFK/AA/8/0", "origin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, srv, tt.path)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", body["status"])
			assert.Contains(t, body["error"], tt.field)
		})
	}
}

func TestDelay_Outcomes(t *testing.T) {
	k4 := domain.GroupKey{Level: 4, Airline: "AA", Hour: 8, Month: 3, Origin: "SEA"}
	b := domain.NewBundle(domain.BundleMeta{BuildID: "b"}, []domain.GroupSummary{
		{
			Key: k4, N: 150,
			PLessThan15: domain.Ptr(0.81), PGreaterThan60: domain.Ptr(0.06),
			DelayMedian: domain.Ptr(4.2), DelayStd: domain.Ptr(18.7), Delay90th: domain.Ptr(35.0),
			PCancel: domain.Ptr(0.0123), Shape: 2.5, Scale: 11,
		},
		{Key: domain.GroupKey{Level: 3, Airline: "UA", Hour: 6, Month: 1}, N: 40},
	})
	srv := httpadapter.NewServer(":0", &mockReadiness{}, resolver.New(b, nil), discardLogger())

	t.Run("matched at level 4", func(t *testing.T) {
		rec, body := get(t, srv, "/v1/delays/2/3/SEA/JFK/AA/8/0")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "matched", body["status"])
		assert.InDelta(t, 4, body["level"], 0)
		assert.InDelta(t, 81, body["onTimePercent"], 0)
		assert.InDelta(t, 6, body["severeDelayPercent"], 0)
		assert.InDelta(t, 4, body["delayMedianMinutes"], 0)
		assert.InDelta(t, 19, body["delayStdMinutes"], 0)
		assert.InDelta(t, 35, body["delay90thMinutes"], 0)
		assert.InDelta(t, 1.2, body["cancelPercent"], 1e-9)
		assert.InDelta(t, 150, body["sampleSize"], 0)
		assert.InDelta(t, 2.5, body["shape"], 0)
	})

	t.Run("insufficient data", func(t *testing.T) {
		rec, body := get(t, srv, "/v1/delays/1/1/ORD/DEN/UA/6/0")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "insufficient_data", body["status"])
		assert.InDelta(t, 3, body["level"], 0)
		assert.NotContains(t, body, "onTimePercent")
	})

	t.Run("no match", func(t *testing.T) {
		rec, body := get(t, srv, "/v1/delays/1/1/ORD/DEN/DL/6/0")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, map[string]any{"status": "no_match"}, body)
	})
}
