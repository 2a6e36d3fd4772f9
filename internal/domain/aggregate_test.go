package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flight(airline, origin string, dow, month, hour int, delay float64) EnrichedFlight {
	return Enrich(FlightRecord{
		Airline:    Ptr(airline),
		Origin:     Ptr(origin),
		DayOfWeek:  Ptr(dow),
		FlightDate: Ptr(dateIn(month)),
		CRSDepTime: Ptr(hour*100 + 15),
		DepDelay:   Ptr(delay),
		Cancelled:  Ptr(0.0),
		ArrDelay:   Ptr(delay - 2),
	})
}

func dateIn(month int) string {
	return "2019-" + [...]string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}[month-1] + "-05"
}

func repeatFlights(n int, f EnrichedFlight) []EnrichedFlight {
	out := make([]EnrichedFlight, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestAggregate_UniformDelays(t *testing.T) {
	flights := repeatFlights(40, flight("XX", "SEA", 2, 3, 8, 5))

	kept, dropped := Aggregate(flights, 5, DefaultMinRecords)

	require.Len(t, kept, 1)
	assert.Zero(t, dropped)
	s := kept[0]
	assert.Equal(t, GroupKey{Level: 5, Airline: "XX", Hour: 8, Month: 3, Origin: "SEA", DayOfWeek: 2}, s.Key)
	assert.Equal(t, 40, s.N)
	require.NotNil(t, s.PLessThan15)
	assert.InDelta(t, 1.0, *s.PLessThan15, 1e-12)
	require.NotNil(t, s.PGreaterThan60)
	assert.InDelta(t, 0.0, *s.PGreaterThan60, 1e-12)
	require.NotNil(t, s.DelayMedian)
	assert.InDelta(t, 5.0, *s.DelayMedian, 1e-12)
	require.NotNil(t, s.DelayStd)
	assert.InDelta(t, 0.0, *s.DelayStd, 1e-12)
	require.NotNil(t, s.PCancel)
	assert.InDelta(t, 0.0, *s.PCancel, 1e-12)
	require.NotNil(t, s.ArrDelayMean)
	assert.InDelta(t, 3.0, *s.ArrDelayMean, 1e-12)
}

func TestAggregate_DropsThinGroups(t *testing.T) {
	flights := append(
		repeatFlights(30, flight("AA", "SEA", 1, 1, 9, 0)),
		repeatFlights(29, flight("BB", "SEA", 1, 1, 9, 0))...,
	)

	kept, dropped := Aggregate(flights, 5, 30)

	require.Len(t, kept, 1)
	assert.Equal(t, "AA", kept[0].Key.Airline)
	assert.Equal(t, 1, dropped)
	for _, s := range kept {
		assert.GreaterOrEqual(t, s.N, 30)
	}
}

func TestAggregate_LevelsMergeFinerGroups(t *testing.T) {
	var flights []EnrichedFlight
	flights = append(flights, repeatFlights(20, flight("AA", "SEA", 1, 3, 8, 0))...)
	flights = append(flights, repeatFlights(20, flight("AA", "SEA", 2, 3, 8, 90))...)
	flights = append(flights, repeatFlights(20, flight("AA", "PDX", 2, 3, 8, 30))...)

	level5, dropped5 := Aggregate(flights, 5, 30)
	assert.Empty(t, level5)
	assert.Equal(t, 3, dropped5)

	level4, _ := Aggregate(flights, 4, 30)
	require.Len(t, level4, 1)
	assert.Equal(t, GroupKey{Level: 4, Airline: "AA", Hour: 8, Month: 3, Origin: "SEA"}, level4[0].Key)
	assert.Equal(t, 40, level4[0].N)
	require.NotNil(t, level4[0].PGreaterThan60)
	assert.InDelta(t, 0.5, *level4[0].PGreaterThan60, 1e-12)

	level3, _ := Aggregate(flights, 3, 30)
	require.Len(t, level3, 1)
	assert.Equal(t, 60, level3[0].N)
}

func TestAggregate_Statistics(t *testing.T) {
	var flights []EnrichedFlight
	for i := 1; i <= 10; i++ {
		flights = append(flights, flight("AA", "SEA", 1, 1, 9, float64(i*10)))
	}
	flights = append(flights, flight("AA", "SEA", 1, 1, 9, -20))

	kept, _ := Aggregate(flights, 5, 1)

	require.Len(t, kept, 1)
	s := kept[0]
	assert.Equal(t, 11, s.N)
	// positive delays sorted: 0,10,...,100; nearest rank of 0.9*(11-1) = 9
	require.NotNil(t, s.Delay90th)
	assert.InDelta(t, 90.0, *s.Delay90th, 1e-12)
	require.NotNil(t, s.DelayMedian)
	assert.InDelta(t, 50.0, *s.DelayMedian, 1e-12)
	require.NotNil(t, s.PLessThan15)
	assert.InDelta(t, 2.0/11.0, *s.PLessThan15, 1e-12)
	require.NotNil(t, s.PGreaterThan60)
	assert.InDelta(t, 5.0/11.0, *s.PGreaterThan60, 1e-12)
	require.NotNil(t, s.DelayStd)
	assert.InDelta(t, 33.166247903554, *s.DelayStd, 1e-9)
}

func TestAggregate_SkipsNullKeys(t *testing.T) {
	f := flight("AA", "SEA", 1, 1, 9, 0)
	f.Origin = nil
	flights := repeatFlights(40, f)

	level5, _ := Aggregate(flights, 5, 30)
	assert.Empty(t, level5)

	level3, _ := Aggregate(flights, 3, 30)
	assert.Len(t, level3, 1)
}

func TestAggregate_SeparatorInKeyValue(t *testing.T) {
	tests := []struct {
		name    string
		airline string
		origin  string
		level5  int
		level3  int
	}{
		{name: "origin", airline: "AA", origin: "S|EA", level5: 0, level3: 1},
		{name: "airline", airline: "A|A", origin: "SEA", level5: 0, level3: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flights := repeatFlights(40, flight(tt.airline, tt.origin, 1, 1, 9, 0))

			level5, _ := Aggregate(flights, 5, 30)
			assert.Len(t, level5, tt.level5)

			level3, _ := Aggregate(flights, 3, 30)
			assert.Len(t, level3, tt.level3)
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	kept, dropped := Aggregate(nil, 5, 30)
	assert.Empty(t, kept)
	assert.Zero(t, dropped)
}

func TestMedianEvenCount(t *testing.T) {
	m := median([]float64{1, 2, 3, 10})
	require.NotNil(t, m)
	assert.InDelta(t, 2.5, *m, 1e-12)
}
