package domain

import "sort"

// groupAcc collects one group's columns during aggregation.
type groupAcc struct {
	onTime    flagMean
	severe    flagMean
	cancelled flagMean
	positive  []float64
	arrDelay  []float64
}

func (g *groupAcc) add(e *EnrichedFlight) {
	g.onTime.addBool(e.OnTime)
	g.severe.addBool(e.SevereDelay)
	if e.Cancelled != nil {
		g.cancelled.add(*e.Cancelled)
	}
	if e.PositiveDepDelay != nil {
		g.positive = append(g.positive, *e.PositiveDepDelay)
	}
	if e.ArrDelay != nil {
		g.arrDelay = append(g.arrDelay, *e.ArrDelay)
	}
}

func (g *groupAcc) summarize(k GroupKey) GroupSummary {
	sorted := sortedCopy(g.positive)
	return GroupSummary{
		Key:            k,
		PLessThan15:    g.onTime.value(),
		PGreaterThan60: g.severe.value(),
		Delay90th:      nearestQuantile(sorted, 0.9),
		DelayMedian:    median(sorted),
		DelayStd:       sampleStd(g.positive),
		PCancel:        g.cancelled.value(),
		N:              len(g.positive),
		ArrDelayMean:   mean(g.arrDelay),
		ArrDelayStd:    sampleStd(g.arrDelay),
	}
}

// Aggregate partitions flights by their level-l key and summarizes each
// partition. Groups with fewer than minRecords non-null delays are dropped
// and counted in dropped. Shape and Scale are left for the fitter. Rows are
// returned sorted by key for stable output; callers should still index by key.
func Aggregate(flights []EnrichedFlight, l Level, minRecords int) (kept []GroupSummary, dropped int) {
	groups := make(map[GroupKey]*groupAcc)
	for i := range flights {
		k, ok := keyOf(&flights[i], l)
		if !ok {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &groupAcc{}
			groups[k] = g
		}
		g.add(&flights[i])
	}

	kept = make([]GroupSummary, 0, len(groups))
	for k, g := range groups {
		if len(g.positive) < minRecords {
			dropped++
			continue
		}
		kept = append(kept, g.summarize(k))
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Key.String() < kept[j].Key.String()
	})
	return kept, dropped
}
