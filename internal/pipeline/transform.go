package pipeline

import (
	"context"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/flight-delay-etl/internal/fit"
)

type levelStats struct {
	dropped   int
	fallbacks int
}

// buildLevel aggregates flights at one level and fits every retained group.
func (b *Builder) buildLevel(ctx context.Context, flights []domain.EnrichedFlight, l domain.Level) ([]domain.GroupSummary, levelStats, error) {
	label := levelLabel(l)

	rows, dropped := domain.Aggregate(flights, l, b.opts.MinRecords)
	b.metrics.GroupsRetained.WithLabelValues(label).Set(float64(len(rows)))
	b.metrics.GroupsDropped.WithLabelValues(label).Add(float64(dropped))
	b.logger.Info("aggregated level", "level", l, "groups", len(rows), "dropped", dropped)

	inputs := make([]fit.Input, len(rows))
	for i := range rows {
		inputs[i] = fit.InputFrom(&rows[i])
	}

	progress := func(done, total int) {
		b.metrics.FitProgress.WithLabelValues(label).Set(float64(done) / float64(total))
		b.logger.Info("fit progress", "level", l, "done", done, "total", total)
	}
	orch := fit.NewOrchestrator(b.fitter, b.opts.Workers, progress)

	start := b.clock.Now()
	params, err := orch.FitAll(ctx, inputs)
	if err != nil {
		return nil, levelStats{}, err
	}
	b.metrics.FitDuration.WithLabelValues(label).Observe(b.clock.Since(start).Seconds())

	stats := levelStats{dropped: dropped}
	for i, p := range params {
		rows[i].Shape = p.Shape
		rows[i].Scale = p.Scale
		if p.Fallback {
			stats.fallbacks++
			b.logger.Debug("fit fell back to default", "level", l, "key", rows[i].Key.String())
		}
	}
	b.metrics.FitFallbacks.WithLabelValues(label).Add(float64(stats.fallbacks))
	return rows, stats, nil
}
