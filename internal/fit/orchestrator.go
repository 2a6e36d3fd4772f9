package fit

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// GroupFitter fits one group. *Fitter implements it.
type GroupFitter interface {
	Fit(in Input) Params
}

// ProgressFunc is called after each chunk completes with the number of
// inputs fitted so far. It may be called from several goroutines.
type ProgressFunc func(done, total int)

// Orchestrator runs a GroupFitter over many inputs on a bounded pool.
type Orchestrator struct {
	fitter   GroupFitter
	workers  int
	progress ProgressFunc
}

// DefaultWorkers leaves one CPU free, with a floor of one worker.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// NewOrchestrator creates an Orchestrator. workers <= 0 selects DefaultWorkers;
// progress may be nil.
func NewOrchestrator(f GroupFitter, workers int, progress ProgressFunc) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Orchestrator{fitter: f, workers: workers, progress: progress}
}

// Workers returns the pool size.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// ChunkSize splits total inputs into roughly four chunks per worker.
func ChunkSize(total, workers int) int {
	return max(1, total/(workers*4))
}

// FitAll fits every input and returns results aligned with inputs: out[i]
// belongs to inputs[i]. Chunks are index-tagged and write straight into the
// result slice, so completion order does not matter. Cancelling ctx stops
// further chunks from being dispatched; chunks already finished keep their
// results and the context error is returned.
func (o *Orchestrator) FitAll(ctx context.Context, inputs []Input) ([]Params, error) {
	out := make([]Params, len(inputs))
	total := len(inputs)
	if total == 0 {
		return out, nil
	}

	size := ChunkSize(total, o.workers)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for start := 0; start < total; start += size {
		if gctx.Err() != nil {
			break
		}
		lo, hi := start, min(start+size, total)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = o.fitter.Fit(inputs[i])
			}
			n := done.Add(int64(hi - lo))
			if o.progress != nil {
				o.progress(int(n), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
