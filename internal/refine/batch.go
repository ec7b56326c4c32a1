package refine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

// BatchSummary aggregates the outcomes of a batch.
type BatchSummary struct {
	Runs      int
	Converged int
	Exhausted int
	Aborted   int
}

// RunBatch executes n independent runs with at most parallel running at
// once. Each run gets its own controller so no state is shared. One run
// aborting does not stop the others; the summary reports the split.
func RunBatch(ctx context.Context, n, parallel int, build func(i int) *Controller) ([]Result, BatchSummary) {
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]Result, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			results[i] = build(i).Run(gctx)
			return nil
		})
	}
	// Goroutines never return errors; Wait is only a join point.
	_ = g.Wait()

	var sum BatchSummary
	sum.Runs = n
	for _, r := range results {
		switch r.Status {
		case StatusConverged:
			sum.Converged++
		case StatusExhausted:
			sum.Exhausted++
		case StatusAborted:
			sum.Aborted++
		}
	}
	logging.Loop("batch complete: %d runs, %d converged, %d exhausted, %d aborted",
		sum.Runs, sum.Converged, sum.Exhausted, sum.Aborted)
	return results, sum
}
