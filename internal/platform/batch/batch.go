// Package batch runs independent lookups with a fixed worker budget.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Map applies fn to every item using at most concurrency goroutines and returns
// the results in input order: results[i] is fn's outcome for items[i] whatever
// the completion order.
//
// Workers claim indices from a shared counter, so each slot is written exactly
// once by the worker that claimed it. fn cannot fail; callers encode failures in R
// so that one bad item never leaves other slots empty.
func Map[T, R any](
	ctx context.Context,
	items []T,
	concurrency int,
	fn func(ctx context.Context, item T, index int) R,
) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := max(concurrency, 1)
	workers = min(workers, len(items))

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return
				}
				results[i] = fn(ctx, items[i], i)
			}
		}()
	}
	wg.Wait()

	return results
}
