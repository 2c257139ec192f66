package extract

import (
	"context"
	"sync"
)

// runPool calls fn for every index in [0, n) on at most workers goroutines
// and returns the results in input order. Each call writes only its own slot,
// so the gather needs no lock. Once ctx is done, remaining items are skipped
// and keep their zero value.
func runPool[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	type workItem struct {
		index int
	}

	workChan := make(chan workItem, n)
	for i := 0; i < n; i++ {
		workChan <- workItem{index: i}
	}
	close(workChan)

	var wg sync.WaitGroup
	for w := 0; w < workers && w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workChan {
				if ctx.Err() != nil {
					continue
				}
				results[item.index] = fn(ctx, item.index)
			}
		}()
	}

	wg.Wait()
	return results
}
