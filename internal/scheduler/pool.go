package scheduler

import (
	"context"
	"sync"
)

// priceTask is one price-history lookup to fan out.
type priceTask struct {
	VenueMarketID string
}

// priceResult is the outcome of one priceTask.
type priceResult struct {
	VenueMarketID string
	Err           error
}

// runPool fans tasks over a fixed number of workers and streams results back
// on a channel. It exists purely to respect external rate limits while
// keeping many lookups in flight; everything else in the pipeline stays
// cooperative. The limiter inside the venue client still gates each request,
// so worker count bounds concurrency, not request rate.
func runPool(ctx context.Context, workers int, tasks []priceTask, do func(context.Context, priceTask) error) <-chan priceResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	taskCh := make(chan priceTask)
	results := make(chan priceResult)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for task := range taskCh {
				select {
				case <-ctx.Done():
					results <- priceResult{VenueMarketID: task.VenueMarketID, Err: ctx.Err()}
					continue
				default:
				}
				results <- priceResult{VenueMarketID: task.VenueMarketID, Err: do(ctx, task)}
			}
		}()
	}

	go func() {
		for _, t := range tasks {
			taskCh <- t
		}
		close(taskCh)
		wg.Wait()
		close(results)
	}()

	return results
}
