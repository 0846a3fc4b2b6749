package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// FetchAll fetches every cabin's feed concurrently and returns the results in
// cabin order. A failure, including a timeout, is recorded on its result and
// never aborts the other fetches.
func FetchAll(ctx context.Context, spec *Spec, source FeedSource) []FeedResult {
	results := make([]FeedResult, len(spec.Cabins))

	workers := spec.FetchWorkers
	if workers <= 0 {
		workers = len(spec.Cabins)
	}
	if workers == 0 {
		return results
	}
	sem := semaphore.NewWeighted(int64(workers))

	var wg sync.WaitGroup
	for i, cabin := range spec.Cabins {
		results[i].Cabin = cabin

		if cabin.FeedURL == "" {
			results[i].Err = fmt.Errorf("%w: %s: no feed configured", ErrFetchFailed, cabin.Name)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Err = fmt.Errorf("%w: %s: %w", ErrFetchFailed, cabin.Name, err)
			continue
		}

		wg.Add(1)
		go func(i int, cabin Cabin) {
			defer wg.Done()
			defer sem.Release(1)

			fetchCtx := ctx
			if spec.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, spec.FetchTimeout)
				defer cancel()
			}

			bookings, err := source.Fetch(fetchCtx, cabin)
			if err != nil {
				if !errors.Is(err, ErrFetchFailed) {
					err = fmt.Errorf("%w: %s: %w", ErrFetchFailed, cabin.Name, err)
				}
				results[i].Err = err
				return
			}
			results[i].Bookings = bookings
		}(i, cabin)
	}

	wg.Wait()
	return results
}
