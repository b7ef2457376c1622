// Package asyncx runs independent calls concurrently.
package asyncx

import (
	"context"
	"errors"
	"sync"
)

// All calls fn for every item concurrently and waits for all of them.
// Results keep the order of items; every error is joined into the returned
// error, so one failure does not hide another.
func All[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			results[i], errs[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return results, err
	}
	return results, nil
}
