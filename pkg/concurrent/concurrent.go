// Package concurrent runs independent work over slices on a bounded number
// of goroutines.
package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

func limit(workers, n int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return min(workers, n)
}

// ParallelMap applies mapFn to each element using at most workers goroutines,
// preserving order. workers <= 0 means GOMAXPROCS. A single worker runs
// inline.
func ParallelMap[T any, R any](in []T, workers int, mapFn func(T) R) []R {
	out := make([]R, len(in))
	n := limit(workers, len(in))
	if n <= 1 {
		for i, v := range in {
			out[i] = mapFn(v)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(n)
	for i, v := range in {
		g.Go(func() error {
			out[i] = mapFn(v)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ForEach runs action for each element using at most workers goroutines and
// returns the first error. Elements not started yet are skipped once an
// action fails or ctx is done.
func ForEach[T any](ctx context.Context, in []T, workers int, action func(context.Context, T) error) error {
	if len(in) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers, len(in)))
	for _, v := range in {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return action(ctx, v)
		})
	}
	return g.Wait()
}
