package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PartialResult holds one fetch's outcome in a partial-success fan-out.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartial runs every function concurrently and collects all
// outcomes in input order. A failing function does not cancel its
// siblings; feed refetches tolerate per-category failures, so callers
// inspect each result's Err.
func ParallelPartial[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []PartialResult[T] {
	var g errgroup.Group

	results := make([]PartialResult[T], len(fns))

	for i, fn := range fns {
		g.Go(func() error {
			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return results
}
