package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut calls fn once per item with at most limit calls in flight and
// returns the per-item errors in item order. One failure never stops the
// remaining calls, so every item is accounted for when fanOut returns.
func fanOut[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, item := range items {
		g.Go(func() error {
			errs[i] = fn(gctx, item)
			return nil
		})
	}

	// Callbacks never return an error, so Wait has nothing to report.
	_ = g.Wait()

	return errs
}
