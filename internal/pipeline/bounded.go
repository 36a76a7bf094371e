package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// mapBounded applies fn to every item with at most limit invocations in
// flight, returning results in input order regardless of completion
// order. Fail-fast: the first error cancels the group and no partial
// output is returned.
func mapBounded[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
