package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunChunked calls fn for indexes [0, n) in chunks of size. Calls within a
// chunk run in parallel; the next chunk starts only after every call in the
// current one has returned. fn must report failures through its own state,
// a panic-free return is treated as settled.
func RunChunked(ctx context.Context, n, size int, fn func(ctx context.Context, i int)) {
	if size <= 0 {
		size = 1
	}
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				fn(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}
}
