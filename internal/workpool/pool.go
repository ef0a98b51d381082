// Package workpool runs independent tasks on a bounded set of goroutines.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size worker pool. Workers share no mutable state: each task
// owns its input and writes only its own result slot.
type Pool struct {
	size int
}

// New creates a pool with the given number of workers (minimum 1).
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Map applies fn to every input on the pool and returns the results in input
// order. It returns only after every started task has finished. The first
// task error cancels the context passed to the remaining tasks and is
// returned; partial results are discarded.
func Map[In, Out any](ctx context.Context, p *Pool, inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	results := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, inputs[i])
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	// drain barrier
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("workpool: %w", err)
	}
	return results, nil
}
