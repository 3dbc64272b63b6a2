// Package fanout runs independent calls concurrently in fixed-size
// batches, collecting a per-item outcome instead of failing the whole
// batch on the first error.
//
// The batch cap plus inter-batch pause is a rate-limiting courtesy toward
// the upstream API, not a correctness requirement: items never share
// state, each call writes into its own pre-sized result slot.
package fanout

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize caps concurrent calls when [Options.BatchSize] is not
// set.
const DefaultBatchSize = 8

// Result records the outcome of one item's call. Exactly one of Value and
// Err is meaningful.
type Result[T, R any] struct {
	// Index is the item's position in the input slice.
	Index int

	// Item is the input the call was made for.
	Item T

	// Value is the call's result when Err is nil.
	Value R

	// Err is the call's failure, or the context error for items whose
	// batch never started.
	Err error
}

// Options bound a [Map] run.
type Options struct {
	// BatchSize caps how many calls run concurrently. Zero or negative
	// means [DefaultBatchSize].
	BatchSize int

	// Pause is slept between consecutive batches. Zero means no pause.
	Pause time.Duration
}

// Map runs fn over every item, at most BatchSize calls in flight at once,
// pausing between batches. The returned slice has one [Result] per input
// item in input order.
//
// A failing call marks only its own slot; later items still run. When ctx
// is cancelled, items whose batch has not started are marked with the
// context error; in-flight calls see the cancellation through their own
// ctx.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) []Result[T, R] {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	results := make([]Result[T, R], len(items))
	for i, item := range items {
		results[i] = Result[T, R]{Index: i, Item: item}
	}

	for start := 0; start < len(items); start += size {
		if start > 0 && opts.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Pause):
			}
		}
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i].Err = err
			}
			return results
		}

		end := min(start+size, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := fn(ctx, items[i])
				results[i].Value = v
				results[i].Err = err
				return nil
			})
		}
		// Per-item errors live in the result slots; Wait only synchronises.
		_ = g.Wait()
	}

	return results
}
