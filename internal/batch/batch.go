// Package batch resolves many tracks at once with bounded concurrency.
// Each resolution is independent; one absent result never stops the others.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"hypecast/internal/hypem"
)

// Tracer resolves one track URL or identifier.
type Tracer interface {
	TraceInput(ctx context.Context, input string) hypem.Trace
}

// Run traces every input with at most limit in flight and returns the traces
// in input order. A non-positive limit means one at a time. Inputs not yet
// started when ctx is cancelled are returned with only Input set.
func Run(ctx context.Context, tracer Tracer, inputs []string, limit int) []hypem.Trace {
	if limit < 1 {
		limit = 1
	}

	out := make([]hypem.Trace, len(inputs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, input := range inputs {
		out[i].Input = input
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			out[i] = tracer.TraceInput(gCtx, input)
			return nil
		})
	}

	_ = g.Wait()
	return out
}
