// Package backend defines the contract between the suite runner and the data API under test.
package backend

import (
	"context"
	"fmt"

	"github.com/killrvideo/vector-acceptor/types"
)

// Adapter executes cases against one API surface. Execute reports backend rejections as a
// Failure outcome rather than panicking; Close releases the session the adapter owns.
type Adapter interface {
	Execute(ctx context.Context, tc types.TestCase) types.Outcome
	Close(ctx context.Context) error
}

// Set maps each surface to the adapter that serves it
type Set map[types.ApiSurface]Adapter

// For resolves the adapter for a surface
func (s Set) For(surface types.ApiSurface) (Adapter, error) {
	a, ok := s[surface]
	if !ok || a == nil {
		return nil, fmt.Errorf("no adapter configured for surface %q", surface)
	}
	return a, nil
}

// Close closes every adapter and returns the first error. Adapters sharing a session
// must tolerate being closed more than once.
func (s Set) Close(ctx context.Context) error {
	var first error
	for _, surface := range types.AllSurfaces {
		a, ok := s[surface]
		if !ok || a == nil {
			continue
		}
		if err := a.Close(ctx); err != nil && first == nil {
			first = fmt.Errorf("closing %s adapter: %w", surface, err)
		}
	}
	return first
}

// Func adapts a plain function into an Adapter with a no-op Close
type Func func(ctx context.Context, tc types.TestCase) types.Outcome

// Execute implements Adapter
func (f Func) Execute(ctx context.Context, tc types.TestCase) types.Outcome {
	return f(ctx, tc)
}

// Close implements Adapter
func (f Func) Close(context.Context) error {
	return nil
}
