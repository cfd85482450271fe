package cache

import (
	"context"
	"time"
)

// NoOp is a Storage stub, every read misses.
type NoOp struct{}

var _ Storage = NoOp{}

// Lookup does not find anything.
func (NoOp) Lookup(_ context.Context, _ string) Lookup {
	return Lookup{}
}

// Set discards value.
func (NoOp) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) {}

// Update discards value.
func (NoOp) Update(_ context.Context, _ string, _ interface{}, _ time.Duration) {}

// MarkRevalidationComplete does nothing.
func (NoOp) MarkRevalidationComplete(_ context.Context, _ string) {}
