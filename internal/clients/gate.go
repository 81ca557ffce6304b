package clients

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate caps how many calls an adapter has in flight. Excess callers queue in
// FIFO order; a caller whose context is cancelled leaves the queue.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most limit concurrent callers.
func NewGate(limit int64) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{sem: semaphore.NewWeighted(limit)}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.sem.Release(1)
}
