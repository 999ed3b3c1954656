package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrently executing tasks for one
// provider. Waiters are admitted FIFO as slots free up; nothing is
// reordered or dropped, and the limiter imposes no timeout of its own.
// One instance is created per provider per orchestration run, so task
// queues for different providers progress fully independently.
type Limiter struct {
	sem   *semaphore.Weighted
	limit int
}

// NewLimiter creates a limiter admitting at most limit concurrent
// holders. Non-positive limits are coerced to one.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
	}
}

// Acquire blocks until a slot is free or the context is done. A nil
// return guarantees the caller holds a slot and must Release it.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees a slot acquired with Acquire.
func (l *Limiter) Release() { l.sem.Release(1) }

// Limit returns the configured concurrency ceiling.
func (l *Limiter) Limit() int { return l.limit }
