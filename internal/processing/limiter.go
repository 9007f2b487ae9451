package processing

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Runner executes a unit of work, possibly after waiting for admission.
type Runner interface {
	Run(ctx context.Context, process func() error) error
}

// Limiter admits at most n concurrent runs. Callers block until a slot frees
// up or ctx is done.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(n int64) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(n)}
}

func (l *Limiter) Run(ctx context.Context, process func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return process()
}
