package metacache

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor decides where a blocking fetch runs. The cache always goes
// through its executor and never inspects the caller's context to choose.
type Executor interface {
	Run(ctx context.Context, fn func()) error
}

// Inline runs fn on the caller's goroutine.
type Inline struct{}

func (Inline) Run(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Offload runs fn on a bounded set of worker goroutines. Run still waits for
// fn unless ctx ends first.
type Offload struct {
	sem *semaphore.Weighted
}

func NewOffload(workers int) *Offload {
	if workers < 1 {
		workers = 1
	}
	return &Offload{sem: semaphore.NewWeighted(int64(workers))}
}

func (o *Offload) Run(ctx context.Context, fn func()) error {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer o.sem.Release(1)
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
