package async

import (
	"context"
	"sync/atomic"
)

// JobHandle tracks a job running in its own goroutine.
type JobHandle[T any] struct {
	done   chan struct{}
	result atomic.Pointer[Result[T]]
}

// Job runs job in the background. The job's context is detached from the caller and is cancelled once
// the job returns.
func Job[T any](job func(ctx context.Context) (T, error)) *JobHandle[T] {
	handle := &JobHandle[T]{
		done: make(chan struct{}),
	}

	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer close(handle.done)

		res := NewResult(job(ctx))
		handle.result.Store(&res)
	}()

	return handle
}

// Wait blocks until the job returns. It may be called any number of times.
func (j *JobHandle[T]) Wait() (T, error) {
	<-j.done
	return j.result.Load().Unpack()
}
