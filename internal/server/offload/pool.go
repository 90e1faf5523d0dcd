// Package offload runs CPU-heavy work, password hashing in particular, on a
// fixed number of workers so it cannot starve request handling. Submissions
// beyond the worker count wait in FIFO order.
//
// Dispatched work is never cancelled: once a task has been handed to the
// pool it runs to completion and its result is delivered, even if the
// submitting request has gone away. Context values (correlation id) still
// reach the task.
package offload

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/newsletter/internal/metrics"
)

var (
	ErrPoolClosed   = errors.New("offload pool closed")
	ErrTaskPanicked = errors.New("offload task panicked")
)

// Pool bounds concurrent tasks with a weighted semaphore.
type Pool struct {
	sem     *semaphore.Weighted
	workers int64

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given number of workers. Non-positive
// values fall back to runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: int64(workers),
	}
}

func (p *Pool) Workers() int { return int(p.workers) }

type result[T any] struct {
	val T
	err error
}

// Run executes fn on a pool worker and waits for its result. ctx is passed
// to fn with cancellation stripped.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	taskCtx := context.WithoutCancel(ctx)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrPoolClosed
	}
	queued := time.Now()
	// Acquire cannot fail on a context without cancellation.
	_ = p.sem.Acquire(taskCtx, 1)
	p.mu.RUnlock()

	metrics.OffloadQueueWait.Observe(time.Since(queued).Seconds())
	metrics.OffloadInFlight.Inc()

	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		defer metrics.OffloadInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
			}
		}()

		v, err := fn(taskCtx)
		done <- result[T]{val: v, err: err}
	}()

	r := <-done
	return r.val, r.err
}

// Close stops accepting tasks and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.sem.Acquire(context.Background(), p.workers)
	p.sem.Release(p.workers)
}
