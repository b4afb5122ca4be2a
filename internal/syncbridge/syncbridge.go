// Package syncbridge lets synchronous call sites drive context-aware,
// potentially slow collaborators to completion from any calling context.
//
// A context marked with WithAsyncScope belongs to a concurrent serving
// pipeline (an HTTP request, a consumer loop). Calls made from such a context
// are handed to an isolated worker from a bounded pool so that a stuck
// collaborator cannot pile up unbounded blocked goroutines in the pipeline.
// Calls from unmarked contexts run on a dedicated goroutine. In both cases the
// caller waits only for the result or its deadline, whichever comes first.
package syncbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrTimeout is returned when the call does not finish before the deadline
	ErrTimeout = errors.New("syncbridge: call did not complete in time")

	// ErrDispatch is returned when no isolated worker could be acquired
	ErrDispatch = errors.New("syncbridge: no worker available")

	// ErrPanic is returned when the call panicked
	ErrPanic = errors.New("syncbridge: call panicked")
)

type asyncScopeKey struct{}

// WithAsyncScope marks ctx as running inside a concurrent serving pipeline
func WithAsyncScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, asyncScopeKey{}, true)
}

// InAsyncScope reports whether ctx was marked with WithAsyncScope
func InAsyncScope(ctx context.Context) bool {
	v, _ := ctx.Value(asyncScopeKey{}).(bool)
	return v
}

// withoutAsyncScope clears the marker but keeps deadline and cancellation
func withoutAsyncScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, asyncScopeKey{}, false)
}

// Runner bounds bridged calls by a timeout and an isolated worker pool
type Runner struct {
	timeout time.Duration
	workers *semaphore.Weighted
}

// New creates a Runner. A zero timeout relies on the caller's deadline only.
func New(timeout time.Duration, maxWorkers int64) *Runner {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Runner{
		timeout: timeout,
		workers: semaphore.NewWeighted(maxWorkers),
	}
}

type result[T any] struct {
	value T
	err   error
}

// Run drives fn to completion and returns its result.
// Caller cancellation and the runner timeout are propagated to fn.
func Run[T any](ctx context.Context, r *Runner, fn func(context.Context) (T, error)) (T, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if !InAsyncScope(ctx) {
		return await(ctx, spawn(ctx, fn))
	}

	if err := r.workers.Acquire(ctx, 1); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	workerCtx := withoutAsyncScope(ctx)
	done := make(chan result[T], 1)
	go func() {
		defer r.workers.Release(1)
		done <- <-spawn(workerCtx, fn)
	}()

	return await(ctx, done)
}

// spawn runs fn on its own goroutine. The channel is buffered so an
// abandoned call can always deliver its result and exit.
func spawn[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan result[T] {
	done := make(chan result[T], 1)
	go func() {
		var res result[T]
		defer func() {
			if p := recover(); p != nil {
				res = result[T]{err: fmt.Errorf("%w: %v", ErrPanic, p)}
			}
			done <- res
		}()
		res.value, res.err = fn(ctx)
	}()
	return done
}

func await[T any](ctx context.Context, done <-chan result[T]) (T, error) {
	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
