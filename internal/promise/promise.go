// Package promise provides a single-resolution result slot shared between
// the goroutine that requests a value and the one that eventually supplies it.
package promise

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrAlreadyAwaited is returned when a second waiter calls Wait
var ErrAlreadyAwaited = errors.New("promise: result already awaited")

// Result is settled exactly once, by Resolve or Reject. Settling twice panics.
type Result[T any] struct {
	settled atomic.Bool
	awaited atomic.Bool
	done    chan struct{}
	value   T
	err     error
}

// New creates an unsettled result
func New[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// Resolve settles the result with a value
func (r *Result[T]) Resolve(v T) {
	r.settle(func() { r.value = v })
}

// Reject settles the result with an error
func (r *Result[T]) Reject(err error) {
	if err == nil {
		err = errors.New("promise: rejected with nil error")
	}
	r.settle(func() { r.err = err })
}

func (r *Result[T]) settle(set func()) {
	if !r.settled.CompareAndSwap(false, true) {
		panic("promise: result already settled")
	}
	set()
	close(r.done)
}

// Settled reports whether Resolve or Reject has been called
func (r *Result[T]) Settled() bool {
	return r.settled.Load()
}

// Done is closed once the result is settled
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result is settled or ctx is done.
// Only one caller may wait; later callers get ErrAlreadyAwaited.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if !r.awaited.CompareAndSwap(false, true) {
		return zero, ErrAlreadyAwaited
	}

	select {
	case <-r.done:
		if r.err != nil {
			return zero, r.err
		}
		return r.value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
