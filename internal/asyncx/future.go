// Package asyncx provides a cancellable future with a deadline: a request is
// started in its own goroutine and the caller waits for whichever comes
// first, the result or the deadline. A request that loses the race is never
// awaited; it runs to completion and its result is dropped.
package asyncx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout matches every error produced by NewTimeoutError.
	ErrTimeout = errors.New("operation timed out")
	// ErrPanic wraps a panic recovered from the function run by Go.
	ErrPanic = errors.New("operation panicked")
)

type timeoutError struct {
	msg string
}

func (e *timeoutError) Error() string { return e.msg }

func (e *timeoutError) Is(target error) bool { return target == ErrTimeout }

// NewTimeoutError returns an error with the given message that satisfies
// errors.Is(err, ErrTimeout).
func NewTimeoutError(msg string) error {
	return &timeoutError{msg: msg}
}

// Future is the pending result of a function started with Go.
type Future[T any] struct {
	done   chan struct{}
	val    T
	err    error
	cancel context.CancelFunc
}

// Go runs fn in a new goroutine. The context handed to fn is derived from ctx
// and is cancelled only by Cancel, by ctx itself, or after fn returns; a
// missed deadline in Await does not cancel it.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(f.done)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				f.err = fmt.Errorf("%w: %v", ErrPanic, p)
			}
		}()
		f.val, f.err = fn(ctx)
	}()

	return f
}

// Done is closed once the function has returned.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel cancels the context passed to the function.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// Await blocks until the function returns, timeout elapses or ctx is done.
// On timeout it returns timeoutErr, or ErrTimeout when timeoutErr is nil.
// A non-positive timeout waits without a deadline.
func (f *Future[T]) Await(ctx context.Context, timeout time.Duration, timeoutErr error) (T, error) {
	var zero T

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-deadline:
		if timeoutErr == nil {
			timeoutErr = ErrTimeout
		}
		return zero, timeoutErr
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Race starts fn and awaits it with the given deadline.
func Race[T any](ctx context.Context, timeout time.Duration, timeoutErr error, fn func(ctx context.Context) (T, error)) (T, error) {
	return Go(ctx, fn).Await(ctx, timeout, timeoutErr)
}
