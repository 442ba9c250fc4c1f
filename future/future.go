// Package future provides a deferred result that is resolved exactly once.
// Callbacks may be attached before or after resolution; those attached before
// run on the goroutine that resolves, those attached after run immediately on
// the caller's goroutine.
package future

import (
	"context"
	"errors"
	"sync"
)

// Outcome is a resolved future's value or failure message.
type Outcome[T any] struct {
	Value   T
	Message string
	Failed  bool
}

// Err converts a failed outcome into an error.
func (o Outcome[T]) Err() error {
	if !o.Failed {
		return nil
	}
	return errors.New(o.Message)
}

// Future is the deferred result handle.
type Future[T any] struct {
	mu       sync.Mutex
	resolved bool
	outcome  Outcome[T]
	subs     []func(Outcome[T])
	done     chan struct{}
}

// New creates an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Success resolves with a value. Reports false if already resolved.
func (f *Future[T]) Success(v T) bool {
	return f.resolve(Outcome[T]{Value: v})
}

// Failure resolves with a failure message. Reports false if already resolved.
func (f *Future[T]) Failure(msg string) bool {
	return f.resolve(Outcome[T]{Message: msg, Failed: true})
}

func (f *Future[T]) resolve(o Outcome[T]) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.outcome = o
	subs := f.subs
	f.subs = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(o)
	}
	return true
}

// OnResult subscribes to either outcome.
func (f *Future[T]) OnResult(fn func(Outcome[T])) *Future[T] {
	f.mu.Lock()
	if !f.resolved {
		f.subs = append(f.subs, fn)
		f.mu.Unlock()
		return f
	}
	o := f.outcome
	f.mu.Unlock()
	fn(o)
	return f
}

// OnSuccess subscribes to a successful outcome.
func (f *Future[T]) OnSuccess(fn func(T)) *Future[T] {
	return f.OnResult(func(o Outcome[T]) {
		if !o.Failed {
			fn(o.Value)
		}
	})
}

// OnError subscribes to a failed outcome.
func (f *Future[T]) OnError(fn func(string)) *Future[T] {
	return f.OnResult(func(o Outcome[T]) {
		if o.Failed {
			fn(o.Message)
		}
	})
}

// Resolved reports whether the future has an outcome.
func (f *Future[T]) Resolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Done is closed on resolution.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Outcome returns the outcome and whether the future is resolved.
func (f *Future[T]) Outcome() (Outcome[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome, f.resolved
}

// Wait blocks until resolution or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		o, _ := f.Outcome()
		return o.Value, o.Err()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
