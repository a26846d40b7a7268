package coro

import (
	"context"
	"fmt"
	"sync"
)

// Task is the coroutine task of §4.B: a resumable computation producing a
// single value or error, awaitable by other goroutines. Body execution is
// driven by a goroutine; NewLazyTask defers starting it until the first
// Await, NewEagerTask starts it immediately.
//
// Both variants perform the same "symmetric final-suspension transfer" in
// spirit: whatever goroutine is parked in Await is woken the moment the
// body finishes, and multiple Awaits (including ones that arrive after
// completion) all observe the same cached result - matching the "awaiter
// awaits after completion -> returns synchronously" half of §3's
// invariant. Re-running the body is never possible once started.
type Task[T any] struct {
	once   sync.Once
	fn     func(context.Context) (T, error)
	result *Slot[T]
}

// NewLazyTask constructs a task whose body does not run until the first
// Await call.
func NewLazyTask[T any](fn func(context.Context) (T, error)) *Task[T] {
	return &Task[T]{fn: fn, result: NewSlot[T]()}
}

// NewEagerTask constructs a task and immediately starts its body running
// in a new goroutine.
func NewEagerTask[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{fn: fn, result: NewSlot[T]()}
	t.start(ctx)
	return t
}

func (t *Task[T]) start(ctx context.Context) {
	t.once.Do(func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					_ = t.result.SetError(fmt.Errorf("coro: task body panicked: %v", r))
					t.result.Resume()
				}
			}()
			v, err := t.fn(ctx)
			if err != nil {
				_ = t.result.SetError(err)
			} else {
				_ = t.result.SetValue(v)
			}
			t.result.Resume()
		}()
	})
}

// Await starts the task body if it has not already started (a no-op for
// eager tasks, and for lazy tasks on their second+ Await) and blocks the
// caller until a result is available, returning the task's value or
// propagating its error (§8 property 7: a throwing body surfaces its
// error at await time).
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	t.start(ctx)
	return t.result.Await(ctx)
}
