// Package coro implements the bridge between native, callback-driven
// completion and suspended Go computations: the value-slot awaitable
// (Slot), the lazy/eager task coroutine (Task), and the detached fiber.
//
// Go has no co_await; the suspension point a caller blocks on is realized
// as a goroutine parked on a channel receive, and "resume" is realized as
// closing that channel from whichever goroutine observed completion (for
// native completions, yields and timeouts, the progress engine's loop
// goroutine - see package pe; for a Task, the goroutine running its body). This mirrors the channel-based future/promise pattern
// used elsewhere in this codebase's ancestry (the event-loop package's
// promise-to-channel bridge) rather than inventing a new mechanism.
package coro

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidState is returned when a Slot is awaited without ever having
// been given storage (the zero-value default-constructed case in §4.A).
var ErrInvalidState = errors.New("coro: slot awaited without storage")

// ErrAlreadySet is returned by SetValue/SetError if the slot has already
// been completed once. Per §3 the invariant is "at most once"; violating
// it is a caller bug, surfaced as an error rather than a panic so tests
// can assert on it without recovering.
var ErrAlreadySet = errors.New("coro: slot value or error already set")

type slotState uint8

const (
	slotPending slotState = iota
	slotValue
	slotError
)

// Slot is the value-slot awaitable of §4.A: a heap-allocated cell holding
// at most one value or error, plus a resumption channel. The zero value
// is NOT ready to use; construct one with NewSlot, FromValue or FromError.
type Slot[T any] struct {
	mu       sync.Mutex
	state    slotState
	value    T
	err      error
	ch       chan struct{}
	hasStore bool
}

// NewSlot returns an empty, pending slot (§4.A "create_space").
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan struct{}), hasStore: true}
}

// FromValue returns a slot that is already completed with v.
func FromValue[T any](v T) *Slot[T] {
	s := &Slot[T]{ch: closedCh, hasStore: true, state: slotValue, value: v}
	return s
}

// FromError returns a slot that is already completed with err.
func FromError[T any](err error) *Slot[T] {
	s := &Slot[T]{ch: closedCh, hasStore: true, state: slotError, err: err}
	return s
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Ready reports whether the slot already holds a value or error
// (§4.A await_ready).
func (s *Slot[T]) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != slotPending
}

// SetValue completes the slot with a success value. It does not by itself
// wake a waiter; call Resume for that (§4.F separates writing the result
// from resuming the waiter).
func (s *Slot[T]) SetValue(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != slotPending {
		return ErrAlreadySet
	}
	s.value = v
	s.state = slotValue
	return nil
}

// SetError completes the slot with a failure.
func (s *Slot[T]) SetError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != slotPending {
		return ErrAlreadySet
	}
	s.err = err
	s.state = slotError
	return nil
}

// Resume wakes whichever goroutine is blocked in Await. It is always safe
// to call, including when nothing is currently awaiting (no-op) and
// including before SetValue/SetError (in which case Await wakes, finds
// the slot still pending and returns an error - callers should always
// call Resume only after SetValue/SetError, as §4.F does).
func (s *Slot[T]) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
		// already closed (e.g. FromValue/FromError, or double resume)
	default:
		close(s.ch)
	}
}

// Await suspends the calling goroutine until the slot is completed and
// resumed, then returns the value or raises the error
// (§4.A await_suspend / await_resume). Awaiting a slot with no storage
// (the zero Slot[T]{}) returns ErrInvalidState immediately. Awaiting an
// already-resumed slot returns synchronously.
func (s *Slot[T]) Await(ctx context.Context) (T, error) {
	var zero T
	s.mu.Lock()
	if !s.hasStore {
		s.mu.Unlock()
		return zero, ErrInvalidState
	}
	ch := s.ch
	s.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case slotError:
		return zero, s.err
	case slotValue:
		return s.value, nil
	default:
		// Resumed without ever being set: unexpected per §7.
		return zero, errUnexpectedResume
	}
}

var errUnexpectedResume = errors.New("coro: slot resumed without a value or error")
