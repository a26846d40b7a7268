// Package otask is the task adapter of §4.F: the generic glue between a
// native.Task and a coro.Slot[T], implementing the five-step contract
// named there - the caller allocates the native task; Submit constructs
// the slot, stashes it in the task's user-data, submits the task through
// the owning engine, and returns the awaitable - plus the completion-side decode/set/free/resume
// sequence run from the native layer's own callback.
package otask

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/coro"
	"github.com/fknauf/shoc-go/native"
)

// Submitter is the subset of *pe.Engine that Submit needs; tests may
// substitute a fake.
type Submitter interface {
	SubmitTask(ctx context.Context, category string, t native.Task) error
	TaskCompleted()
}

// Submit allocates the slot for t's eventual result, stashes it in t's
// user-data, and submits t through engine under the given rate-limit
// category. The caller arranges for the native completion callback to
// invoke Complete[T] with the same t and a matching decode function; see
// package capability/dummy for the canonical wiring.
func Submit[T any](ctx context.Context, engine Submitter, category string, t native.Task) (*coro.Slot[T], error) {
	slot := coro.NewSlot[T]()
	t.SetUserData(slot)

	if err := engine.SubmitTask(ctx, category, t); err != nil {
		return nil, fmt.Errorf("otask: submit: %w", err)
	}

	return slot, nil
}

// Complete is the completion-callback half of the contract: it decodes
// t's result, stores it in the slot stashed in t's user-data by Submit,
// frees the native task, and resumes whatever fiber is awaiting the
// slot. It must be called exactly once, from the native layer's
// completion callback for t.
func Complete[T any](engine Submitter, t native.Task, decode func(native.Task) (T, error)) {
	slot, ok := t.UserData().(*coro.Slot[T])
	if !ok {
		// Construction bug: Submit's SetUserData and Complete's type
		// parameter disagree on T. Nothing sane to do but surface it
		// loudly; there is no caller-facing error channel at this point
		// since this runs from the native completion path.
		panic(fmt.Sprintf("otask: completion user-data type mismatch for task %T", t))
	}

	value, err := decode(t)
	t.Free()
	engine.TaskCompleted()

	if err != nil {
		slot.SetError(err)
	} else {
		slot.SetValue(value)
	}
	slot.Resume()
}

// Await blocks the calling fiber on slot, the standard way to consume the
// result of Submit.
func Await[T any](ctx context.Context, slot *coro.Slot[T]) (T, error) {
	return slot.Await(ctx)
}
