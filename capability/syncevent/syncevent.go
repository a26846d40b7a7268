// Package syncevent supplements the spec with the cross-context
// synchronization primitive named in the original source: a fiber can
// wait for an event signalled by another fiber (or by a native
// completion), without polling, built directly on coro.Slot.
package syncevent

import (
	"context"
	"sync"

	"github.com/fknauf/shoc-go/coro"
)

// Event is a one-shot, multi-waiter synchronization point. The zero
// value is not usable; construct with New.
type Event struct {
	mu   sync.Mutex
	slot *coro.Slot[struct{}]
}

// New constructs an unsignalled event.
func New() *Event {
	return &Event{slot: coro.NewSlot[struct{}]()}
}

// Signal marks the event as occurred, resuming every fiber currently
// blocked in Wait. Signalling twice is a no-op beyond the first call.
func (e *Event) Signal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slot.Ready() {
		return
	}
	_ = e.slot.SetValue(struct{}{})
	e.slot.Resume()
}

// Wait blocks the calling fiber until Signal has been called, or ctx is
// done.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	slot := e.slot
	e.mu.Unlock()
	_, err := slot.Await(ctx)
	return err
}

// Signalled reports whether Signal has already been called.
func (e *Event) Signalled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slot.Ready()
}
