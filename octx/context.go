// Package octx is the context adapter of §4.E: it wraps a native.Ctx and
// turns its asynchronous start/stop completion into awaitables built from
// package coro, enforcing the idle/starting/running/stopping lifecycle
// and the single-pending-awaiter invariant the native callback contract
// implies (exactly one state-changed callback is ever in flight per
// context at a time).
package octx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fknauf/shoc-go/coro"
	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/shoclog"
	"github.com/google/uuid"
)

var (
	// ErrAlreadyStarting is returned by Start when a start is already
	// pending.
	ErrAlreadyStarting = errors.New("octx: start already in progress")
	// ErrAlreadyStopping is returned by Stop when a stop is already
	// pending.
	ErrAlreadyStopping = errors.New("octx: stop already in progress")
)

// Context adapts a single native.Ctx. Zero value is not usable; construct
// with New.
type Context struct {
	native native.Ctx
	id     uuid.UUID

	mu        sync.Mutex
	startSlot *coro.Slot[struct{}]
	stopSlot  *coro.Slot[struct{}]
}

// New wraps nc, registering a state-changed callback that resolves the
// in-flight start/stop awaiter. nc must start in native.StateIdle.
func New(nc native.Ctx) *Context {
	c := &Context{native: nc, id: uuid.New()}
	nc.SetStateChangedCB(c.onStateChanged)
	return c
}

// Kind returns the wrapped context's capability kind (e.g. "dma", "comch").
func (c *Context) Kind() string { return c.native.Kind() }

// State returns the current native lifecycle state.
func (c *Context) State() native.State { return c.native.State() }

// ID is a stable correlation identifier for log lines concerning this
// context, independent of the underlying native handle's lifetime.
func (c *Context) ID() uuid.UUID { return c.id }

// Start requests the idle->starting transition and returns an awaitable
// that resolves once the native layer reports starting->running (or the
// context is destroyed from under the caller by a peer-loss transition -
// see onStateChanged). Per §9's reproduced lost-callback bug, a native
// layer that never delivers the completion leaves the returned awaitable
// pending forever; that is a native-library defect, not something this
// adapter papers over.
func (c *Context) Start(ctx context.Context) (<-chan struct{}, *coro.Slot[struct{}], error) {
	c.mu.Lock()
	if c.startSlot != nil {
		c.mu.Unlock()
		return nil, nil, ErrAlreadyStarting
	}
	slot := coro.NewSlot[struct{}]()
	c.startSlot = slot
	c.mu.Unlock()

	if err := c.native.Start(); err != nil {
		c.mu.Lock()
		c.startSlot = nil
		c.mu.Unlock()
		return nil, nil, fmt.Errorf("octx: start: %w", err)
	}
	return nil, slot, nil
}

// AwaitStart blocks the calling fiber until the pending Start completes.
func (c *Context) AwaitStart(ctx context.Context, slot *coro.Slot[struct{}]) error {
	_, err := slot.Await(ctx)
	return err
}

// Stop requests the running->stopping transition, returning an awaitable
// resolved once the native layer reports stopping->idle.
func (c *Context) Stop(ctx context.Context) (*coro.Slot[struct{}], error) {
	c.mu.Lock()
	if c.stopSlot != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyStopping
	}
	slot := coro.NewSlot[struct{}]()
	c.stopSlot = slot
	c.mu.Unlock()

	if err := c.native.Stop(); err != nil {
		c.mu.Lock()
		c.stopSlot = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("octx: stop: %w", err)
	}
	return slot, nil
}

// AwaitStop blocks the calling fiber until the pending Stop completes.
func (c *Context) AwaitStop(ctx context.Context, slot *coro.Slot[struct{}]) error {
	_, err := slot.Await(ctx)
	return err
}

// Close destroys the underlying native context. Per §4.E it is only valid
// from the idle state.
func (c *Context) Close() error {
	return c.native.Destroy()
}

// onStateChanged is the native-layer callback, invoked from the progress
// engine's loop goroutine (never concurrently with itself, by construction
// of package native/sim and of any conforming real backend).
func (c *Context) onStateChanged(prev, next native.State) {
	c.mu.Lock()
	var resolveStart, resolveStop, failStart *coro.Slot[struct{}]

	switch {
	case prev == native.StateStarting && next == native.StateRunning:
		resolveStart = c.startSlot
		c.startSlot = nil
	case prev == native.StateStopping && next == native.StateIdle:
		resolveStop = c.stopSlot
		c.stopSlot = nil
	case prev == native.StateRunning && next == native.StateIdle:
		// Implicit self-stop on peer loss (§4.E): no Stop() was called,
		// but any caller awaiting a *subsequent* stop still needs to be
		// unblocked. There is ordinarily no pending stopSlot here since
		// Stop() was never invoked, but resolve one defensively in case a
		// Stop raced the peer-loss notification.
		resolveStop = c.stopSlot
		c.stopSlot = nil
		failStart = c.startSlot
		c.startSlot = nil
	}
	id := c.id
	kind := c.native.Kind()
	c.mu.Unlock()

	shoclog.Default().Info().
		Str("context", id.String()).
		Str("kind", kind).
		Str("prev", prev.String()).
		Str("next", next.String()).
		Log("context state changed")

	if resolveStart != nil {
		resolveStart.SetValue(struct{}{})
		resolveStart.Resume()
	}
	if resolveStop != nil {
		resolveStop.SetValue(struct{}{})
		resolveStop.Resume()
	}
	if failStart != nil {
		failStart.SetError(fmt.Errorf("octx: start: context went from %s to %s", prev, next))
		failStart.Resume()
	}
}
