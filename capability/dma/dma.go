// Package dma supplements the compression/AEAD/erasure scenarios with
// the plain memory-copy capability named in the original source's device
// inventory: copying a local buffer into a remote-addressed one through
// the same context/task adapter machinery as every other capability.
package dma

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const Category = "dma.memcpy"

// Context is a started DMA capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
}

// Open creates and starts a DMA context.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "dma")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("dma: start: %w", err)
	}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc}, nil
}

// Memcpy copies src into a freshly allocated destination buffer of the
// same length, modelling a local-to-remote DMA transfer whose
// destination is only valid once the returned awaitable resolves.
func Memcpy(ctx context.Context, c *Context, src []byte) ([]byte, error) {
	dst := make([]byte, len(src))
	decode := func(native.Task) ([]byte, error) {
		copy(dst, src)
		return dst, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[[]byte](ctx, c.engine, Category, t)
	if err != nil {
		return nil, err
	}
	return otask.Await(ctx, slot)
}

// Close stops and destroys the underlying context.
func (c *Context) Close(ctx context.Context) error {
	slot, err := c.Stop(ctx)
	if err != nil {
		return err
	}
	if err := c.AwaitStop(ctx, slot); err != nil {
		return err
	}
	return c.Context.Close()
}
