// Package dummy is the minimal capability exercising the full adapter
// stack end to end (§8 S3): create a context, start it, submit a task
// whose native "work" is copying an input buffer to an output buffer,
// await its result, then stop and close the context. Every other
// capability package in this module follows the same shape.
package dummy

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const Category = "dummy.echo"

// Context is a started dummy capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
}

// Open creates and starts a dummy context on engine, blocking the calling
// fiber until the native layer confirms it is running.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "dummy")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("dummy: start: %w", err)
	}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc}, nil
}

// Echo submits a task that echoes in back as its result, round-tripping
// through the task adapter and progress engine exactly as a real
// offloaded memcpy would.
func Echo(ctx context.Context, c *Context, in []byte) ([]byte, error) {
	payload := append([]byte(nil), in...)
	decode := func(native.Task) ([]byte, error) { return payload, nil }

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
