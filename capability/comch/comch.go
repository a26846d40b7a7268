// Package comch supplements the spec's scenarios with the
// control-channel message-passing capability named in the original
// source's device inventory: a one-way message exchange between two
// contexts (Send appends to the peer's inbox, Recv drains it), standing
// in for the host/device comch queue pair.
package comch

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const Category = "comch.send"

// Context is a started control-channel capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context

	mu    chan struct{} // 1-buffered mutex; sends serialize against each other
	inbox [][]byte
}

// Open creates and starts a comch context.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "comch")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("comch: start: %w", err)
	}
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc, mu: mu}, nil
}

// Send delivers msg to peer's inbox, round-tripping through the task
// adapter so delivery is observable only after the progress engine has
// drained the completion, matching a real comch send's asynchronous
// completion notification.
func Send(ctx context.Context, c *Context, peer *Context, msg []byte) error {
	payload := append([]byte(nil), msg...)
	decode := func(native.Task) (struct{}, error) {
		<-peer.mu
		peer.inbox = append(peer.inbox, payload)
		peer.mu <- struct{}{}
		return struct{}{}, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[struct{}](ctx, c.engine, Category, t)
	if err != nil {
		return err
	}
	_, err = otask.Await(ctx, slot)
	return err
}

// Recv drains and returns whatever messages have arrived so far.
func (c *Context) Recv() [][]byte {
	<-c.mu
	msgs := c.inbox
	c.inbox = nil
	c.mu <- struct{}{}
	return msgs
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
