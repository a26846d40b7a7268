// Package rdma supplements the spec with the two-sided Send/Receive
// capability named in the original source's device inventory
// (rdma_dpu_receive.cpp / rdma_host_send.cpp): one side issues a Send
// task addressing a remote buffer directly, the other issues a Receive
// task that observes it, modelling direct remote-memory placement rather
// than comch's queued message exchange.
package rdma

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const (
	SendCategory    = "rdma.send"
	ReceiveCategory = "rdma.receive"
)

// Context is a started RDMA capability context, exposing a single
// directly-addressed remote buffer slot that a peer's Send writes into.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context

	mu     chan struct{}
	remote []byte
	filled bool
}

// Open creates and starts an RDMA context.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "rdma")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("rdma: start: %w", err)
	}
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc, mu: mu}, nil
}

// Send writes buf directly into peer's remote buffer slot, completing
// asynchronously through the task adapter exactly as a real RDMA write's
// local completion notification would (the peer observes the data via
// Receive, with no message queue or ordering guarantee beyond this one
// slot).
func Send(ctx context.Context, c *Context, peer *Context, buf []byte) error {
	payload := append([]byte(nil), buf...)
	decode := func(native.Task) (struct{}, error) {
		<-peer.mu
		peer.remote = payload
		peer.filled = true
		peer.mu <- struct{}{}
		return struct{}{}, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[struct{}](ctx, c.engine, SendCategory, t)
	if err != nil {
		return err
	}
	_, err = otask.Await(ctx, slot)
	return err
}

// Receive returns whatever has been placed in this context's remote
// buffer slot by a peer's Send, clearing it. ok is false if nothing has
// arrived yet.
func Receive(ctx context.Context, c *Context) (data []byte, ok bool, err error) {
	var arrived bool
	decode := func(native.Task) ([]byte, error) {
		<-c.mu
		defer func() { c.mu <- struct{}{} }()
		if !c.filled {
			return nil, nil
		}
		arrived = true
		d := c.remote
		c.remote = nil
		c.filled = false
		return d, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[[]byte](ctx, c.engine, ReceiveCategory, t)
	if err != nil {
		return nil, false, err
	}
	data, err = otask.Await(ctx, slot)
	if err != nil {
		return nil, false, err
	}
	return data, arrived, nil
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
