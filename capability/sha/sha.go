// Package sha is the hashing capability supplementing §8's compression
// and AEAD scenarios: SHA-256 digest offloaded through a simulated
// native context, using the standard library's crypto/sha256 (no
// ecosystem library supersedes it - see DESIGN.md's stdlib justification
// audit).
package sha

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const Category = "sha.digest"

// Context is a started SHA-256 capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
}

// Open creates and starts a SHA capability context.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "sha")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("sha: start: %w", err)
	}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc}, nil
}

// Digest computes the SHA-256 digest of in.
func Digest(ctx context.Context, c *Context, in []byte) ([32]byte, error) {
	decode := func(native.Task) ([32]byte, error) {
		return sha256.Sum256(in), nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[[32]byte](ctx, c.engine, Category, t)
	if err != nil {
		return [32]byte{}, err
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
