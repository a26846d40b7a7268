// Package erasure is the erasure-coding capability of §8 S6: splits data
// into data shards plus Cauchy-matrix parity shards via
// klauspost/reedsolomon, offloaded through a simulated native context,
// and can reconstruct from any subset of shards at least as large as the
// data-shard count.
package erasure

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
	"github.com/klauspost/reedsolomon"
)

const Category = "erasure.encode"

// Context is a started erasure-coding capability context, configured for
// a fixed data/parity shard split.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
	enc       reedsolomon.Encoder
	dataShards, parityShards int
}

// Open creates and starts an erasure-coding context using a Cauchy
// matrix (reedsolomon.NewStream is row-vector/Vandermonde based; Cauchy
// avoids its singular-submatrix edge cases, per the original source's
// choice of coding matrix).
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine, dataShards, parityShards int) (*Context, error) {
	cauchyEnc, err := reedsolomon.New(dataShards, parityShards, reedsolomon.WithCauchyMatrix())
	if err != nil {
		return nil, fmt.Errorf("erasure: new encoder: %w", err)
	}

	nc := sim.NewContext(simEngine, "erasure")
	oc, cerr := engine.CreateContext(nc)
	if cerr != nil {
		return nil, cerr
	}
	_, slot, serr := oc.Start(ctx)
	if serr != nil {
		return nil, serr
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("erasure: start: %w", err)
	}
	return &Context{
		Context: oc, engine: engine, simEngine: simEngine, native: nc,
		enc: cauchyEnc, dataShards: dataShards, parityShards: parityShards,
	}, nil
}

// Encode splits data into dataShards+parityShards equally-sized shards,
// padding the final data shard with zeros as reedsolomon requires.
func Encode(ctx context.Context, c *Context, data []byte) ([][]byte, error) {
	decode := func(native.Task) ([][]byte, error) {
		shards, err := c.enc.Split(data)
		if err != nil {
			return nil, fmt.Errorf("erasure: split: %w", err)
		}
		if err := c.enc.Encode(shards); err != nil {
			return nil, fmt.Errorf("erasure: encode: %w", err)
		}
		return shards, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[[][]byte](ctx, c.engine, Category, t)
	if err != nil {
		return nil, err
	}
	return otask.Await(ctx, slot)
}

// Reconstruct repairs missing shards in place; shards with a nil entry
// are treated as lost. At least dataShards surviving shards are
// required.
func (c *Context) Reconstruct(shards [][]byte) error {
	return c.enc.Reconstruct(shards)
}

// Verify reports whether shards currently carry consistent parity.
func (c *Context) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}

// Join concatenates data shards back into the original byte stream,
// trimming padding, for test round-trips.
func (c *Context) Join(shards [][]byte, outLen int) ([]byte, error) {
	var buf []byte
	for i := 0; i < c.dataShards; i++ {
		buf = append(buf, shards[i]...)
	}
	if outLen > len(buf) {
		return nil, fmt.Errorf("erasure: out length %d exceeds shard data %d", outLen, len(buf))
	}
	return buf[:outLen], nil
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
