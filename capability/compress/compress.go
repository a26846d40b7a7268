// Package compress is the compression capability of §8 S4: deflate the
// input through klauspost/compress/flate and report its CRC32 (IEEE) and
// Adler-32 checksums alongside the compressed bytes, offloaded through a
// simulated native context exactly like every other capability.
package compress

import (
	"bytes"
	"context"
	"fmt"
	"hash/adler32"
	"hash/crc32"
	"io"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
	"github.com/klauspost/compress/flate"
)

const Category = "compress.deflate"

// Result is the outcome of a Deflate call.
type Result struct {
	Compressed []byte
	CRC32      uint32
	Adler32    uint32
}

// Context is a started compression capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
}

// Open creates and starts a compression context on engine.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine) (*Context, error) {
	nc := sim.NewContext(simEngine, "compress")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("compress: start: %w", err)
	}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc}, nil
}

// Deflate compresses in at the given flate level and checksums the
// original bytes, returning an awaitable Result.
func Deflate(ctx context.Context, c *Context, in []byte, level int) (Result, error) {
	decode := func(native.Task) (Result, error) {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return Result{}, fmt.Errorf("compress: new writer: %w", err)
		}
		if _, err := w.Write(in); err != nil {
			return Result{}, fmt.Errorf("compress: write: %w", err)
		}
		if err := w.Close(); err != nil {
			return Result{}, fmt.Errorf("compress: close: %w", err)
		}
		return Result{
			Compressed: buf.Bytes(),
			CRC32:      crc32.ChecksumIEEE(in),
			Adler32:    adler32.Checksum(in),
		}, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[Result](ctx, c.engine, Category, t)
	if err != nil {
		return Result{}, err
	}
	return otask.Await(ctx, slot)
}

// Inflate reverses Deflate, for test round-trips.
func Inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	return io.ReadAll(r)
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
