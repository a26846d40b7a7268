package coro

import (
	"context"
	"fmt"

	"github.com/fknauf/shoc-go/shoclog"
)

// Spawn launches fn as a detached fiber (§4.C): a top-level coroutine
// with no return value and no awaiter. A panic or error escaping fn is
// caught and logged at warning severity rather than propagated - a fiber
// can never be awaited, so there is nowhere else for its failure to go.
func Spawn(ctx context.Context, fn func(context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				shoclog.Default().Warning().
					Str("component", "fiber").
					Any("panic", r).
					Log("fiber body panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			shoclog.Default().Warning().
				Str("component", "fiber").
				Err(err).
				Log("fiber body returned an error")
		}
	}()
}

// SpawnNamed is Spawn with a name attached to log lines, useful when many
// fibers run concurrently and a warning needs to be traced back to its
// origin.
func SpawnNamed(ctx context.Context, name string, fn func(context.Context) error) {
	Spawn(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}
