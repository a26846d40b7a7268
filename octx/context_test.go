package octx

import (
	"context"
	"testing"
	"time"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSimEngine(t *testing.T, e *sim.Engine) (stop func()) {
	t.Helper()
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
			}
			workDone, err := e.Progress()
			if err != nil {
				return
			}
			if !workDone {
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func TestContext_StartThenStop(t *testing.T) {
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	defer simEngine.Destroy()
	stop := runSimEngine(t, simEngine)
	defer stop()

	nc := sim.NewContext(simEngine, "test")
	c := New(nc)
	require.NoError(t, simEngine.ConnectCtx(nc))

	ctx := context.Background()
	_, startSlot, err := c.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, c.AwaitStart(ctx, startSlot))
	assert.Equal(t, native.StateRunning, c.State())

	stopSlot, err := c.Stop(ctx)
	require.NoError(t, err)
	require.NoError(t, c.AwaitStop(ctx, stopSlot))
	assert.Equal(t, native.StateIdle, c.State())

	require.NoError(t, c.Close())
}

func TestContext_StartTwiceConcurrently_SecondFails(t *testing.T) {
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	defer simEngine.Destroy()
	// Deliberately do not drain the queue, so the first Start never
	// completes before the second is attempted.

	nc := sim.NewContext(simEngine, "test")
	c := New(nc)

	ctx := context.Background()
	_, _, err = c.Start(ctx)
	require.NoError(t, err)

	_, _, err = c.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarting)
}

func TestContext_PeerLoss_ReturnsToIdle(t *testing.T) {
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	defer simEngine.Destroy()
	stop := runSimEngine(t, simEngine)
	defer stop()

	nc := sim.NewContext(simEngine, "test")
	c := New(nc)

	ctx := context.Background()
	_, startSlot, err := c.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, c.AwaitStart(ctx, startSlot))

	nc.SimulatePeerLoss()

	require.Eventually(t, func() bool {
		return c.State() == native.StateIdle
	}, time.Second, time.Millisecond)
}

// TestContext_ConsumerStartBug reproduces the native-library defect
// documented in §9: the starting->running callback is never delivered.
// The adapter must not hang the whole engine - only this context's start
// awaiter never resolves.
func TestContext_ConsumerStartBug(t *testing.T) {
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	defer simEngine.Destroy()
	stop := runSimEngine(t, simEngine)
	defer stop()

	nc := sim.NewContext(simEngine, "test")
	nc.DropRunningCallback = true
	c := New(nc)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, startSlot, err := c.Start(ctx)
	require.NoError(t, err)
	err = c.AwaitStart(ctx, startSlot)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, native.StateStarting, c.State())
}
