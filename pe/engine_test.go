package pe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fknauf/shoc-go/coro"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *sim.Engine) {
	t.Helper()
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	engine, err := New(simEngine)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = engine.Close()
		_ = simEngine.Destroy()
	})
	return engine, simEngine
}

// TestEngine_YieldOrdering exercises §8 S1: two fibers each incrementing
// a counter, yielding, then incrementing again; after F1's first yield,
// F2 must have reached its own first yield before F1 resumes.
func TestEngine_YieldOrdering(t *testing.T) {
	engine, _ := newTestEngine(t)

	var mu sync.Mutex
	var sequence []string
	record := func(s string) {
		mu.Lock()
		sequence = append(sequence, s)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	counters := map[string]*int{"F1": new(int), "F2": new(int)}

	// Both fibers reach their first yield before either is allowed to
	// resume, so both first segments precede both second segments
	// instead of racing the loop's first iteration. Which fiber's
	// goroutine starts first is up to the Go scheduler.
	var barrier sync.WaitGroup
	barrier.Add(2)

	run := func(name string) {
		defer wg.Done()
		ctx := context.Background()
		*counters[name]++
		record(name + ":1")
		barrier.Done()
		barrier.Wait()
		require.NoError(t, engine.Yield(ctx))
		*counters[name]++
		record(name + ":2")
	}

	coro.Spawn(context.Background(), func(ctx context.Context) error { run("F1"); return nil })
	coro.Spawn(context.Background(), func(ctx context.Context) error { run("F2"); return nil })

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = engine.Run(runCtx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fibers never completed")
	}

	assert.Equal(t, 2, *counters["F1"])
	assert.Equal(t, 2, *counters["F2"])

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sequence, 4)
	assert.ElementsMatch(t, []string{"F1:1", "F2:1"}, sequence[:2])
	assert.ElementsMatch(t, []string{"F1:2", "F2:2"}, sequence[2:])
}

// TestEngine_TimeoutAccuracy exercises §8 S2: a fiber awaiting
// timeout(10ms) observes elapsed in [10ms, 50ms) (a loose upper bound
// for test-host scheduling jitter).
func TestEngine_TimeoutAccuracy(t *testing.T) {
	engine, _ := newTestEngine(t)

	elapsedCh := make(chan time.Duration, 1)
	coro.Spawn(context.Background(), func(ctx context.Context) error {
		start := time.Now()
		if err := engine.Timeout(ctx, 10*time.Millisecond); err != nil {
			return err
		}
		elapsedCh <- time.Since(start)
		return nil
	})

	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = engine.Run(runCtx) }()

	select {
	case elapsed := <-elapsedCh:
		assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
		assert.Less(t, elapsed, 50*time.Millisecond) // generous bound for test-host scheduling jitter
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}
}
