// Package pe is the progress engine of §4.D: the single loop goroutine
// that owns a native.PE handle, multiplexes its notification descriptor
// against an internal wake-up mechanism (for yield/timeout/context-
// creation/task-submission calls arriving from other fibers), and drains
// native completions by calling Progress in a loop until the native layer
// reports no further work.
//
// Go fibers are real goroutines rather than single-thread-resident
// coroutines, so - unlike the ancestor event loop, which only needed an
// external Submit() plus a wake pipe because its own promises were
// resolved from the same goroutine - every ingress path here (Yield,
// Timeout, CreateContext, SubmitTask) must be safe to call concurrently
// from arbitrary goroutines and is therefore mutex-protected. This is a
// deliberate generalisation of the ancestor's wake-pipe pattern, not an
// oversight.
package pe

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fknauf/shoc-go/coro"
	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/shoclog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

// Engine is the progress engine: one native.PE handle plus the Go-side
// scheduling state needed to give fibers yield/timeout/task-submission
// primitives.
type Engine struct {
	native native.PE
	poller *poller
	wakeR  int
	wakeW  int

	cfg config
	sem *semaphore.Weighted

	mu        sync.Mutex
	running   bool
	closed    bool
	yieldQ    []*coro.Slot[struct{}]
	timers    timerHeap
	timerSeq  uint64
	contexts  map[*octx.Context]struct{}
	inflight  int64
}

// New constructs an engine around nc, ready for Run. Constructing an
// engine does not start it; call Run from the goroutine that will host
// the loop.
func New(nc native.PE, opts ...Option) (*Engine, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	wake, err := unixPipe()
	if err != nil {
		_ = p.close()
		return nil, err
	}

	if err := p.add(nc.NotificationFD()); err != nil {
		_ = p.close()
		return nil, err
	}
	if err := p.add(wake[0]); err != nil {
		_ = p.close()
		return nil, err
	}

	cfg := newConfig(opts)
	return &Engine{
		native:   nc,
		poller:   p,
		wakeR:    wake[0],
		wakeW:    wake[1],
		cfg:      cfg,
		sem:      cfg.semaphore(),
		contexts: make(map[*octx.Context]struct{}),
	}, nil
}

func unixPipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return [2]int{}, fmt.Errorf("pe: wake pipe: %w", err)
	}
	return fds, nil
}

// wake nudges the loop out of EpollWait; safe to call from any goroutine,
// any number of times, including while the loop isn't currently blocked.
func (e *Engine) wake() {
	var b [1]byte
	_, _ = unix.Write(e.wakeW, b[:])
}

func (e *Engine) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(e.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// CreateContext wraps nc as an octx.Context connected to this engine
// (§4.D "create_context"), registering it so the loop's quiescence check
// accounts for it.
func (e *Engine) CreateContext(nc native.Ctx) (*octx.Context, error) {
	if err := e.native.ConnectCtx(nc); err != nil {
		return nil, fmt.Errorf("pe: connect context: %w", err)
	}
	c := octx.New(nc)
	e.mu.Lock()
	e.contexts[c] = struct{}{}
	e.mu.Unlock()
	return c, nil
}

// Yield suspends the calling fiber until the loop has run at least one
// more iteration, i.e. until every fiber currently runnable has had a
// chance to run. It is the adapter-level equivalent of co_await
// pe.yield().
func (e *Engine) Yield(ctx context.Context) error {
	slot := coro.NewSlot[struct{}]()
	e.mu.Lock()
	e.yieldQ = append(e.yieldQ, slot)
	e.mu.Unlock()
	e.wake()
	_, err := slot.Await(ctx)
	return err
}

// Timeout suspends the calling fiber for at least d, resolved by the loop
// rather than by a stray time.Timer goroutine, so cancellation composes
// correctly with the engine shutting down.
func (e *Engine) Timeout(ctx context.Context, d time.Duration) error {
	slot := coro.NewSlot[struct{}]()
	e.mu.Lock()
	e.timerSeq++
	entry := &timerEntry{deadline: time.Now().Add(d), seq: e.timerSeq, slot: slot}
	heap.Push(&e.timers, entry)
	e.mu.Unlock()
	e.wake()
	_, err := slot.Await(ctx)
	return err
}

// SubmitTask hands t to the native layer, applying the configured
// submission rate limit (if any) for category, and tracking the task as
// in-flight for quiescence purposes. Call TaskCompleted from the task's
// completion callback once the native layer reports it finished (package
// otask does this automatically).
func (e *Engine) SubmitTask(ctx context.Context, category string, t native.Task) error {
	if e.cfg.rateLimiter != nil {
		allowed, err := e.cfg.rateLimiter.Allow(ctx, category)
		if err != nil {
			return fmt.Errorf("pe: rate limiter: %w", err)
		}
		if !allowed {
			return ErrSubmitThrottled
		}
	}
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if err := t.Submit(); err != nil {
		if e.sem != nil {
			e.sem.Release(1)
		}
		return err
	}
	e.mu.Lock()
	e.inflight++
	e.mu.Unlock()
	return nil
}

// TaskCompleted releases the in-flight bookkeeping acquired by
// SubmitTask. Must be called exactly once per successful SubmitTask, from
// the task's completion callback.
func (e *Engine) TaskCompleted() {
	if e.sem != nil {
		e.sem.Release(1)
	}
	e.mu.Lock()
	e.inflight--
	e.mu.Unlock()
	e.wake()
}

// Run drives the loop until no fiber remains runnable, no timer remains
// pending, no task remains in flight, and every registered context has
// reached the idle state (§4.D's five-step algorithm, repeated until
// quiescent). It blocks the calling goroutine; callers typically spawn it
// as the outermost goroutine of the process.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.releaseDueYields()
		timeoutMS := e.nextWaitMS()

		if err := e.native.RequestNotification(); err != nil {
			return fmt.Errorf("pe: request notification: %w", err)
		}

		ready, err := e.poller.wait(timeoutMS)
		if err != nil {
			return err
		}
		for _, fd := range ready {
			switch fd {
			case e.native.NotificationFD():
				if err := e.native.ClearNotification(); err != nil {
					return fmt.Errorf("pe: clear notification: %w", err)
				}
				for {
					workDone, err := e.native.Progress()
					if err != nil {
						return fmt.Errorf("pe: progress: %w", err)
					}
					if !workDone {
						break
					}
				}
			case e.wakeR:
				e.drainWake()
			}
		}

		e.fireDueTimers()

		if e.quiescent() {
			return nil
		}
	}
}

// releaseDueYields resolves every fiber currently parked in Yield, giving
// the loop's "one full pass" semantics: a Yield call always waits for at
// least one iteration boundary, never resolving synchronously within the
// same call that enqueued it.
func (e *Engine) releaseDueYields() {
	e.mu.Lock()
	due := e.yieldQ
	e.yieldQ = nil
	e.mu.Unlock()
	for _, slot := range due {
		slot.SetValue(struct{}{})
		slot.Resume()
	}
}

func (e *Engine) fireDueTimers() {
	now := time.Now()
	var due []*timerEntry
	e.mu.Lock()
	for e.timers.Len() > 0 && !e.timers[0].deadline.After(now) {
		due = append(due, heap.Pop(&e.timers).(*timerEntry))
	}
	e.mu.Unlock()
	for _, entry := range due {
		entry.slot.SetValue(struct{}{})
		entry.slot.Resume()
	}
}

// nextWaitMS computes the epoll_wait timeout: 0 if fibers are runnable or
// a timer is already due, the time to the next timer deadline otherwise,
// or -1 (block indefinitely) if nothing is scheduled.
func (e *Engine) nextWaitMS() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.yieldQ) > 0 {
		return 0
	}
	if e.timers.Len() == 0 {
		return -1
	}
	d := time.Until(e.timers[0].deadline)
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int(ms)
}

func (e *Engine) quiescent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.yieldQ) > 0 || e.timers.Len() > 0 || e.inflight > 0 {
		return false
	}
	for c := range e.contexts {
		if c.State() != native.StateIdle {
			return false
		}
	}
	return true
}

// Close releases the engine's own descriptors. It does not destroy the
// native handle - it only tears down the Go-side poller and wake pipe;
// the native handle is destroyed separately, after Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	shoclog.Default().Debug().Log("progress engine closing")

	_ = unix.Close(e.wakeR)
	_ = unix.Close(e.wakeW)
	return e.poller.close()
}
