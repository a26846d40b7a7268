package sim

import (
	"github.com/fknauf/shoc-go/native"
)

// Task is a native.Task implementation whose "hardware operation" is an
// arbitrary Go closure, run on the Engine's loop goroutine when
// Engine.Progress drains it - exactly where a real completion callback
// would run.
type Task struct {
	engine     *Engine
	ctx        *Context
	userData   any
	status     native.Status
	err        error
	run        func() (native.Status, error)
	onComplete func(*Task)
}

// NewTask constructs a task bound to ctx. run simulates the native
// operation and is invoked during Progress; onComplete is the
// per-task-kind completion callback of §4.F, also invoked during
// Progress, immediately after run.
func NewTask(engine *Engine, ctx *Context, run func() (native.Status, error), onComplete func(*Task)) *Task {
	return &Task{engine: engine, ctx: ctx, run: run, onComplete: onComplete}
}

func (t *Task) SetUserData(v any) { t.userData = v }
func (t *Task) UserData() any     { return t.userData }
func (t *Task) Status() native.Status { return t.status }
func (t *Task) Err() error            { return t.err }
func (t *Task) Free()                 {}

// Submit enqueues the task. Per §4.F/§7, failure to submit (here: the
// owning context isn't running) is surfaced synchronously.
func (t *Task) Submit() error {
	if t.ctx.State() != native.StateRunning {
		return native.ErrNotRunning
	}
	t.engine.enqueue(func() {
		status, err := t.run()
		t.status = status
		t.err = err
		if t.onComplete != nil {
			t.onComplete(t)
		}
	})
	return nil
}
