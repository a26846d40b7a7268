package pe

import "errors"

// Standard errors, following the naming convention of the ancestor
// event-loop package's own errors.go (sentinel values for state-machine
// violations).
var (
	// ErrAlreadyRunning is returned when Run is called on an engine that
	// is already running.
	ErrAlreadyRunning = errors.New("pe: engine is already running")

	// ErrReentrantRun names the condition of calling Run from within the
	// engine's own loop. No Engine method returns it: Run called while the
	// loop is running, from a fiber or elsewhere, returns ErrAlreadyRunning.
	ErrReentrantRun = errors.New("pe: cannot call Run from within the engine's own loop")

	// ErrClosed names the condition of using an engine that has been shut
	// down. No Engine method returns it; methods called after Close do not
	// check whether the engine is closed.
	ErrClosed = errors.New("pe: engine is closed")

	// ErrSubmitThrottled is returned by SubmitTask when a per-category
	// submission rate limit (see WithSubmitRateLimit) rejects the task.
	ErrSubmitThrottled = errors.New("pe: task submission throttled")
)
