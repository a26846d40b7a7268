// Package native defines the boundary this runtime depends on but does
// not implement: the native hardware-offload library itself (§1, §6 -
// "the native hardware library itself" is explicitly out of scope). It
// declares the minimal shape of a progress engine, a context lifecycle,
// and a task, matching the native calls named in §6
// (pe_create/pe_progress/pe_connect_ctx, ctx_start/ctx_stop/
// ctx_get_state/ctx_set_state_changed_cb, task allocate/submit/
// get-status/free). Package native/sim provides the one concrete,
// software-simulated implementation this CORE ships, used to exercise
// every property in §8 without real hardware.
package native

import "errors"

// State mirrors the native context state machine of §3/§4.E.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Status is the outcome of a completed task.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
)

// Errors surfaced across the native boundary. ErrCapabilityUnavailable is
// the hook a real hardware-gated backend would use to signal that a
// capability (e.g. AES-GCM or erasure-coding offload) isn't present on
// this device, per §9's hardware-gated test note.
var (
	ErrCapabilityUnavailable = errors.New("native: capability unavailable on this device")
	ErrNotRunning             = errors.New("native: context is not in the running state")
	ErrNotIdle                = errors.New("native: context is not in the idle state")
)

// PE is the native progress-engine handle boundary (§6).
type PE interface {
	// NotificationFD returns the file descriptor the engine multiplexes
	// alongside its own wake-up mechanism (§4.D, §6).
	NotificationFD() int
	// RequestNotification arms one edge-triggered notification.
	RequestNotification() error
	// ClearNotification drains the notification descriptor's pending
	// readiness (e.g. reading an eventfd counter).
	ClearNotification() error
	// Progress drains one batch of completed tasks/events, invoking
	// whatever completion callbacks were registered against them.
	// workDone is false once nothing further is available this call.
	Progress() (workDone bool, err error)
	// ConnectCtx binds a context to this engine so its state-changed
	// callback fires during Progress.
	ConnectCtx(Ctx) error
	// Destroy releases the native engine. Must only be called once all
	// connected contexts have been destroyed.
	Destroy() error
}

// Ctx is the native context handle boundary shared by every capability
// (§4.E). Per-capability wrappers beyond this shared lifecycle are out of
// scope (§1).
type Ctx interface {
	// Kind names the capability this context offers (e.g. "dma", "comch").
	Kind() string
	Start() error
	Stop() error
	State() State
	// SetStateChangedCB registers the callback the engine invokes during
	// Progress whenever State() transitions.
	SetStateChangedCB(cb func(prev, next State))
	Destroy() error
}

// Task is the native task handle boundary (§4.F). Per-task-kind adapters
// embed additional input/output fields alongside Task.
type Task interface {
	// SetUserData stashes the adapter's opaque pointer (in this
	// implementation, a *coro.Slot[T] wrapped as any) for retrieval by
	// the completion callback.
	SetUserData(v any)
	UserData() any
	// Submit enqueues the task against its owning context/engine.
	// Synchronous allocation/submit failure is returned directly (§7).
	Submit() error
	Status() Status
	Err() error
	Free()
}
