package pe

import (
	"github.com/joeycumines/go-catrate"
	"golang.org/x/sync/semaphore"
)

// Option configures an Engine at construction time, following the
// ancestor event loop's functional-options convention (§ ambient
// configuration stack - no viper, no CLI flags).
type Option func(*config)

type config struct {
	maxInflight int64
	rateLimiter *catrate.Limiter
}

// WithMaxInflightTasks bounds the number of native tasks this engine will
// have submitted-but-not-yet-completed at any one time, backed by
// golang.org/x/sync/semaphore. Submissions beyond the bound block the
// submitting fiber until capacity frees up. A non-positive n disables the
// bound (the default).
func WithMaxInflightTasks(n int64) Option {
	return func(c *config) { c.maxInflight = n }
}

// WithSubmitRateLimit attaches a category rate limiter (one category per
// native task kind, e.g. "dma.memcpy", "comch.send") that SubmitTask
// consults before handing a task to the native layer. A task rejected by
// the limiter fails fast with ErrSubmitThrottled rather than being
// queued, matching the DOCA progress engine's own backpressure-by-
// rejection submission model rather than microbatch's buffer-and-flush
// one.
func WithSubmitRateLimit(l *catrate.Limiter) Option {
	return func(c *config) { c.rateLimiter = l }
}

func newConfig(opts []Option) config {
	var c config
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c config) semaphore() *semaphore.Weighted {
	if c.maxInflight <= 0 {
		return nil
	}
	return semaphore.NewWeighted(c.maxInflight)
}
