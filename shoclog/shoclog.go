// Package shoclog provides the process-wide structured logger used
// throughout the runtime. There is exactly one logger instance; callers
// read it via Default and must not mutate it outside of process init or
// test setup (see SetDefault).
package shoclog

import (
	"os"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	izerolog "github.com/joeycumines/logiface-zerolog"
	"github.com/rs/zerolog"
)

var instance atomic.Pointer[logiface.Logger[*izerolog.Event]]

func newDefault() *logiface.Logger[*izerolog.Event] {
	return izerolog.L.New(
		izerolog.L.WithZerolog(zerolog.New(os.Stderr).With().Timestamp().Logger()),
		izerolog.L.WithLevel(logiface.LevelInformational),
	)
}

// Default returns the process-wide logger, lazily constructing a
// zerolog-backed one on first use.
func Default() *logiface.Logger[*izerolog.Event] {
	if l := instance.Load(); l != nil {
		return l
	}
	l := newDefault()
	if instance.CompareAndSwap(nil, l) {
		return l
	}
	return instance.Load()
}

// SetDefault replaces the process-wide logger. Intended for process init
// and test fixtures; the runtime itself treats Default as read-only.
func SetDefault(l *logiface.Logger[*izerolog.Event]) {
	instance.Store(l)
}
