// Package runtime provides the process-scoped Runtime struct that replaces
// the module-level singleton database client and global work-status flag
// the original system used (Design Notes §9): components receive it as an
// explicit dependency at construction rather than reaching for globals.
package runtime

import "sync/atomic"

// Runtime bundles the store handle and a process-wide cancellation flag.
// The Store field is declared as `any` here to avoid an import cycle with
// pkg/store; a caller that needs it must type-assert it back to
// store.Store (no package in this module currently reads it).
type Runtime struct {
	Store any

	cancelled atomic.Bool
}

// New creates a Runtime wrapping the given store handle.
func New(store any) *Runtime {
	return &Runtime{Store: store}
}

// Cancel raises the process-wide stop flag. Idempotent.
func (r *Runtime) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called. Safe to poll from any
// goroutine; this is the single stop-flag check point named throughout
// spec.md §5 ("RateLimiter.Acquire", "top of every chunk sub-step", "start
// of every stage").
func (r *Runtime) Cancelled() bool {
	return r.cancelled.Load()
}

// Reset clears the cancellation flag, for reuse across runs in a single
// process (e.g. a long-lived worker pool picking up the next project).
func (r *Runtime) Reset() {
	r.cancelled.Store(false)
}
