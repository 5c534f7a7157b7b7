// Package watcher provides the background deadline sweeper that expires
// overdue approval instances.
//
// A Watcher wraps an engine and repeatedly invokes its overdue sweep.
// The sweep itself is idempotent and conflict-safe: the engine flips an
// instance to EXPIRED only through a versioned update, so running several
// watchers against the same backend expires each instance exactly once.
//
// # Responsibilities
//
// A watcher is responsible for:
//
//   - Periodically scanning for IN_PROGRESS instances past their due date
//   - Flipping them to EXPIRED through the engine
//   - Logging sweep outcomes and transient failures
//
// Watchers are long-lived components that typically run in a dedicated
// goroutine next to the service embedding the engine. They hold no state
// of their own; all state lives in the engine's store.
//
// # Usage
//
// Construct a watcher around an engine and run it with a cancellable
// context:
//
//	w := watcher.New(eng)
//	go w.Run(ctx)
//
// Use NewWithConfig to control the sweep interval and logger, or call
// SweepOnce directly from an external scheduler (cron, a job runner)
// instead of running the loop.
package watcher
