// Package api contains the core building blocks of the approvo approval
// workflow engine. It defines the data model, the Engine interface, the
// error contract, and the notification hook.
//
// Most users interact with the higher-level approvo package, which
// re-exports selected types and helpers from this package. The api package
// is intended for custom integrations or contributors extending the engine
// itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Templates: ordered, reusable definitions of an approval process.
//   - Instances: one run of a template against one document.
//   - Tasks: per-approver obligations for the instance's current step.
//   - History: an append-only audit trail of every state change.
//
// Templates are immutable once registered with an engine. An in-flight
// instance is therefore pinned to the step sequence that existed when it
// started; editing an approval process means registering a new template.
//
// # Approver Resolution
//
// Each step carries an approver pool: role assignments resolved through a
// RoleDirectory, unioned with direct assignees. Resolution happens at
// task-generation time, never cached, so membership changes between steps
// are honored.
//
// # Errors
//
// Engine operations return sentinel errors matched with errors.Is:
// ErrNotFound, ErrInvalidTransition, ErrNoApprovers and
// ErrConcurrentModification. A failed operation leaves instance state
// unchanged; the engine never retries on the caller's behalf.
//
// # Notifications
//
// The Notifier interface receives one Event per instance transition.
// Delivery is external to the engine: the ready-made implementations log
// via slog, count transitions in memory, or fan out to several notifiers.
//
// # Usage
//
// Most applications should start from the approvo package, using the
// TemplateBuilder and Engine constructors provided there. See the examples
// directory for end-to-end usage.
package api
