// Package approvo provides a lightweight, embeddable document approval
// workflow engine for Go.
//
// Approvo is designed for backend services that route documents through
// multi-step approval chains: expense claims, purchase orders, contract
// sign-offs, access requests. It runs fully in Go, supports multiple
// persistence backends, and integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The Approvo programming model is intentionally small and idiomatic:
//
//  1. Engine
//  2. Template
//  3. Task
//  4. TemplateBuilder
//  5. Watcher
//
// These components form a complete approval system with an auditable
// history, durable state (when using persistent backends), and a clear
// mental model.
//
// # Engine
//
// The Engine stores template definitions, persists instance state, and
// provides APIs to:
//   - start approval instances from registered templates
//   - complete, and reassign, approval tasks
//   - cancel, hold and resume instances
//   - read instance state, history and aggregate metrics
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//
// All instance writes go through optimistic versioning, so concurrent
// operations on the same instance resolve to a single winner; the loser
// receives ErrConcurrentModification and can re-fetch and retry.
//
// # Template
//
// A Template defines the approval chain for one document type as an
// ordered list of steps. Each step names its approver pool (roles
// resolved through a RoleDirectory, direct assignees, or both), its
// approval policy (any, quorum, unanimous), whether it is required, and
// an optional deadline.
//
// Templates are immutable once registered: in-flight instances always
// finish against the definition they started with.
//
// # Task
//
// When an instance reaches a step, the engine creates one Task per
// resolved approver. Approvers complete tasks with an APPROVE or REJECT
// verdict; the step's policy decides when the instance advances. Task
// completion is single-winner: once a task is completed, further
// completion attempts fail with ErrInvalidTransition.
//
// # TemplateBuilder
//
// TemplateBuilder provides the ergonomic, declarative API used to define
// templates:
//
//	approvo.NewTemplate("expense-claim", "Expense claim").
//	    ApprovalStep("manager", approvo.PolicyAny).Assign("manager-1").SLA(24).
//	    ApprovalStep("finance", approvo.PolicyQuorum).Quorum(2).ForRole("finance").
//	    MustRegister(engine)
//
// Definitions created with TemplateBuilder are registered into an Engine
// before use.
//
// # Watcher
//
// The watcher package drives the deadline sweep: instances past their
// due date are flipped to EXPIRED exactly once, with an audit row, no
// matter how many watcher processes race on the same store.
//
// # Summary
//
// Approvo's goal is to give Go developers an approval engine that feels
// like Go: easy to embed, easy to test, deterministic, and without
// operational overhead. Engines manage instance state, Templates define
// approval chains, Tasks carry approver verdicts, and the Watcher keeps
// deadlines honest.
//
// For examples, see the /examples directory or the project README.
package approvo
