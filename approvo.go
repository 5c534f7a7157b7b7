package approvo

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/approvo/internal/engine"
	"github.com/petrijr/approvo/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine                     = api.Engine
	Template                   = api.Template
	Step                       = api.Step
	StepType                   = api.StepType
	ApprovalPolicy             = api.ApprovalPolicy
	Priority                   = api.Priority
	Instance                   = api.Instance
	InstanceDetail             = api.InstanceDetail
	Task                       = api.Task
	TaskStatus                 = api.TaskStatus
	TaskAction                 = api.TaskAction
	HistoryEntry               = api.HistoryEntry
	Status                     = api.Status
	StartRequest               = api.StartRequest
	ListOptions                = api.ListOptions
	MetricsSnapshot            = api.MetricsSnapshot
	StepCompletionRate         = api.StepCompletionRate
	PrincipalID                = api.PrincipalID
	Role                       = api.Role
	RoleDirectory              = api.RoleDirectory
	RoleDirectoryFunc          = api.RoleDirectoryFunc
	StaticRoles                = api.StaticRoles
	DocumentRef                = api.DocumentRef
	ConditionFunc              = api.ConditionFunc
	Clock                      = api.Clock
	ClockFunc                  = api.ClockFunc
	Notifier                   = api.Notifier
	Event                      = api.Event
	EventType                  = api.EventType
	NoopNotifier               = api.NoopNotifier
	CompositeNotifier          = api.CompositeNotifier
	LoggingNotifier            = api.LoggingNotifier
	TransitionCounters         = api.TransitionCounters
	TransitionCountersSnapshot = api.TransitionCountersSnapshot
	StuckStepDiagnostic        = api.StuckStepDiagnostic
	Options                    = engine.Options
)

// Re-export common notifier helpers.

var (
	NewLoggingNotifier   = api.NewLoggingNotifier
	NewCompositeNotifier = api.NewCompositeNotifier
	SystemClock          = api.SystemClock
)

// Re-export sentinel errors for errors.Is checks at the call site.

var (
	ErrNotFound               = api.ErrNotFound
	ErrInvalidTransition      = api.ErrInvalidTransition
	ErrNoApprovers            = api.ErrNoApprovers
	ErrConcurrentModification = api.ErrConcurrentModification
)

// Re-export status values for convenience.

const (
	StatusPending    = api.StatusPending
	StatusInProgress = api.StatusInProgress
	StatusOnHold     = api.StatusOnHold
	StatusApproved   = api.StatusApproved
	StatusRejected   = api.StatusRejected
	StatusCancelled  = api.StatusCancelled
	StatusExpired    = api.StatusExpired
)

// Task outcomes and actions.

const (
	TaskPending   = api.TaskPending
	TaskCompleted = api.TaskCompleted
	TaskVoid      = api.TaskVoid

	ActionApprove = api.ActionApprove
	ActionReject  = api.ActionReject
)

// Step types and approval policies.

const (
	StepApproval       = api.StepApproval
	StepReview         = api.StepReview
	StepNotification   = api.StepNotification
	StepValidation     = api.StepValidation
	StepDataProcessing = api.StepDataProcessing
	StepCustomAction   = api.StepCustomAction

	PolicyQuorum    = api.PolicyQuorum
	PolicyUnanimous = api.PolicyUnanimous
	PolicyAny       = api.PolicyAny
)

// Priorities.

const (
	PriorityLow    = api.PriorityLow
	PriorityNormal = api.PriorityNormal
	PriorityHigh   = api.PriorityHigh
	PriorityUrgent = api.PriorityUrgent
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithOptions returns an in-memory Engine with explicit
// collaborators (role directory, clock, notifier, stuck-step hook).
func NewInMemoryEngineWithOptions(opts Options) Engine {
	return engine.NewInMemoryEngineWithOptions(opts)
}

// NewSQLiteEngine returns an Engine that persists instances, tasks and
// history in a SQLite database. Template definitions carry condition
// functions and remain in-memory; re-register them on process start.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithOptions returns a SQLite-backed Engine with explicit
// collaborators.
func NewSQLiteEngineWithOptions(db *sql.DB, opts Options) (Engine, error) {
	return engine.NewSQLiteEngineWithOptions(db, opts)
}

// NewPostgresEngine returns an Engine that persists instances, tasks and
// history in PostgreSQL.
func NewPostgresEngine(db *sql.DB) (Engine, error) {
	return engine.NewPostgresEngine(db)
}

// NewPostgresEngineWithOptions returns a Postgres-backed Engine with
// explicit collaborators.
func NewPostgresEngineWithOptions(db *sql.DB, opts Options) (Engine, error) {
	return engine.NewPostgresEngineWithOptions(db, opts)
}

// NewRedisEngine returns an Engine that persists instances in Redis.
// Tasks and history stay in-memory; see internal/engine for durable
// pairings.
func NewRedisEngine(client *redis.Client) Engine {
	return engine.NewRedisEngine(client)
}

// NewRedisEngineWithOptions returns a Redis-backed Engine with explicit
// collaborators.
func NewRedisEngineWithOptions(client *redis.Client, opts Options) Engine {
	return engine.NewRedisEngineWithOptions(client, opts)
}

// Convenience helpers that just forward to the underlying Engine.

// Start starts a new instance from a registered template.
func Start(ctx context.Context, eng Engine, req StartRequest) (*Instance, error) {
	return eng.Start(ctx, req)
}

// Approve completes a task with an APPROVE verdict.
func Approve(ctx context.Context, eng Engine, taskID, comments string, actor PrincipalID) (*Task, error) {
	return eng.CompleteTask(ctx, taskID, ActionApprove, comments, actor)
}

// Reject completes a task with a REJECT verdict.
func Reject(ctx context.Context, eng Engine, taskID, comments string, actor PrincipalID) (*Task, error) {
	return eng.CompleteTask(ctx, taskID, ActionReject, comments, actor)
}

// GetInstance fetches an instance by ID.
func GetInstance(ctx context.Context, eng Engine, id string) (*Instance, error) {
	return eng.GetInstance(ctx, id)
}

// ListInstances lists instances according to the given options.
func ListInstances(ctx context.Context, eng Engine, opts ListOptions) ([]*Instance, error) {
	return eng.ListInstances(ctx, opts)
}

// SweepOverdue expires overdue IN_PROGRESS instances.
//
// It is typically driven by a watcher.Watcher, but can be called
// directly from an external scheduler:
//
//	count, err := approvo.SweepOverdue(ctx, engine)
func SweepOverdue(ctx context.Context, eng Engine) (int, error) {
	return eng.SweepOverdue(ctx)
}
