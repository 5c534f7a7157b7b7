package api

import (
	"context"
	"time"
)

// StartRequest carries everything needed to start an instance of a
// registered template against a document.
type StartRequest struct {
	TemplateID  string
	Document    DocumentRef
	Title       string
	Description string
	Priority    Priority
	RequestedBy PrincipalID
}

// ListOptions controls how instances are listed.
// Zero values mean "no filter" for that field.
type ListOptions struct {
	// TemplateID, if non-empty, limits results to instances of the given template.
	TemplateID string

	// Status, if non-empty, limits results to instances with the given status.
	Status Status

	// Search, if non-empty, matches case-insensitively against the title.
	Search string

	// RequestedBy, if non-empty, limits results to instances started by
	// the given principal.
	RequestedBy PrincipalID

	// Offset and Limit page the result set. Limit 0 means "no limit".
	Offset int
	Limit  int
}

// InstanceDetail bundles an instance with its tasks and full history.
type InstanceDetail struct {
	Instance *Instance
	Tasks    []*Task
	History  []HistoryEntry
}

// StepCompletionRate reports, for one step of one template, how many
// instances started the step and how many completed it.
type StepCompletionRate struct {
	TemplateID string
	StepOrder  int
	Started    int
	Completed  int
}

// MetricsSnapshot is a read-only aggregate over stored instances,
// intended for external reporting. Computing it never mutates state.
type MetricsSnapshot struct {
	CountByStatus       map[Status]int
	AvgApprovalDuration time.Duration
	StepCompletion      []StepCompletionRate
}

// Engine is the approval workflow engine API. All operations are
// synchronous and request-scoped; a failed operation leaves instance
// state unchanged, except the documented no-approvers termination.
type Engine interface {
	// RegisterTemplate validates and registers a template definition.
	// Steps must have unique, contiguous 1-based orders. Registered
	// templates are immutable; re-registering an id is an error.
	RegisterTemplate(tpl Template) error

	// Template returns a registered template by id.
	Template(id string) (Template, error)

	// Start creates an instance, moves it to IN_PROGRESS at step 1 and
	// generates the first step's tasks.
	//
	// Semantics:
	//   - The due date comes from step 1's SLA override if set,
	//     otherwise from the template's default SLA.
	//   - If step 1 is required and resolves to zero approvers, the
	//     instance is immediately REJECTED with an explanatory history
	//     entry rather than being left hanging.
	Start(ctx context.Context, req StartRequest) (*Instance, error)

	// CompleteTask records an approver's verdict on a pending task and
	// runs step resolution, which may advance or finalize the instance.
	// Exactly one caller can complete a given task; a losing concurrent
	// attempt fails with ErrInvalidTransition.
	CompleteTask(ctx context.Context, taskID string, action TaskAction, comments string, actor PrincipalID) (*Task, error)

	// ReassignTask moves a pending task to a new assignee. The due date
	// is not reset. Completed or void tasks cannot be reassigned.
	ReassignTask(ctx context.Context, taskID string, newAssignee PrincipalID, reason string, actor PrincipalID) (*Task, error)

	// Cancel terminates an instance from PENDING, IN_PROGRESS or
	// ON_HOLD. Open tasks are voided, not completed.
	Cancel(ctx context.Context, instanceID, reason string, actor PrincipalID) (*Instance, error)

	// Hold parks an IN_PROGRESS instance; Resume returns it to
	// IN_PROGRESS. Neither touches the current step or open tasks.
	Hold(ctx context.Context, instanceID string, actor PrincipalID) (*Instance, error)
	Resume(ctx context.Context, instanceID string, actor PrincipalID) (*Instance, error)

	// GetInstance looks up an instance by id.
	GetInstance(ctx context.Context, id string) (*Instance, error)

	// GetInstanceDetail returns the instance together with its tasks and
	// history, history ordered by action date ascending.
	GetInstanceDetail(ctx context.Context, id string) (*InstanceDetail, error)

	// ListInstances returns instances matching the given options.
	ListInstances(ctx context.Context, opts ListOptions) ([]*Instance, error)

	// ListMine returns instances on which the principal has a pending
	// task, paged and filterable through opts.
	ListMine(ctx context.Context, principal PrincipalID, opts ListOptions) ([]*Instance, error)

	// History returns the instance's audit trail, oldest first.
	History(ctx context.Context, instanceID string) ([]HistoryEntry, error)

	// Metrics computes the reporting snapshot from stored state.
	Metrics(ctx context.Context) (MetricsSnapshot, error)

	// SweepOverdue flags overdue IN_PROGRESS instances as EXPIRED and
	// returns how many were flipped. The sweep is idempotent: running it
	// twice on unchanged state flips nothing the second time and writes
	// no duplicate history rows.
	SweepOverdue(ctx context.Context) (int, error)
}
