package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/approvo/pkg/api"
)

var (
	// ErrTemplateNotFound is returned when a template id is not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateExists is returned when a template id is already taken.
	// Registered templates are immutable, so there is no overwrite path.
	ErrTemplateExists = errors.New("template already registered")

	// ErrInstanceNotFound is returned when an instance id is not found.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrTaskNotFound is returned when a task id is not found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrVersionConflict is returned when an instance update carries a
	// stale version. The caller must re-read and retry.
	ErrVersionConflict = errors.New("instance version conflict")

	// ErrTaskNotPending is returned when a conditional task transition
	// finds the task no longer PENDING: either a concurrent completion
	// won, or the task was voided.
	ErrTaskNotPending = errors.New("task is not pending")
)

// TemplateStore handles storage of workflow templates.
//
// Templates are write-once: SaveTemplate fails with ErrTemplateExists on a
// duplicate id, which is what pins in-flight instances to the step
// sequence they started with.
type TemplateStore interface {
	SaveTemplate(tpl api.Template) error
	GetTemplate(id string) (api.Template, error)
	ListTemplates() ([]api.Template, error)
}

// InstanceFilter is used to select instances from the store.
// Empty string / zero values mean "no filter" for that field.
type InstanceFilter struct {
	TemplateID  string
	Status      api.Status
	Search      string
	RequestedBy api.PrincipalID
	Offset      int
	Limit       int
}

// InstanceStore handles storage of workflow instances.
//
// UpdateInstance is the optimistic-concurrency gate: it succeeds only when
// the given instance's Version matches the stored row, bumps the version
// on success (both in the store and on the passed instance), and returns
// ErrVersionConflict otherwise. All engine transitions go through it.
type InstanceStore interface {
	SaveInstance(ctx context.Context, inst *api.Instance) error
	UpdateInstance(ctx context.Context, inst *api.Instance) error
	GetInstance(ctx context.Context, id string) (*api.Instance, error)
	ListInstances(ctx context.Context, filter InstanceFilter) ([]*api.Instance, error)
}

// TaskStore handles storage of approver tasks.
type TaskStore interface {
	SaveTasks(ctx context.Context, tasks []*api.Task) error
	GetTask(ctx context.Context, id string) (*api.Task, error)
	ListTasksByInstance(ctx context.Context, instanceID string) ([]*api.Task, error)
	ListTasksByStep(ctx context.Context, instanceID string, stepOrder int) ([]*api.Task, error)
	ListPendingByAssignee(ctx context.Context, assignee api.PrincipalID) ([]*api.Task, error)

	// CompleteTask conditionally transitions a task PENDING -> COMPLETED,
	// recording the verdict. Exactly one caller wins; the rest get
	// ErrTaskNotPending.
	CompleteTask(ctx context.Context, id string, action api.TaskAction, comments string, actor api.PrincipalID, at time.Time) (*api.Task, error)

	// ReassignTask moves a PENDING task to a new assignee without
	// touching its due date. Non-pending tasks yield ErrTaskNotPending.
	ReassignTask(ctx context.Context, id string, newAssignee api.PrincipalID) (*api.Task, error)

	// VoidPendingTasks marks every PENDING task of an instance VOID and
	// returns how many were voided. Used by cancellation.
	VoidPendingTasks(ctx context.Context, instanceID string) (int, error)
}

// HistoryStore is the append-only audit ledger. There is deliberately no
// update or delete operation; ListHistory returns entries ordered by
// action date ascending with insertion order breaking ties.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry api.HistoryEntry) error
	ListHistory(ctx context.Context, instanceID string) ([]api.HistoryEntry, error)
}
