package api

import "time"

// Status represents the lifecycle state of a workflow instance.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusOnHold     Status = "ON_HOLD"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

// Terminal reports whether s is one of the four terminal states.
// Terminal statuses never revert.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Completed reports whether the instance reached a business verdict.
// It is a derived display predicate, not a distinct state.
func (s Status) Completed() bool {
	return s == StatusApproved || s == StatusRejected
}

// Instance is one execution of a template against one document.
type Instance struct {
	ID          string
	TemplateID  string
	Document    DocumentRef
	Title       string
	Description string
	Priority    Priority
	Status      Status

	// CurrentStep is the 1-based order of the step being worked.
	// It is non-decreasing while the instance is IN_PROGRESS.
	CurrentStep int

	RequestedBy PrincipalID

	StartedAt time.Time
	DueAt     time.Time
	EndedAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the optimistic-concurrency counter. Stores reject an
	// update whose Version does not match the persisted row and bump it
	// on every successful write.
	Version int64
}

// Overdue reports whether the instance has passed its due date while
// still in progress. The watcher uses this predicate to flip instances
// to EXPIRED; it is computed purely from stored dates so repeated sweeps
// agree.
func (i *Instance) Overdue(now time.Time) bool {
	if i.Status != StatusInProgress {
		return false
	}
	if i.DueAt.IsZero() {
		return false
	}
	return now.After(i.DueAt)
}

// TaskStatus is the lifecycle state of a single approver obligation.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"

	// TaskVoid marks a task cancelled together with its instance.
	// Void tasks are not actionable and are distinct from COMPLETED.
	TaskVoid TaskStatus = "VOID"
)

// TaskAction is the verdict an approver records when completing a task.
type TaskAction string

const (
	ActionApprove TaskAction = "APPROVE"
	ActionReject  TaskAction = "REJECT"
)

// Task is one approver's obligation for one step of one instance.
// Action, CompletedBy and CompletedAt are set only on completion;
// COMPLETED is permanent and a completed task is never reopened.
type Task struct {
	ID         string
	InstanceID string
	StepOrder  int
	Assignee   PrincipalID
	Status     TaskStatus
	Action     TaskAction
	Comments   string

	CompletedBy PrincipalID
	CompletedAt time.Time

	DueAt     time.Time
	CreatedAt time.Time
}

// History actions written by the orchestrator. One row is appended per
// distinct causal state change; rows are never updated or deleted.
const (
	HistoryStarted        = "STARTED"
	HistoryStepStarted    = "STEP_STARTED"
	HistoryStepCompleted  = "STEP_COMPLETED"
	HistoryApproved       = "APPROVED"
	HistoryRejected       = "REJECTED"
	HistoryCancelled      = "CANCELLED"
	HistoryOnHold         = "ON_HOLD"
	HistoryResumed        = "RESUMED"
	HistoryExpired        = "EXPIRED"
	HistoryTaskReassigned = "TASK_REASSIGNED"
)

// HistoryEntry is one row of the append-only audit trail.
// Entries are ordered by At ascending, with Seq breaking ties in
// insertion order.
type HistoryEntry struct {
	Seq         int64
	InstanceID  string
	Action      string
	StepOrder   int
	Details     string
	PerformedBy PrincipalID
	At          time.Time
}
