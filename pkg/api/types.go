package api

import "time"

// PrincipalID identifies a user that can be assigned approval work.
// The engine treats it as an opaque identifier owned by the identity system.
type PrincipalID string

// Role identifies a group of principals. Roles are parsed once at the
// system boundary; the engine never re-parses role strings downstream.
type Role string

// RoleDirectory resolves role membership at task-generation time.
//
// The engine calls Resolve every time a step's tasks are created, so
// membership changes between steps are honored. Implementations should
// return the current member set; the engine deduplicates against direct
// assignees itself.
type RoleDirectory interface {
	Resolve(role Role) ([]PrincipalID, error)
}

// RoleDirectoryFunc adapts a function to the RoleDirectory interface.
type RoleDirectoryFunc func(role Role) ([]PrincipalID, error)

func (f RoleDirectoryFunc) Resolve(role Role) ([]PrincipalID, error) {
	return f(role)
}

// StaticRoles is a RoleDirectory backed by a fixed map, useful for tests
// and small deployments.
type StaticRoles map[Role][]PrincipalID

func (s StaticRoles) Resolve(role Role) ([]PrincipalID, error) {
	return s[role], nil
}

// DocumentRef is the engine's view of the document under approval.
// Content is never read; Attributes exist only so that step auto-approve
// conditions can be evaluated against document metadata.
type DocumentRef struct {
	ID         string
	Attributes map[string]string
}

// ConditionFunc evaluates a document and reports whether a step's
// auto-approve condition holds.
type ConditionFunc func(doc DocumentRef) bool

// Clock abstracts time so SLA behavior is deterministic in tests.
// The engine and watcher never read system time directly.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// StepType categorizes what a step does. Task-bearing types (APPROVAL,
// REVIEW, VALIDATION, DATA_PROCESSING, CUSTOM_ACTION) generate one task
// per resolved approver; NOTIFICATION steps emit a notification and
// advance without tasks.
type StepType string

const (
	StepApproval       StepType = "APPROVAL"
	StepReview         StepType = "REVIEW"
	StepNotification   StepType = "NOTIFICATION"
	StepValidation     StepType = "VALIDATION"
	StepDataProcessing StepType = "DATA_PROCESSING"
	StepCustomAction   StepType = "CUSTOM_ACTION"
)

// ApprovalPolicy decides when a step's task outcomes satisfy the step.
type ApprovalPolicy string

const (
	// PolicyQuorum satisfies the step once APPROVE outcomes reach the
	// step's required-approvals count.
	PolicyQuorum ApprovalPolicy = "QUORUM"

	// PolicyUnanimous requires every created task to be approved.
	PolicyUnanimous ApprovalPolicy = "UNANIMOUS"

	// PolicyAny satisfies the step on the first approval.
	PolicyAny ApprovalPolicy = "ANY"
)

// Step is one stage of a template.
//
// The approver pool is the union of Roles (resolved through a
// RoleDirectory when tasks are generated) and Assignees. RequiredApprovals
// values at or below zero are treated as 1.
type Step struct {
	Order             int
	Name              string
	Type              StepType
	Policy            ApprovalPolicy
	RequiredApprovals int
	Required          bool
	SLAHours          int
	AutoApprove       ConditionFunc
	Roles             []Role
	Assignees         []PrincipalID
}

// EffectiveRequiredApprovals normalizes RequiredApprovals to at least 1.
func (s Step) EffectiveRequiredApprovals() int {
	if s.RequiredApprovals <= 0 {
		return 1
	}
	return s.RequiredApprovals
}

// Template is a reusable definition of an ordered approval process.
// Once registered with an engine it is immutable; in-flight instances are
// therefore pinned to the step sequence that existed at start time.
type Template struct {
	ID              string
	Name            string
	Type            string
	Steps           []Step
	DefaultSLAHours int
	Active          bool
}

// StepAt returns the step with the given order, or false if none exists.
func (t Template) StepAt(order int) (Step, bool) {
	for _, s := range t.Steps {
		if s.Order == order {
			return s, true
		}
	}
	return Step{}, false
}

// Priority orders instances for display and triage. It has no effect on
// engine semantics.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)
