package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a template, instance or task id does
	// not resolve. It is surfaced directly; there is nothing to retry.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action is attempted from a
	// disallowed state: completing a non-pending task, cancelling a
	// terminal instance, resuming an instance that is not on hold.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNoApprovers is returned when a required step resolves to zero
	// approvers. The engine reacts by force-terminating the instance as
	// REJECTED rather than leaving it hanging.
	ErrNoApprovers = errors.New("no approvers available")

	// ErrConcurrentModification is returned on an optimistic version
	// conflict. The caller must re-fetch and retry; the engine never
	// retries on its own because task creation is not idempotent.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// StuckStepDiagnostic reports a step whose required-approvals count
// exceeds the number of tasks that exist for it, so quorum can never be
// reached. This signals misconfiguration needing operator intervention,
// not a business verdict: the instance stays IN_PROGRESS.
type StuckStepDiagnostic struct {
	InstanceID        string
	StepOrder         int
	RequiredApprovals int
	AvailableTasks    int
}

func (d StuckStepDiagnostic) String() string {
	return fmt.Sprintf(
		"step %d of instance %s requires %d approvals but only %d tasks exist",
		d.StepOrder, d.InstanceID, d.RequiredApprovals, d.AvailableTasks,
	)
}
