// Package policy implements step resolution: deciding whether the task
// outcomes recorded for a step satisfy, reject, or leave the step pending
// under the step's approval policy.
//
// The package is pure. It never touches storage or the clock, which keeps
// the resolution rules independently testable from the orchestrator.
package policy

import "github.com/petrijr/approvo/pkg/api"

// Result is the outcome of evaluating a step against its tasks.
type Result int

const (
	// Pending means the step has neither been satisfied nor rejected.
	Pending Result = iota

	// Satisfied means the step's policy is met and the instance may
	// advance past it.
	Satisfied

	// Rejected means a required step received a REJECT verdict. The
	// rejection is irrevocable regardless of later approvals.
	Rejected
)

func (r Result) String() string {
	switch r {
	case Satisfied:
		return "SATISFIED"
	case Rejected:
		return "REJECTED"
	default:
		return "PENDING"
	}
}

// Evaluate resolves a step against the tasks created for it.
//
// Semantics:
//   - Any REJECT on a required step rejects the step immediately.
//   - QUORUM is satisfied once APPROVE outcomes reach the step's
//     effective required-approvals count (at least 1).
//   - UNANIMOUS requires every created task to carry an APPROVE.
//   - ANY is satisfied by the first APPROVE.
//   - A non-required step whose auto-approve condition holds for the
//     document is satisfied without any task.
//   - A non-required step with no tasks at all is satisfied; there is
//     nobody obliged to act on it.
//
// Void tasks are ignored: they represent obligations cancelled together
// with their instance, not verdicts.
func Evaluate(step api.Step, tasks []*api.Task, doc api.DocumentRef) Result {
	if !step.Required {
		if step.AutoApprove != nil && step.AutoApprove(doc) {
			return Satisfied
		}
		if len(tasks) == 0 {
			return Satisfied
		}
	}

	approvals := 0
	total := 0
	for _, t := range tasks {
		if t.Status == api.TaskVoid {
			continue
		}
		total++
		if t.Status != api.TaskCompleted {
			continue
		}
		switch t.Action {
		case api.ActionReject:
			if step.Required {
				return Rejected
			}
		case api.ActionApprove:
			approvals++
		}
	}

	switch step.Policy {
	case api.PolicyUnanimous:
		if total > 0 && approvals == total {
			return Satisfied
		}
	case api.PolicyAny:
		if approvals >= 1 {
			return Satisfied
		}
	default:
		// QUORUM is the default policy.
		if approvals >= step.EffectiveRequiredApprovals() {
			return Satisfied
		}
	}

	return Pending
}

// Diagnose reports a misconfigured step that can never reach quorum:
// its required-approvals count exceeds the number of non-void tasks that
// exist for it. This is an operator signal, not a business verdict; the
// caller is expected to keep the instance IN_PROGRESS and surface the
// diagnostic.
//
// Returns nil when the step is resolvable or uses a non-quorum policy.
func Diagnose(instanceID string, step api.Step, tasks []*api.Task) *api.StuckStepDiagnostic {
	if step.Policy == api.PolicyUnanimous || step.Policy == api.PolicyAny {
		return nil
	}

	available := 0
	for _, t := range tasks {
		if t.Status != api.TaskVoid {
			available++
		}
	}

	required := step.EffectiveRequiredApprovals()
	if required <= available {
		return nil
	}
	return &api.StuckStepDiagnostic{
		InstanceID:        instanceID,
		StepOrder:         step.Order,
		RequiredApprovals: required,
		AvailableTasks:    available,
	}
}
