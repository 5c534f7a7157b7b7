package engine

import (
	"fmt"
	"sort"

	"github.com/petrijr/approvo/pkg/api"
)

// Resolver computes the concrete approver set for a step: the union of
// role membership (looked up through a RoleDirectory) and direct
// assignees, deduplicated.
//
// Resolution is performed fresh at every call, never cached, so that
// membership changes between steps are honored.
type Resolver struct {
	Directory api.RoleDirectory
}

// Resolve returns the step's approver pool in deterministic order.
// An empty pool is not an error here; the orchestrator decides whether
// that rejects the instance (required step) or skips the step.
func (r Resolver) Resolve(step api.Step) ([]api.PrincipalID, error) {
	set := make(map[api.PrincipalID]struct{})

	for _, role := range step.Roles {
		if r.Directory == nil {
			return nil, fmt.Errorf("step %d names role %q but no role directory is configured", step.Order, role)
		}
		members, err := r.Directory.Resolve(role)
		if err != nil {
			return nil, fmt.Errorf("resolving role %q: %w", role, err)
		}
		for _, m := range members {
			if m != "" {
				set[m] = struct{}{}
			}
		}
	}

	for _, p := range step.Assignees {
		if p != "" {
			set[p] = struct{}{}
		}
	}

	out := make([]api.PrincipalID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (e *engineImpl) resolveApprovers(step api.Step) ([]api.PrincipalID, error) {
	return e.resolver.Resolve(step)
}
