package engine

import (
	"context"
	"sort"
	"time"

	"github.com/petrijr/approvo/internal/persistence"
	"github.com/petrijr/approvo/pkg/api"
)

// Metrics derives the reporting snapshot from stored instances and
// history. It is a read-only aggregate for an external reporting
// component and deliberately shares no code with the write path.
func (e *engineImpl) Metrics(ctx context.Context) (api.MetricsSnapshot, error) {
	instances, err := e.stores.Instances.ListInstances(ctx, persistence.InstanceFilter{})
	if err != nil {
		return api.MetricsSnapshot{}, err
	}

	snap := api.MetricsSnapshot{
		CountByStatus: make(map[api.Status]int),
	}

	var (
		approvedTotal time.Duration
		approvedCount int
	)
	stepStats := make(map[stepKey]*api.StepCompletionRate)

	for _, inst := range instances {
		snap.CountByStatus[inst.Status]++

		if inst.Status == api.StatusApproved && !inst.EndedAt.IsZero() && !inst.StartedAt.IsZero() {
			approvedTotal += inst.EndedAt.Sub(inst.StartedAt)
			approvedCount++
		}

		history, err := e.stores.History.ListHistory(ctx, inst.ID)
		if err != nil {
			return api.MetricsSnapshot{}, err
		}
		for _, entry := range history {
			switch entry.Action {
			case api.HistoryStepStarted:
				stat(stepStats, inst.TemplateID, entry.StepOrder).Started++
			case api.HistoryStepCompleted:
				stat(stepStats, inst.TemplateID, entry.StepOrder).Completed++
			case api.HistoryApproved:
				// The final step has no STEP_COMPLETED row; approval
				// completes it.
				stat(stepStats, inst.TemplateID, entry.StepOrder).Completed++
			}
		}
	}

	if approvedCount > 0 {
		snap.AvgApprovalDuration = approvedTotal / time.Duration(approvedCount)
	}

	for _, s := range stepStats {
		snap.StepCompletion = append(snap.StepCompletion, *s)
	}
	sort.Slice(snap.StepCompletion, func(i, j int) bool {
		a, b := snap.StepCompletion[i], snap.StepCompletion[j]
		if a.TemplateID != b.TemplateID {
			return a.TemplateID < b.TemplateID
		}
		return a.StepOrder < b.StepOrder
	})

	return snap, nil
}

type stepKey struct {
	templateID string
	stepOrder  int
}

func stat(m map[stepKey]*api.StepCompletionRate, templateID string, stepOrder int) *api.StepCompletionRate {
	k := stepKey{templateID: templateID, stepOrder: stepOrder}
	s, ok := m[k]
	if !ok {
		s = &api.StepCompletionRate{TemplateID: templateID, StepOrder: stepOrder}
		m[k] = s
	}
	return s
}
