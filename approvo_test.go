package approvo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestInMemoryEngineWithNotifierAndCounters verifies that:
//   - NewInMemoryEngineWithOptions is usable from the public API
//   - TransitionCounters sees expected instance/step counts
//   - The builder and facade helpers work end-to-end without external infra.
func TestInMemoryEngineWithNotifierAndCounters(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counters := &TransitionCounters{}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	engine := NewInMemoryEngineWithOptions(Options{
		Roles: StaticRoles{"finance": {"fin-1", "fin-2"}},
		Notifier: NewCompositeNotifier(
			NewLoggingNotifier(logger),
			counters,
		),
	})

	// Simple 2-step approval chain.
	flow := NewTemplate("purchase", "Purchase approval").
		ApprovalStep("manager", PolicyAny).Assign("manager-1").
		ApprovalStep("finance", PolicyQuorum).Quorum(2).ForRole("finance")

	require.NoError(t, flow.Register(engine), "Register should succeed")

	inst, err := Start(ctx, engine, StartRequest{
		TemplateID:  flow.ID(),
		Document:    DocumentRef{ID: "doc-1"},
		Title:       "Standing desks",
		RequestedBy: "alice",
	})
	require.NoError(t, err, "Start should succeed")
	require.NotNil(t, inst, "instance should not be nil")
	require.Equal(t, StatusInProgress, inst.Status)

	detail, err := engine.GetInstanceDetail(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tasks, 1)

	_, err = Approve(ctx, engine, detail.Tasks[0].ID, "fine by me", "manager-1")
	require.NoError(t, err)

	detail, err = engine.GetInstanceDetail(ctx, inst.ID)
	require.NoError(t, err)
	for _, task := range detail.Tasks {
		if task.Status == TaskPending {
			_, err = Approve(ctx, engine, task.ID, "", task.Assignee)
			require.NoError(t, err)
		}
	}

	final, err := GetInstance(ctx, engine, inst.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status, "instance should be approved")

	snap := counters.Snapshot()
	require.Equal(t, int64(1), snap.Started, "expected exactly 1 instance started")
	require.Equal(t, int64(1), snap.Approved, "expected exactly 1 instance approved")
	require.Equal(t, int64(0), snap.Rejected, "expected 0 rejections")
	require.Equal(t, int64(0), snap.InFlight, "expected 0 in-flight instances")
	require.Equal(t, int64(1), snap.StepsCompleted, "only the non-final step records a completion")
}

// TestFacadeRejectFlow ensures the Reject helper terminates the instance
// and surfaces the verdict through ListInstances.
func TestFacadeRejectFlow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := NewInMemoryEngine()

	NewTemplate("contract", "Contract sign-off").
		ApprovalStep("legal", PolicyAny).Assign("lawyer-1").
		MustRegister(engine)

	inst, err := Start(ctx, engine, StartRequest{
		TemplateID:  "contract",
		Document:    DocumentRef{ID: "doc-7"},
		Title:       "Vendor contract",
		RequestedBy: "alice",
	})
	require.NoError(t, err)

	detail, err := engine.GetInstanceDetail(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tasks, 1)

	_, err = Reject(ctx, engine, detail.Tasks[0].ID, "unacceptable terms", "lawyer-1")
	require.NoError(t, err)

	rejected, err := ListInstances(ctx, engine, ListOptions{Status: StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, inst.ID, rejected[0].ID)

	// The verdict and its author are on the audit trail.
	history, err := engine.History(ctx, inst.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	require.Equal(t, "REJECTED", last.Action)
	require.Equal(t, PrincipalID("lawyer-1"), last.PerformedBy)
}

// TestFacadeSweepOverdue exercises the SweepOverdue helper against an
// engine with a real clock; nothing is due, so nothing flips.
func TestFacadeSweepOverdue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := NewInMemoryEngine()

	NewTemplate("claim", "Expense claim").
		DefaultSLA(48).
		ApprovalStep("manager", PolicyAny).Assign("manager-1").
		MustRegister(engine)

	_, err := Start(ctx, engine, StartRequest{
		TemplateID:  "claim",
		Document:    DocumentRef{ID: "doc-3"},
		RequestedBy: "alice",
	})
	require.NoError(t, err)

	flipped, err := SweepOverdue(ctx, engine)
	require.NoError(t, err)
	require.Zero(t, flipped)
}
