package approvo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateBuilderBuildsOrderedSteps(t *testing.T) {
	t.Parallel()

	tpl := NewTemplate("expense-claim", "Expense claim").
		Type("expense").
		DefaultSLA(72).
		ApprovalStep("manager", PolicyAny).Assign("manager-1").SLA(24).
		ApprovalStep("finance", PolicyQuorum).Quorum(2).ForRole("finance").
		NotificationStep("notify-requester").
		Definition()

	require.Equal(t, "expense-claim", tpl.ID)
	require.Equal(t, "expense", tpl.Type)
	require.Equal(t, 72, tpl.DefaultSLAHours)
	require.True(t, tpl.Active)
	require.Len(t, tpl.Steps, 3)

	require.Equal(t, 1, tpl.Steps[0].Order)
	require.Equal(t, StepApproval, tpl.Steps[0].Type)
	require.Equal(t, []PrincipalID{"manager-1"}, tpl.Steps[0].Assignees)
	require.Equal(t, 24, tpl.Steps[0].SLAHours)
	require.True(t, tpl.Steps[0].Required)

	require.Equal(t, 2, tpl.Steps[1].Order)
	require.Equal(t, PolicyQuorum, tpl.Steps[1].Policy)
	require.Equal(t, 2, tpl.Steps[1].RequiredApprovals)
	require.Equal(t, []Role{"finance"}, tpl.Steps[1].Roles)

	require.Equal(t, 3, tpl.Steps[2].Order)
	require.Equal(t, StepNotification, tpl.Steps[2].Type)
}

func TestTemplateBuilderOptionalAndAutoApprove(t *testing.T) {
	t.Parallel()

	tpl := NewTemplate("small-expense", "Small expense").
		ApprovalStep("manager", PolicyAny).Assign("manager-1").Optional().
		AutoApproveWhen(func(doc DocumentRef) bool { return doc.Attributes["amount"] == "low" }).
		Definition()

	require.False(t, tpl.Steps[0].Required)
	require.NotNil(t, tpl.Steps[0].AutoApprove)
	require.True(t, tpl.Steps[0].AutoApprove(DocumentRef{Attributes: map[string]string{"amount": "low"}}))
}

func TestTemplateBuilderPanicsOnMisuse(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewTemplate("x", "x").Assign("bob") }, "attribute before any step")
	require.Panics(t, func() { NewTemplate("x", "x").ApprovalStep("", PolicyAny) }, "empty step name")
	require.Panics(t, func() { NewTemplate("x", "x").ApprovalStep("s", PolicyQuorum).Quorum(0) }, "zero quorum")
	require.Panics(t, func() { NewTemplate("x", "x").ApprovalStep("s", PolicyAny).AutoApproveWhen(nil) }, "nil condition")
}

func TestTemplateBuilderRegister(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()

	b := NewTemplate("sign-off", "Simple sign-off").
		ApprovalStep("approve", PolicyAny).Assign("bob")
	require.NoError(t, b.Register(eng))

	got, err := eng.Template("sign-off")
	require.NoError(t, err)
	require.Equal(t, "Simple sign-off", got.Name)

	// Duplicate registration surfaces the engine's error.
	require.Error(t, b.Register(eng))
	require.Panics(t, func() { b.MustRegister(eng) })

	inst, err := Start(context.Background(), eng, StartRequest{
		TemplateID:  b.ID(),
		Document:    DocumentRef{ID: "doc-1"},
		RequestedBy: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, inst.Status)
}

func TestTemplateBuilderInactive(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()
	NewTemplate("retired", "Retired flow").
		ApprovalStep("approve", PolicyAny).Assign("bob").
		Inactive().
		MustRegister(eng)

	_, err := Start(context.Background(), eng, StartRequest{TemplateID: "retired"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}
