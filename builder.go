package approvo

import (
	"fmt"

	"github.com/petrijr/approvo/pkg/api"
)

// TemplateBuilder provides a fluent API for defining approval templates:
//
//	tpl := approvo.NewTemplate("expense-claim", "Expense claim").
//	    ApprovalStep("manager", approvo.PolicyAny).Assign("manager-1").SLA(24).
//	    ApprovalStep("finance", approvo.PolicyQuorum).Quorum(2).ForRole("finance").
//	    NotificationStep("notify-requester")
//
//	if err := tpl.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := approvo.Start(ctx, engine, approvo.StartRequest{
//	    TemplateID: tpl.ID(),
//	    ...
//	})
//
// Step methods return the builder, so step attributes (Assign, ForRole,
// Quorum, SLA, Optional, AutoApprove) always apply to the most recently
// added step. Orders are assigned sequentially starting at 1.
type TemplateBuilder struct {
	tpl api.Template
}

// NewTemplate creates a new template builder with the given id and
// display name.
func NewTemplate(id, name string) *TemplateBuilder {
	return &TemplateBuilder{
		tpl: api.Template{
			ID:     id,
			Name:   name,
			Active: true,
			Steps:  make([]api.Step, 0),
		},
	}
}

// ID returns the template id.
func (b *TemplateBuilder) ID() string {
	return b.tpl.ID
}

// Definition returns the built Template.
// Typically used when interacting with lower-level APIs.
func (b *TemplateBuilder) Definition() Template {
	return b.tpl
}

// Type sets the template's document type tag.
func (b *TemplateBuilder) Type(docType string) *TemplateBuilder {
	b.tpl.Type = docType
	return b
}

// DefaultSLA sets the template-level deadline, in hours, applied when
// the first step carries no SLA of its own.
func (b *TemplateBuilder) DefaultSLA(hours int) *TemplateBuilder {
	b.tpl.DefaultSLAHours = hours
	return b
}

// Inactive marks the template as not startable. Registered inactive
// templates can still be inspected but Start rejects them.
func (b *TemplateBuilder) Inactive() *TemplateBuilder {
	b.tpl.Active = false
	return b
}

func (b *TemplateBuilder) addStep(name string, stepType api.StepType, policy api.ApprovalPolicy) *TemplateBuilder {
	if name == "" {
		panic("approvo: step name must not be empty")
	}
	b.tpl.Steps = append(b.tpl.Steps, api.Step{
		Order:    len(b.tpl.Steps) + 1,
		Name:     name,
		Type:     stepType,
		Policy:   policy,
		Required: true,
	})
	return b
}

func (b *TemplateBuilder) last() *api.Step {
	if len(b.tpl.Steps) == 0 {
		panic("approvo: no step to modify; add a step first")
	}
	return &b.tpl.Steps[len(b.tpl.Steps)-1]
}

// ApprovalStep appends an APPROVAL step with the given policy.
func (b *TemplateBuilder) ApprovalStep(name string, policy ApprovalPolicy) *TemplateBuilder {
	return b.addStep(name, api.StepApproval, policy)
}

// ReviewStep appends a REVIEW step with the given policy.
func (b *TemplateBuilder) ReviewStep(name string, policy ApprovalPolicy) *TemplateBuilder {
	return b.addStep(name, api.StepReview, policy)
}

// NotificationStep appends a NOTIFICATION step. Notification steps
// create no tasks and complete as soon as they are reached.
func (b *TemplateBuilder) NotificationStep(name string) *TemplateBuilder {
	return b.addStep(name, api.StepNotification, api.PolicyAny)
}

// Assign adds direct assignees to the most recent step.
func (b *TemplateBuilder) Assign(assignees ...PrincipalID) *TemplateBuilder {
	s := b.last()
	s.Assignees = append(s.Assignees, assignees...)
	return b
}

// ForRole adds roles to the most recent step. Role members are resolved
// through the engine's RoleDirectory when the step starts.
func (b *TemplateBuilder) ForRole(roles ...Role) *TemplateBuilder {
	s := b.last()
	s.Roles = append(s.Roles, roles...)
	return b
}

// Quorum sets the required-approvals count on the most recent step.
// Only meaningful with PolicyQuorum.
func (b *TemplateBuilder) Quorum(n int) *TemplateBuilder {
	if n < 1 {
		panic(fmt.Sprintf("approvo: quorum must be at least 1, got %d", n))
	}
	b.last().RequiredApprovals = n
	return b
}

// SLA sets the most recent step's deadline, in hours.
func (b *TemplateBuilder) SLA(hours int) *TemplateBuilder {
	b.last().SLAHours = hours
	return b
}

// Optional marks the most recent step as non-required. A rejection on an
// optional step does not terminate the instance, and an optional step
// with no approvers is skipped instead of failing the instance.
func (b *TemplateBuilder) Optional() *TemplateBuilder {
	b.last().Required = false
	return b
}

// AutoApproveWhen sets a condition under which the most recent step is
// skipped without creating tasks. The step must be optional; required
// steps always run.
func (b *TemplateBuilder) AutoApproveWhen(cond ConditionFunc) *TemplateBuilder {
	if cond == nil {
		panic("approvo: nil auto-approve condition")
	}
	b.last().AutoApprove = cond
	return b
}

// Register registers the built template with the given engine.
func (b *TemplateBuilder) Register(eng Engine) error {
	return eng.RegisterTemplate(b.tpl)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *TemplateBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
