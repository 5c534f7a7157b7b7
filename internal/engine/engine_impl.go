package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/approvo/internal/persistence"
	"github.com/petrijr/approvo/pkg/api"
	"github.com/petrijr/approvo/pkg/policy"
)

// engineImpl is the synchronous orchestrator. It has no private thread
// model: every operation runs on the caller's goroutine, and correctness
// under concurrent callers comes from the stores' conditional writes.
type engineImpl struct {
	stores   persistence.Persistence
	clock    api.Clock
	notifier api.Notifier
	resolver Resolver

	// onStuckStep receives diagnostics for steps that can never reach
	// quorum. The instance stays IN_PROGRESS; this is an operator signal.
	onStuckStep func(api.StuckStepDiagnostic)
}

var _ api.Engine = (*engineImpl)(nil)

// Config describes how to construct an engine.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence persistence.Persistence

	// Roles resolves role-based approver assignments. Optional when all
	// steps use direct assignees only.
	Roles api.RoleDirectory

	Clock       api.Clock
	Notifier    api.Notifier
	OnStuckStep func(api.StuckStepDiagnostic)
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = api.SystemClock()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = api.NoopNotifier{}
	}
	onStuck := cfg.OnStuckStep
	if onStuck == nil {
		onStuck = func(d api.StuckStepDiagnostic) {
			slog.Warn("stuck step detected", slog.String("diagnostic", d.String()))
		}
	}
	return &engineImpl{
		stores:      cfg.Persistence,
		clock:       clock,
		notifier:    notifier,
		resolver:    Resolver{Directory: cfg.Roles},
		onStuckStep: onStuck,
	}
}

// NewEngine returns an Engine backed by the given stores with default
// clock and notifier.
func NewEngine(p persistence.Persistence) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p})
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Templates: mem,
		Instances: mem,
		Tasks:     mem,
		History:   mem,
	})
}

// NewSQLiteEngine returns an Engine that persists instances, tasks and
// history in a SQLite database. Template definitions carry condition
// functions and remain in-memory; re-register them on process start.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(persistence.Persistence{
		Templates: persistence.NewInMemoryStore(),
		Instances: store,
		Tasks:     store,
		History:   store,
	}), nil
}

// NewPostgresEngine returns an Engine that persists instances, tasks and
// history in PostgreSQL. Templates remain in-memory, just like SQLite.
func NewPostgresEngine(db *sql.DB) (api.Engine, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(persistence.Persistence{
		Templates: persistence.NewInMemoryStore(),
		Instances: store,
		Tasks:     store,
		History:   store,
	}), nil
}

// NewRedisEngine creates an engine that uses Redis for instance
// persistence. Tasks and history stay in the in-memory store; swap in
// the SQLite or Postgres stores for a durable pairing.
func NewRedisEngine(client *redis.Client) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Templates: mem,
		Instances: persistence.NewRedisInstanceStore(client, "approvo:"),
		Tasks:     mem,
		History:   mem,
	})
}

func (e *engineImpl) RegisterTemplate(tpl api.Template) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	if err := e.stores.Templates.SaveTemplate(tpl); err != nil {
		if errors.Is(err, persistence.ErrTemplateExists) {
			return fmt.Errorf("template already registered: %s", tpl.ID)
		}
		return err
	}
	return nil
}

func validateTemplate(tpl api.Template) error {
	if tpl.ID == "" {
		return errors.New("template id is required")
	}
	if tpl.Name == "" {
		return errors.New("template name is required")
	}
	if len(tpl.Steps) == 0 {
		return errors.New("template must have at least one step")
	}
	for i, s := range tpl.Steps {
		if s.Order != i+1 {
			return fmt.Errorf("template %s: step orders must be contiguous starting at 1, got %d at position %d", tpl.ID, s.Order, i)
		}
		if s.Name == "" {
			return fmt.Errorf("template %s: step %d has no name", tpl.ID, s.Order)
		}
	}
	return nil
}

func (e *engineImpl) Template(id string) (api.Template, error) {
	tpl, err := e.stores.Templates.GetTemplate(id)
	if err != nil {
		if errors.Is(err, persistence.ErrTemplateNotFound) {
			return api.Template{}, fmt.Errorf("template %s: %w", id, api.ErrNotFound)
		}
		return api.Template{}, err
	}
	return tpl, nil
}

func (e *engineImpl) Start(ctx context.Context, req api.StartRequest) (*api.Instance, error) {
	tpl, err := e.Template(req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, fmt.Errorf("template %s is inactive: %w", tpl.ID, api.ErrInvalidTransition)
	}

	now := e.clock.Now()
	priority := req.Priority
	if priority == "" {
		priority = api.PriorityNormal
	}

	inst := &api.Instance{
		ID:          uuid.NewString(),
		TemplateID:  tpl.ID,
		Document:    req.Document,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      api.StatusInProgress,
		CurrentStep: 1,
		RequestedBy: req.RequestedBy,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The instance-level deadline comes from the first step's SLA
	// override when present, else the template default.
	firstStep := tpl.Steps[0]
	switch {
	case firstStep.SLAHours > 0:
		inst.DueAt = now.Add(hours(firstStep.SLAHours))
	case tpl.DefaultSLAHours > 0:
		inst.DueAt = now.Add(hours(tpl.DefaultSLAHours))
	}

	if err := e.stores.Instances.SaveInstance(ctx, inst); err != nil {
		return nil, err
	}

	e.appendHistory(ctx, inst.ID, api.HistoryStarted, 0, "instance started", req.RequestedBy)
	e.notify(ctx, inst.ID, api.EventStarted, 0, nil)

	if err := e.runFromCurrentStep(ctx, inst, tpl); err != nil {
		return inst, err
	}
	return inst, nil
}

// runFromCurrentStep drives the instance from its current step until
// tasks are created, a terminal status is reached, or the template runs
// out of steps (approval). Steps that need no tasks (notifications,
// auto-approved or approver-less non-required steps) are passed through
// in the same call.
func (e *engineImpl) runFromCurrentStep(ctx context.Context, inst *api.Instance, tpl api.Template) error {
	for {
		step, ok := tpl.StepAt(inst.CurrentStep)
		if !ok {
			return e.finalizeAs(ctx, inst, api.StatusApproved, api.HistoryApproved, api.EventApproved, "all steps satisfied", "")
		}

		e.appendHistory(ctx, inst.ID, api.HistoryStepStarted, step.Order,
			fmt.Sprintf("step %q started", step.Name), "")

		if step.Type == api.StepNotification {
			// Notification steps have nothing to approve; emit and move on.
			if err := e.completeStepAndAdvance(ctx, inst, step, "notification emitted"); err != nil {
				return err
			}
			continue
		}

		if !step.Required && step.AutoApprove != nil && step.AutoApprove(inst.Document) {
			if err := e.completeStepAndAdvance(ctx, inst, step, "auto-approve condition satisfied"); err != nil {
				return err
			}
			continue
		}

		approvers, err := e.resolveApprovers(step)
		if err != nil {
			return err
		}

		if len(approvers) == 0 {
			if step.Required {
				// Fail fast: a required step nobody can act on must not
				// leave the instance hanging.
				detail := fmt.Sprintf("no approvers available for required step %q", step.Name)
				if err := e.finalizeAs(ctx, inst, api.StatusRejected, api.HistoryRejected, api.EventRejected, detail, ""); err != nil {
					return err
				}
				return fmt.Errorf("step %d of instance %s: %w", step.Order, inst.ID, api.ErrNoApprovers)
			}
			if err := e.completeStepAndAdvance(ctx, inst, step, "no approvers for optional step"); err != nil {
				return err
			}
			continue
		}

		return e.createTasks(ctx, inst, step, approvers)
	}
}

// createTasks generates one task per resolved approver for the step.
func (e *engineImpl) createTasks(ctx context.Context, inst *api.Instance, step api.Step, approvers []api.PrincipalID) error {
	now := e.clock.Now()

	tasks := make([]*api.Task, 0, len(approvers))
	for _, p := range approvers {
		t := &api.Task{
			ID:         uuid.NewString(),
			InstanceID: inst.ID,
			StepOrder:  step.Order,
			Assignee:   p,
			Status:     api.TaskPending,
			CreatedAt:  now,
		}
		if step.SLAHours > 0 {
			t.DueAt = now.Add(hours(step.SLAHours))
		}
		tasks = append(tasks, t)
	}

	if err := e.stores.Tasks.SaveTasks(ctx, tasks); err != nil {
		return err
	}
	e.notify(ctx, inst.ID, api.EventStepStarted, step.Order, approvers)

	if d := policy.Diagnose(inst.ID, step, tasks); d != nil {
		e.onStuckStep(*d)
	}
	return nil
}

// completeStepAndAdvance records the step as completed and moves the
// instance to the next step. The caller continues the run loop.
func (e *engineImpl) completeStepAndAdvance(ctx context.Context, inst *api.Instance, step api.Step, detail string) error {
	e.appendHistory(ctx, inst.ID, api.HistoryStepCompleted, step.Order, detail, "")
	e.notify(ctx, inst.ID, api.EventStepCompleted, step.Order, nil)

	inst.CurrentStep = step.Order + 1
	inst.UpdatedAt = e.clock.Now()
	return e.updateInstance(ctx, inst)
}

// finalizeAs moves the instance to a terminal status, voids any open
// tasks and writes exactly one history row for the verdict.
func (e *engineImpl) finalizeAs(ctx context.Context, inst *api.Instance, status api.Status, action string, event api.EventType, detail string, actor api.PrincipalID) error {
	now := e.clock.Now()
	inst.Status = status
	inst.EndedAt = now
	inst.UpdatedAt = now

	if err := e.updateInstance(ctx, inst); err != nil {
		return err
	}
	if _, err := e.stores.Tasks.VoidPendingTasks(ctx, inst.ID); err != nil {
		return err
	}

	e.appendHistory(ctx, inst.ID, action, inst.CurrentStep, detail, actor)
	e.notify(ctx, inst.ID, event, inst.CurrentStep, nil)
	return nil
}

func (e *engineImpl) CompleteTask(ctx context.Context, taskID string, action api.TaskAction, comments string, actor api.PrincipalID) (*api.Task, error) {
	if action != api.ActionApprove && action != api.ActionReject {
		return nil, fmt.Errorf("unknown task action %q", action)
	}

	task, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Assignee != actor {
		return nil, fmt.Errorf("task %s is assigned to %s, not %s: %w",
			taskID, task.Assignee, actor, api.ErrInvalidTransition)
	}

	inst, err := e.GetInstance(ctx, task.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != api.StatusInProgress {
		return nil, fmt.Errorf("instance %s is %s: %w", inst.ID, inst.Status, api.ErrInvalidTransition)
	}

	// Conditional write: exactly one caller wins the PENDING->COMPLETED
	// transition.
	completed, err := e.stores.Tasks.CompleteTask(ctx, taskID, action, comments, actor, e.clock.Now())
	if err != nil {
		if errors.Is(err, persistence.ErrTaskNotPending) {
			return nil, fmt.Errorf("task %s is not pending: %w", taskID, api.ErrInvalidTransition)
		}
		if errors.Is(err, persistence.ErrTaskNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID, api.ErrNotFound)
		}
		return nil, err
	}

	if err := e.onTaskCompleted(ctx, inst, completed); err != nil {
		return completed, err
	}
	return completed, nil
}

// onTaskCompleted resolves the current step after a task verdict and
// advances or finalizes the instance. Concurrent resolutions are settled
// by the version check in updateInstance: exactly one caller performs a
// given step-advance, the rest get ErrConcurrentModification and must
// re-read (their task verdicts are already recorded).
func (e *engineImpl) onTaskCompleted(ctx context.Context, inst *api.Instance, task *api.Task) error {
	tpl, err := e.Template(inst.TemplateID)
	if err != nil {
		return err
	}
	step, ok := tpl.StepAt(inst.CurrentStep)
	if !ok {
		return fmt.Errorf("instance %s references unknown step %d of template %s",
			inst.ID, inst.CurrentStep, tpl.ID)
	}

	tasks, err := e.stores.Tasks.ListTasksByStep(ctx, inst.ID, step.Order)
	if err != nil {
		return err
	}

	switch policy.Evaluate(step, tasks, inst.Document) {
	case policy.Rejected:
		detail := fmt.Sprintf("step %q rejected by %s", step.Name, task.CompletedBy)
		return e.finalizeAs(ctx, inst, api.StatusRejected, api.HistoryRejected, api.EventRejected, detail, task.CompletedBy)

	case policy.Satisfied:
		if _, hasNext := tpl.StepAt(step.Order + 1); !hasNext {
			// Satisfying the last step is the approval itself; no
			// separate STEP_COMPLETED row is written for it.
			detail := fmt.Sprintf("final step %q satisfied", step.Name)
			return e.finalizeAs(ctx, inst, api.StatusApproved, api.HistoryApproved, api.EventApproved, detail, task.CompletedBy)
		}

		// Win the version check before touching tasks or history, as
		// finalizeAs does. A losing concurrent caller returns here with
		// ErrConcurrentModification having changed nothing.
		inst.CurrentStep = step.Order + 1
		inst.UpdatedAt = e.clock.Now()
		if err := e.updateInstance(ctx, inst); err != nil {
			return err
		}

		// Obligations of the satisfied step that are still open are no
		// longer needed.
		if _, err := e.stores.Tasks.VoidPendingTasks(ctx, inst.ID); err != nil {
			return err
		}

		e.appendHistory(ctx, inst.ID, api.HistoryStepCompleted, step.Order,
			fmt.Sprintf("step %q satisfied", step.Name), task.CompletedBy)
		e.notify(ctx, inst.ID, api.EventStepCompleted, step.Order, nil)

		return e.runFromCurrentStep(ctx, inst, tpl)

	default:
		// Step still pending; nothing to transition. Surface a stuck-step
		// diagnostic if quorum has become unreachable.
		if d := policy.Diagnose(inst.ID, step, tasks); d != nil {
			e.onStuckStep(*d)
		}
		return nil
	}
}

func (e *engineImpl) ReassignTask(ctx context.Context, taskID string, newAssignee api.PrincipalID, reason string, actor api.PrincipalID) (*api.Task, error) {
	if newAssignee == "" {
		return nil, errors.New("new assignee is required")
	}

	task, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := e.stores.Tasks.ReassignTask(ctx, taskID, newAssignee)
	if err != nil {
		if errors.Is(err, persistence.ErrTaskNotPending) {
			return nil, fmt.Errorf("task %s is not pending: %w", taskID, api.ErrInvalidTransition)
		}
		if errors.Is(err, persistence.ErrTaskNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID, api.ErrNotFound)
		}
		return nil, err
	}

	detail := fmt.Sprintf("task reassigned from %s to %s", task.Assignee, newAssignee)
	if reason != "" {
		detail += ": " + reason
	}
	e.appendHistory(ctx, task.InstanceID, api.HistoryTaskReassigned, task.StepOrder, detail, actor)
	e.notify(ctx, task.InstanceID, api.EventTaskReassigned, task.StepOrder, []api.PrincipalID{newAssignee})
	return updated, nil
}

func (e *engineImpl) Cancel(ctx context.Context, instanceID, reason string, actor api.PrincipalID) (*api.Instance, error) {
	inst, err := e.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	switch inst.Status {
	case api.StatusPending, api.StatusInProgress, api.StatusOnHold:
	default:
		return nil, fmt.Errorf("cannot cancel instance %s in status %s: %w",
			instanceID, inst.Status, api.ErrInvalidTransition)
	}

	detail := "instance cancelled"
	if reason != "" {
		detail += ": " + reason
	}
	if err := e.finalizeAs(ctx, inst, api.StatusCancelled, api.HistoryCancelled, api.EventCancelled, detail, actor); err != nil {
		return nil, err
	}
	return inst, nil
}

func (e *engineImpl) Hold(ctx context.Context, instanceID string, actor api.PrincipalID) (*api.Instance, error) {
	return e.flipHold(ctx, instanceID, actor,
		api.StatusInProgress, api.StatusOnHold, api.HistoryOnHold, api.EventOnHold)
}

func (e *engineImpl) Resume(ctx context.Context, instanceID string, actor api.PrincipalID) (*api.Instance, error) {
	return e.flipHold(ctx, instanceID, actor,
		api.StatusOnHold, api.StatusInProgress, api.HistoryResumed, api.EventResumed)
}

// flipHold toggles between IN_PROGRESS and ON_HOLD without touching the
// current step or any open task.
func (e *engineImpl) flipHold(ctx context.Context, instanceID string, actor api.PrincipalID, from, to api.Status, action string, event api.EventType) (*api.Instance, error) {
	inst, err := e.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != from {
		return nil, fmt.Errorf("cannot move instance %s from %s to %s: %w",
			instanceID, inst.Status, to, api.ErrInvalidTransition)
	}

	inst.Status = to
	inst.UpdatedAt = e.clock.Now()
	if err := e.updateInstance(ctx, inst); err != nil {
		return nil, err
	}

	e.appendHistory(ctx, inst.ID, action, inst.CurrentStep, "", actor)
	e.notify(ctx, inst.ID, event, inst.CurrentStep, nil)
	return inst, nil
}

func (e *engineImpl) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	inst, err := e.stores.Instances.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, fmt.Errorf("instance %s: %w", id, api.ErrNotFound)
		}
		return nil, err
	}
	return inst, nil
}

func (e *engineImpl) GetInstanceDetail(ctx context.Context, id string) (*api.InstanceDetail, error) {
	inst, err := e.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := e.stores.Tasks.ListTasksByInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := e.stores.History.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &api.InstanceDetail{
		Instance: inst,
		Tasks:    tasks,
		History:  history,
	}, nil
}

func (e *engineImpl) ListInstances(ctx context.Context, opts api.ListOptions) ([]*api.Instance, error) {
	return e.stores.Instances.ListInstances(ctx, persistence.InstanceFilter{
		TemplateID:  opts.TemplateID,
		Status:      opts.Status,
		Search:      opts.Search,
		RequestedBy: opts.RequestedBy,
		Offset:      opts.Offset,
		Limit:       opts.Limit,
	})
}

// ListMine joins pending tasks to their instances by id. The join lives
// here rather than in the stores so every backend combination supports
// it.
func (e *engineImpl) ListMine(ctx context.Context, principal api.PrincipalID, opts api.ListOptions) ([]*api.Instance, error) {
	tasks, err := e.stores.Tasks.ListPendingByAssignee(ctx, principal)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []*api.Instance
	for _, t := range tasks {
		if seen[t.InstanceID] {
			continue
		}
		seen[t.InstanceID] = true

		inst, err := e.GetInstance(ctx, t.InstanceID)
		if err != nil {
			return nil, err
		}
		if opts.Status != "" && inst.Status != opts.Status {
			continue
		}
		if opts.Search != "" && !containsFold(inst.Title, opts.Search) {
			continue
		}
		out = append(out, inst)
	}

	sortInstancesNewestFirst(out)
	return page(out, opts.Offset, opts.Limit), nil
}

func (e *engineImpl) History(ctx context.Context, instanceID string) ([]api.HistoryEntry, error) {
	if _, err := e.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	return e.stores.History.ListHistory(ctx, instanceID)
}

func (e *engineImpl) SweepOverdue(ctx context.Context) (int, error) {
	now := e.clock.Now()

	candidates, err := e.stores.Instances.ListInstances(ctx, persistence.InstanceFilter{
		Status: api.StatusInProgress,
	})
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, inst := range candidates {
		if !inst.Overdue(now) {
			continue
		}

		inst.Status = api.StatusExpired
		inst.EndedAt = now
		inst.UpdatedAt = now
		if err := e.stores.Instances.UpdateInstance(ctx, inst); err != nil {
			if errors.Is(err, persistence.ErrVersionConflict) {
				// A concurrent action (or another sweep) won; that state
				// is authoritative.
				continue
			}
			return flipped, err
		}

		if _, err := e.stores.Tasks.VoidPendingTasks(ctx, inst.ID); err != nil {
			return flipped, err
		}
		e.appendHistory(ctx, inst.ID, api.HistoryExpired, inst.CurrentStep,
			fmt.Sprintf("due date %s passed", inst.DueAt.Format("2006-01-02 15:04:05")), "")
		e.notify(ctx, inst.ID, api.EventExpired, inst.CurrentStep, nil)
		flipped++
	}
	return flipped, nil
}

func (e *engineImpl) getTask(ctx context.Context, id string) (*api.Task, error) {
	t, err := e.stores.Tasks.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrTaskNotFound) {
			return nil, fmt.Errorf("task %s: %w", id, api.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (e *engineImpl) updateInstance(ctx context.Context, inst *api.Instance) error {
	err := e.stores.Instances.UpdateInstance(ctx, inst)
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrVersionConflict) {
		return fmt.Errorf("instance %s: %w", inst.ID, api.ErrConcurrentModification)
	}
	if errors.Is(err, persistence.ErrInstanceNotFound) {
		return fmt.Errorf("instance %s: %w", inst.ID, api.ErrNotFound)
	}
	return err
}

func (e *engineImpl) appendHistory(ctx context.Context, instanceID, action string, stepOrder int, details string, performedBy api.PrincipalID) {
	// History writes are deliberately non-fatal: a failed audit append
	// must not roll back a committed transition. The entry is logged so
	// operators can reconcile.
	err := e.stores.History.AppendHistory(ctx, api.HistoryEntry{
		InstanceID:  instanceID,
		Action:      action,
		StepOrder:   stepOrder,
		Details:     details,
		PerformedBy: performedBy,
		At:          e.clock.Now(),
	})
	if err != nil {
		slog.Error("history append failed",
			slog.String("instance_id", instanceID),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

func (e *engineImpl) notify(ctx context.Context, instanceID string, event api.EventType, stepOrder int, recipients []api.PrincipalID) {
	e.notifier.Notify(ctx, api.Event{
		InstanceID: instanceID,
		Type:       event,
		StepOrder:  stepOrder,
		Recipients: recipients,
	})
}

func hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortInstancesNewestFirst(in []*api.Instance) {
	sort.Slice(in, func(i, j int) bool {
		if in[i].CreatedAt.Equal(in[j].CreatedAt) {
			return in[i].ID < in[j].ID
		}
		return in[i].CreatedAt.After(in[j].CreatedAt)
	})
}

func page(in []*api.Instance, offset, limit int) []*api.Instance {
	if offset >= len(in) {
		return nil
	}
	out := in[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
