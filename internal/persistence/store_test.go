package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petrijr/approvo/pkg/api"
)

// bundle groups the interfaces one backend provides, so the same
// conformance checks run against every implementation.
type bundle struct {
	instances InstanceStore
	tasks     TaskStore
	history   HistoryStore
}

type bundleFactory func(t *testing.T) bundle

func memoryBundle(t *testing.T) bundle {
	t.Helper()
	mem := NewInMemoryStore()
	return bundle{instances: mem, tasks: mem, history: mem}
}

func sqliteBundle(t *testing.T) bundle {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return bundle{instances: store, tasks: store, history: store}
}

func backends() map[string]bundleFactory {
	return map[string]bundleFactory{
		"memory": memoryBundle,
		"sqlite": sqliteBundle,
	}
}

func sampleInstance(id string, created time.Time) *api.Instance {
	return &api.Instance{
		ID:         id,
		TemplateID: "tpl-1",
		Document: api.DocumentRef{
			ID:         "doc-" + id,
			Attributes: map[string]string{"amount": "4200", "currency": "EUR"},
		},
		Title:       "Quarterly budget",
		Description: "Q2 planning",
		Priority:    api.PriorityNormal,
		Status:      api.StatusInProgress,
		CurrentStep: 1,
		RequestedBy: "alice",
		StartedAt:   created,
		DueAt:       created.Add(24 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestInstanceStore_SaveGetUpdate(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			inst := sampleInstance("inst-1", created)
			if err := b.instances.SaveInstance(ctx, inst); err != nil {
				t.Fatalf("SaveInstance failed: %v", err)
			}

			got, err := b.instances.GetInstance(ctx, "inst-1")
			if err != nil {
				t.Fatalf("GetInstance failed: %v", err)
			}
			if got.TemplateID != "tpl-1" || got.Status != api.StatusInProgress {
				t.Fatalf("unexpected instance: %+v", got)
			}
			// Attributes feed auto-approve conditions and must survive
			// the round-trip.
			if got.Document.Attributes["amount"] != "4200" || got.Document.Attributes["currency"] != "EUR" {
				t.Fatalf("document attributes lost in round-trip: %+v", got.Document)
			}
			if !got.DueAt.Equal(inst.DueAt) {
				t.Fatalf("expected DueAt %v, got %v", inst.DueAt, got.DueAt)
			}
			if !got.EndedAt.IsZero() {
				t.Fatalf("expected zero EndedAt, got %v", got.EndedAt)
			}

			got.Status = api.StatusOnHold
			got.UpdatedAt = created.Add(time.Hour)
			if err := b.instances.UpdateInstance(ctx, got); err != nil {
				t.Fatalf("UpdateInstance failed: %v", err)
			}
			if got.Version != 1 {
				t.Fatalf("expected version bump to 1, got %d", got.Version)
			}

			got2, err := b.instances.GetInstance(ctx, "inst-1")
			if err != nil {
				t.Fatalf("GetInstance after update failed: %v", err)
			}
			if got2.Status != api.StatusOnHold || got2.Version != 1 {
				t.Fatalf("update not persisted: %+v", got2)
			}
		})
	}
}

func TestInstanceStore_VersionConflict(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			if err := b.instances.SaveInstance(ctx, sampleInstance("inst-1", created)); err != nil {
				t.Fatalf("SaveInstance failed: %v", err)
			}

			first, _ := b.instances.GetInstance(ctx, "inst-1")
			second, _ := b.instances.GetInstance(ctx, "inst-1")

			first.Status = api.StatusOnHold
			if err := b.instances.UpdateInstance(ctx, first); err != nil {
				t.Fatalf("first UpdateInstance failed: %v", err)
			}

			second.Status = api.StatusCancelled
			err := b.instances.UpdateInstance(ctx, second)
			if !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			// The losing write changed nothing.
			got, _ := b.instances.GetInstance(ctx, "inst-1")
			if got.Status != api.StatusOnHold {
				t.Fatalf("expected ON_HOLD after losing write, got %s", got.Status)
			}

			err = b.instances.UpdateInstance(ctx, sampleInstance("ghost", created))
			if !errors.Is(err, ErrInstanceNotFound) {
				t.Fatalf("expected ErrInstanceNotFound, got %v", err)
			}
		})
	}
}

func TestInstanceStore_ListFilters(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			base := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			a := sampleInstance("inst-a", base)
			bb := sampleInstance("inst-b", base.Add(time.Minute))
			bb.Status = api.StatusApproved
			bb.Title = "Office chairs"
			bb.RequestedBy = "bob"
			c := sampleInstance("inst-c", base.Add(2*time.Minute))
			c.TemplateID = "tpl-2"

			for _, inst := range []*api.Instance{a, bb, c} {
				if err := b.instances.SaveInstance(ctx, inst); err != nil {
					t.Fatalf("SaveInstance failed: %v", err)
				}
			}

			all, err := b.instances.ListInstances(ctx, InstanceFilter{})
			if err != nil {
				t.Fatalf("ListInstances failed: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 instances, got %d", len(all))
			}
			// Newest first.
			if all[0].ID != "inst-c" || all[2].ID != "inst-a" {
				t.Fatalf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
			}

			byTemplate, _ := b.instances.ListInstances(ctx, InstanceFilter{TemplateID: "tpl-1"})
			if len(byTemplate) != 2 {
				t.Fatalf("expected 2 tpl-1 instances, got %d", len(byTemplate))
			}

			byStatus, _ := b.instances.ListInstances(ctx, InstanceFilter{Status: api.StatusApproved})
			if len(byStatus) != 1 || byStatus[0].ID != "inst-b" {
				t.Fatalf("status filter failed: %+v", byStatus)
			}

			byRequester, _ := b.instances.ListInstances(ctx, InstanceFilter{RequestedBy: "bob"})
			if len(byRequester) != 1 || byRequester[0].ID != "inst-b" {
				t.Fatalf("requester filter failed: %+v", byRequester)
			}

			bySearch, _ := b.instances.ListInstances(ctx, InstanceFilter{Search: "CHAIRS"})
			if len(bySearch) != 1 || bySearch[0].ID != "inst-b" {
				t.Fatalf("case-insensitive search failed: %+v", bySearch)
			}

			paged, _ := b.instances.ListInstances(ctx, InstanceFilter{Offset: 1, Limit: 1})
			if len(paged) != 1 || paged[0].ID != "inst-b" {
				t.Fatalf("paging failed: %+v", paged)
			}

			empty, _ := b.instances.ListInstances(ctx, InstanceFilter{Offset: 10})
			if len(empty) != 0 {
				t.Fatalf("expected empty page, got %d", len(empty))
			}
		})
	}
}

func sampleTasks(instanceID string, created time.Time) []*api.Task {
	return []*api.Task{
		{ID: "task-1", InstanceID: instanceID, StepOrder: 1, Assignee: "bob", Status: api.TaskPending, CreatedAt: created},
		{ID: "task-2", InstanceID: instanceID, StepOrder: 1, Assignee: "carol", Status: api.TaskPending, CreatedAt: created},
	}
}

func TestTaskStore_CompleteIsSingleWinner(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			if err := b.tasks.SaveTasks(ctx, sampleTasks("inst-1", created)); err != nil {
				t.Fatalf("SaveTasks failed: %v", err)
			}

			at := created.Add(time.Hour)
			done, err := b.tasks.CompleteTask(ctx, "task-1", api.ActionApprove, "ok", "bob", at)
			if err != nil {
				t.Fatalf("CompleteTask failed: %v", err)
			}
			if done.Status != api.TaskCompleted || done.Action != api.ActionApprove {
				t.Fatalf("unexpected completed task: %+v", done)
			}
			if done.CompletedBy != "bob" || !done.CompletedAt.Equal(at) {
				t.Fatalf("completion metadata missing: %+v", done)
			}

			// The second completion attempt loses.
			if _, err := b.tasks.CompleteTask(ctx, "task-1", api.ActionReject, "", "bob", at); !errors.Is(err, ErrTaskNotPending) {
				t.Fatalf("expected ErrTaskNotPending, got %v", err)
			}

			if _, err := b.tasks.CompleteTask(ctx, "ghost", api.ActionApprove, "", "bob", at); !errors.Is(err, ErrTaskNotFound) {
				t.Fatalf("expected ErrTaskNotFound, got %v", err)
			}
		})
	}
}

func TestTaskStore_ReassignAndVoid(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			if err := b.tasks.SaveTasks(ctx, sampleTasks("inst-1", created)); err != nil {
				t.Fatalf("SaveTasks failed: %v", err)
			}

			moved, err := b.tasks.ReassignTask(ctx, "task-1", "dave")
			if err != nil {
				t.Fatalf("ReassignTask failed: %v", err)
			}
			if moved.Assignee != "dave" {
				t.Fatalf("expected assignee dave, got %s", moved.Assignee)
			}

			pending, err := b.tasks.ListPendingByAssignee(ctx, "dave")
			if err != nil {
				t.Fatalf("ListPendingByAssignee failed: %v", err)
			}
			if len(pending) != 1 || pending[0].ID != "task-1" {
				t.Fatalf("expected task-1 pending for dave, got %+v", pending)
			}

			voided, err := b.tasks.VoidPendingTasks(ctx, "inst-1")
			if err != nil {
				t.Fatalf("VoidPendingTasks failed: %v", err)
			}
			if voided != 2 {
				t.Fatalf("expected 2 voided tasks, got %d", voided)
			}

			// Voiding again is a no-op, and void tasks resist reassignment.
			voided, _ = b.tasks.VoidPendingTasks(ctx, "inst-1")
			if voided != 0 {
				t.Fatalf("expected 0 on second void, got %d", voided)
			}
			if _, err := b.tasks.ReassignTask(ctx, "task-1", "erin"); !errors.Is(err, ErrTaskNotPending) {
				t.Fatalf("expected ErrTaskNotPending, got %v", err)
			}
		})
	}
}

func TestTaskStore_Listing(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			tasks := append(sampleTasks("inst-1", created),
				&api.Task{ID: "task-3", InstanceID: "inst-1", StepOrder: 2, Assignee: "bob", Status: api.TaskPending, CreatedAt: created},
				&api.Task{ID: "task-4", InstanceID: "inst-2", StepOrder: 1, Assignee: "bob", Status: api.TaskPending, CreatedAt: created},
			)
			if err := b.tasks.SaveTasks(ctx, tasks); err != nil {
				t.Fatalf("SaveTasks failed: %v", err)
			}

			byInstance, err := b.tasks.ListTasksByInstance(ctx, "inst-1")
			if err != nil {
				t.Fatalf("ListTasksByInstance failed: %v", err)
			}
			if len(byInstance) != 3 {
				t.Fatalf("expected 3 tasks, got %d", len(byInstance))
			}
			// Ordered by step, then id.
			if byInstance[0].ID != "task-1" || byInstance[2].ID != "task-3" {
				t.Fatalf("unexpected order: %+v", byInstance)
			}

			byStep, err := b.tasks.ListTasksByStep(ctx, "inst-1", 1)
			if err != nil {
				t.Fatalf("ListTasksByStep failed: %v", err)
			}
			if len(byStep) != 2 {
				t.Fatalf("expected 2 step-1 tasks, got %d", len(byStep))
			}

			forBob, err := b.tasks.ListPendingByAssignee(ctx, "bob")
			if err != nil {
				t.Fatalf("ListPendingByAssignee failed: %v", err)
			}
			if len(forBob) != 3 {
				t.Fatalf("expected 3 pending tasks for bob, got %d", len(forBob))
			}
		})
	}
}

func TestHistoryStore_AppendOnlyOrdering(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)

			at := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
			entries := []api.HistoryEntry{
				{InstanceID: "inst-1", Action: api.HistoryStarted, Details: "instance started", PerformedBy: "alice", At: at},
				{InstanceID: "inst-1", Action: api.HistoryStepStarted, StepOrder: 1, At: at},
				{InstanceID: "inst-2", Action: api.HistoryStarted, At: at.Add(time.Second)},
				{InstanceID: "inst-1", Action: api.HistoryApproved, StepOrder: 1, PerformedBy: "bob", At: at.Add(time.Minute)},
			}
			for _, e := range entries {
				if err := b.history.AppendHistory(ctx, e); err != nil {
					t.Fatalf("AppendHistory failed: %v", err)
				}
			}

			got, err := b.history.ListHistory(ctx, "inst-1")
			if err != nil {
				t.Fatalf("ListHistory failed: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(got))
			}
			want := []string{api.HistoryStarted, api.HistoryStepStarted, api.HistoryApproved}
			for i, e := range got {
				if e.Action != want[i] {
					t.Fatalf("position %d: expected %s, got %s", i, want[i], e.Action)
				}
			}
			// Same-timestamp entries keep insertion order via Seq.
			if got[0].Seq >= got[1].Seq {
				t.Fatalf("expected increasing seq, got %d then %d", got[0].Seq, got[1].Seq)
			}
			if got[0].PerformedBy != "alice" || got[2].PerformedBy != "bob" {
				t.Fatalf("performed_by not persisted: %+v", got)
			}

			none, err := b.history.ListHistory(ctx, "ghost")
			if err != nil {
				t.Fatalf("ListHistory for unknown instance failed: %v", err)
			}
			if len(none) != 0 {
				t.Fatalf("expected no entries, got %d", len(none))
			}
		})
	}
}

func TestTemplateStore_WriteOnce(t *testing.T) {
	mem := NewInMemoryStore()

	tpl := api.Template{ID: "tpl-1", Name: "One step", Steps: []api.Step{{Order: 1, Name: "only"}}}
	if err := mem.SaveTemplate(tpl); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	if err := mem.SaveTemplate(tpl); !errors.Is(err, ErrTemplateExists) {
		t.Fatalf("expected ErrTemplateExists, got %v", err)
	}

	got, err := mem.GetTemplate("tpl-1")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Name != "One step" || len(got.Steps) != 1 {
		t.Fatalf("unexpected template: %+v", got)
	}

	if _, err := mem.GetTemplate("ghost"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}

	all, err := mem.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 template, got %d", len(all))
	}
}
