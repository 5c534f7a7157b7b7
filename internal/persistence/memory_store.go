package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/petrijr/approvo/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of every store
// interface, backed by maps. It is the default backend for tests and
// small in-process deployments.
//
// All reads and writes copy, so callers never share memory with the
// store; this is what makes the optimistic version check meaningful.
type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[string]api.Template
	instances map[string]*api.Instance
	tasks     map[string]*api.Task
	history   []api.HistoryEntry
	nextSeq   int64
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		templates: make(map[string]api.Template),
		instances: make(map[string]*api.Instance),
		tasks:     make(map[string]*api.Task),
	}
}

// Ensure InMemoryStore implements the interfaces.
var (
	_ TemplateStore = (*InMemoryStore)(nil)
	_ InstanceStore = (*InMemoryStore)(nil)
	_ TaskStore     = (*InMemoryStore)(nil)
	_ HistoryStore  = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) SaveTemplate(tpl api.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[tpl.ID]; ok {
		return ErrTemplateExists
	}
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *InMemoryStore) GetTemplate(id string) (api.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[id]
	if !ok {
		return api.Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *InMemoryStore) ListTemplates() ([]api.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) SaveInstance(ctx context.Context, inst *api.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *inst
	s.instances[inst.ID] = &copied
	return nil
}

func (s *InMemoryStore) UpdateInstance(ctx context.Context, inst *api.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[inst.ID]
	if !ok {
		return ErrInstanceNotFound
	}
	if stored.Version != inst.Version {
		return ErrVersionConflict
	}

	inst.Version++
	copied := *inst
	s.instances[inst.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	copied := *inst
	return &copied, nil
}

func (s *InMemoryStore) ListInstances(ctx context.Context, filter InstanceFilter) ([]*api.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Instance
	for _, inst := range s.instances {
		if !matchInstance(inst, filter) {
			continue
		}
		copied := *inst
		result = append(result, &copied)
	}

	// Newest first, stable across sweeps.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return pageInstances(result, filter.Offset, filter.Limit), nil
}

func matchInstance(inst *api.Instance, filter InstanceFilter) bool {
	if filter.TemplateID != "" && inst.TemplateID != filter.TemplateID {
		return false
	}
	if filter.Status != "" && inst.Status != filter.Status {
		return false
	}
	if filter.RequestedBy != "" && inst.RequestedBy != filter.RequestedBy {
		return false
	}
	if filter.Search != "" &&
		!strings.Contains(strings.ToLower(inst.Title), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

func pageInstances(in []*api.Instance, offset, limit int) []*api.Instance {
	if offset >= len(in) {
		return nil
	}
	out := in[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *InMemoryStore) SaveTasks(ctx context.Context, tasks []*api.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tasks {
		copied := *t
		s.tasks[t.ID] = &copied
	}
	return nil
}

func (s *InMemoryStore) GetTask(ctx context.Context, id string) (*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) ListTasksByInstance(ctx context.Context, instanceID string) ([]*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*api.Task
	for _, t := range s.tasks {
		if t.InstanceID == instanceID {
			copied := *t
			out = append(out, &copied)
		}
	}
	sortTasks(out)
	return out, nil
}

func (s *InMemoryStore) ListTasksByStep(ctx context.Context, instanceID string, stepOrder int) ([]*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*api.Task
	for _, t := range s.tasks {
		if t.InstanceID == instanceID && t.StepOrder == stepOrder {
			copied := *t
			out = append(out, &copied)
		}
	}
	sortTasks(out)
	return out, nil
}

func (s *InMemoryStore) ListPendingByAssignee(ctx context.Context, assignee api.PrincipalID) ([]*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*api.Task
	for _, t := range s.tasks {
		if t.Assignee == assignee && t.Status == api.TaskPending {
			copied := *t
			out = append(out, &copied)
		}
	}
	sortTasks(out)
	return out, nil
}

func sortTasks(tasks []*api.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StepOrder != tasks[j].StepOrder {
			return tasks[i].StepOrder < tasks[j].StepOrder
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func (s *InMemoryStore) CompleteTask(ctx context.Context, id string, action api.TaskAction, comments string, actor api.PrincipalID, at time.Time) (*api.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Status != api.TaskPending {
		return nil, ErrTaskNotPending
	}

	t.Status = api.TaskCompleted
	t.Action = action
	t.Comments = comments
	t.CompletedBy = actor
	t.CompletedAt = at

	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) ReassignTask(ctx context.Context, id string, newAssignee api.PrincipalID) (*api.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Status != api.TaskPending {
		return nil, ErrTaskNotPending
	}

	t.Assignee = newAssignee
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) VoidPendingTasks(ctx context.Context, instanceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voided := 0
	for _, t := range s.tasks {
		if t.InstanceID == instanceID && t.Status == api.TaskPending {
			t.Status = api.TaskVoid
			voided++
		}
	}
	return voided, nil
}

func (s *InMemoryStore) AppendHistory(ctx context.Context, entry api.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	entry.Seq = s.nextSeq
	s.history = append(s.history, entry)
	return nil
}

func (s *InMemoryStore) ListHistory(ctx context.Context, instanceID string) ([]api.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.HistoryEntry
	for _, e := range s.history {
		if e.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}
