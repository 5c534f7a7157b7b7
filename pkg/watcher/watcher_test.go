package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/approvo/internal/engine"
	"github.com/petrijr/approvo/internal/persistence"
	"github.com/petrijr/approvo/pkg/api"
)

// manualClock is a Clock whose current time only moves when the test
// advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, clock api.Clock) api.Engine {
	t.Helper()
	mem := persistence.NewInMemoryStore()
	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.Persistence{
			Templates: mem,
			Instances: mem,
			Tasks:     mem,
			History:   mem,
		},
		Clock: clock,
	})
}

func registerAndStart(t *testing.T, eng api.Engine, slaHours int) *api.Instance {
	t.Helper()
	ctx := context.Background()

	tpl := api.Template{
		ID:     "expense-claim",
		Name:   "Expense claim",
		Type:   "expense",
		Active: true,
		Steps: []api.Step{
			{
				Order:     1,
				Name:      "manager approval",
				Type:      api.StepApproval,
				Policy:    api.PolicyAny,
				Required:  true,
				SLAHours:  slaHours,
				Assignees: []api.PrincipalID{"manager-1"},
			},
		},
	}
	require.NoError(t, eng.RegisterTemplate(tpl))

	inst, err := eng.Start(ctx, api.StartRequest{
		TemplateID:  tpl.ID,
		Document:    api.DocumentRef{ID: "doc-1"},
		Title:       "March travel",
		RequestedBy: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusInProgress, inst.Status)
	return inst
}

func TestWatcherSweepOnceExpiresOverdueInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	eng := newTestEngine(t, clock)
	inst := registerAndStart(t, eng, 24)

	w := New(eng)

	// Not yet overdue.
	expired, err := w.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, expired)

	clock.Advance(25 * time.Hour)

	expired, err = w.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	got, err := eng.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	require.Equal(t, api.StatusExpired, got.Status)

	// A second sweep over unchanged state is a no-op.
	expired, err = w.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, expired)
}

func TestWatcherRunSweepsUntilCancelled(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	eng := newTestEngine(t, clock)
	inst := registerAndStart(t, eng, 1)
	clock.Advance(2 * time.Hour)

	w := NewWithConfig(eng, Config{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the loop to pick up the overdue instance.
	deadline := time.After(5 * time.Second)
	for {
		got, err := eng.GetInstance(context.Background(), inst.ID)
		require.NoError(t, err)
		if got.Status == api.StatusExpired {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("instance %s never expired, status %s", inst.ID, got.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestWatcherConfigDefaults(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, api.SystemClock())
	w := NewWithConfig(eng, Config{})
	require.Equal(t, DefaultInterval, w.interval)
	require.NotNil(t, w.logger)
}
