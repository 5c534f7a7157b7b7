package engine

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/approvo/internal/persistence"
	"github.com/petrijr/approvo/pkg/api"
)

// Options carries the optional collaborators shared by every engine
// constructor. All fields may be left zero; missing collaborators get
// the same defaults as NewEngineWithConfig.
type Options struct {
	// Roles resolves role-based approver assignments.
	Roles api.RoleDirectory

	// Clock supplies the current time. Nil means the system clock.
	Clock api.Clock

	// Notifier receives lifecycle events. Nil means no notifications.
	Notifier api.Notifier

	// OnStuckStep is invoked when a step cannot ever satisfy its
	// approval policy. Nil means the condition is logged.
	OnStuckStep func(api.StuckStepDiagnostic)
}

func (o Options) config(p persistence.Persistence) Config {
	return Config{
		Persistence: p,
		Roles:       o.Roles,
		Clock:       o.Clock,
		Notifier:    o.Notifier,
		OnStuckStep: o.OnStuckStep,
	}
}

// NewInMemoryEngineWithOptions is NewInMemoryEngine with explicit
// collaborators.
func NewInMemoryEngineWithOptions(o Options) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(o.config(persistence.Persistence{
		Templates: mem,
		Instances: mem,
		Tasks:     mem,
		History:   mem,
	}))
}

// NewSQLiteEngineWithOptions is NewSQLiteEngine with explicit
// collaborators.
func NewSQLiteEngineWithOptions(db *sql.DB, o Options) (api.Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(o.config(persistence.Persistence{
		Templates: persistence.NewInMemoryStore(),
		Instances: store,
		Tasks:     store,
		History:   store,
	})), nil
}

// NewPostgresEngineWithOptions is NewPostgresEngine with explicit
// collaborators.
func NewPostgresEngineWithOptions(db *sql.DB, o Options) (api.Engine, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(o.config(persistence.Persistence{
		Templates: persistence.NewInMemoryStore(),
		Instances: store,
		Tasks:     store,
		History:   store,
	})), nil
}

// NewRedisEngineWithOptions is NewRedisEngine with explicit
// collaborators.
func NewRedisEngineWithOptions(client *redis.Client, o Options) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(o.config(persistence.Persistence{
		Templates: mem,
		Instances: persistence.NewRedisInstanceStore(client, "approvo:"),
		Tasks:     mem,
		History:   mem,
	}))
}
