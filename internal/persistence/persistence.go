package persistence

// Persistence bundles the store interfaces so the engine can depend on a
// single abstraction and backends can be mixed (for example Redis
// instances with in-memory tasks and history).
type Persistence struct {
	Templates TemplateStore
	Instances InstanceStore
	Tasks     TaskStore
	History   HistoryStore
}
