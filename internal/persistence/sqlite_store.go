package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/petrijr/approvo/pkg/api"
)

// SQLiteStore implements InstanceStore, TaskStore and HistoryStore on a
// SQLite database.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Template definitions carry Go condition functions and therefore stay
// in-memory; pair this store with an InMemoryStore for templates.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the interfaces.
var (
	_ InstanceStore = (*SQLiteStore)(nil)
	_ TaskStore     = (*SQLiteStore)(nil)
	_ HistoryStore  = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS instances (
			id TEXT PRIMARY KEY,
			template_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			document_attrs TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			requested_by TEXT NOT NULL,
			started_at INTEGER NOT NULL DEFAULT 0,
			due_at INTEGER NOT NULL DEFAULT 0,
			ended_at INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_instances_status ON instances(status);

		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			instance_id TEXT NOT NULL,
			step_order INTEGER NOT NULL,
			assignee TEXT NOT NULL,
			status TEXT NOT NULL,
			action TEXT NOT NULL DEFAULT '',
			comments TEXT NOT NULL DEFAULT '',
			completed_by TEXT NOT NULL DEFAULT '',
			completed_at INTEGER NOT NULL DEFAULT 0,
			due_at INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_instance ON tasks(instance_id, step_order);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee, status);

		CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			action TEXT NOT NULL,
			step_order INTEGER NOT NULL DEFAULT 0,
			details TEXT NOT NULL DEFAULT '',
			performed_by TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_instance ON history(instance_id, at, seq);
	`)
	return err
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Document attributes feed step auto-approve conditions and must survive
// the round-trip through storage. An empty string means no attributes.
func encodeAttrs(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttrs(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (s *SQLiteStore) SaveInstance(ctx context.Context, inst *api.Instance) error {
	attrs, err := encodeAttrs(inst.Document.Attributes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (
			id, template_id, document_id, document_attrs, title, description, priority,
			status, current_step, requested_by,
			started_at, due_at, ended_at, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID,
		inst.TemplateID,
		inst.Document.ID,
		attrs,
		inst.Title,
		inst.Description,
		string(inst.Priority),
		string(inst.Status),
		inst.CurrentStep,
		string(inst.RequestedBy),
		encodeTime(inst.StartedAt),
		encodeTime(inst.DueAt),
		encodeTime(inst.EndedAt),
		encodeTime(inst.CreatedAt),
		encodeTime(inst.UpdatedAt),
		inst.Version,
	)
	return err
}

func (s *SQLiteStore) UpdateInstance(ctx context.Context, inst *api.Instance) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instances
		SET status = ?, current_step = ?, title = ?, description = ?, priority = ?,
		    started_at = ?, due_at = ?, ended_at = ?, updated_at = ?,
		    version = version + 1
		WHERE id = ? AND version = ?`,
		string(inst.Status),
		inst.CurrentStep,
		inst.Title,
		inst.Description,
		string(inst.Priority),
		encodeTime(inst.StartedAt),
		encodeTime(inst.DueAt),
		encodeTime(inst.EndedAt),
		encodeTime(inst.UpdatedAt),
		inst.ID,
		inst.Version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing row from a stale version.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM instances WHERE id = ?`, inst.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInstanceNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}

	inst.Version++
	return nil
}

const instanceColumns = `
	id, template_id, document_id, document_attrs, title, description, priority,
	status, current_step, requested_by,
	started_at, due_at, ended_at, created_at, updated_at, version`

func scanInstance(row interface{ Scan(...any) error }) (*api.Instance, error) {
	var (
		inst                api.Instance
		docID, docAttrs     string
		priority, status    string
		requestedBy         string
		started, due, ended int64
		created, updated    int64
	)
	if err := row.Scan(
		&inst.ID, &inst.TemplateID, &docID, &docAttrs, &inst.Title, &inst.Description, &priority,
		&status, &inst.CurrentStep, &requestedBy,
		&started, &due, &ended, &created, &updated, &inst.Version,
	); err != nil {
		return nil, err
	}

	attrs, err := decodeAttrs(docAttrs)
	if err != nil {
		return nil, err
	}
	inst.Document = api.DocumentRef{ID: docID, Attributes: attrs}
	inst.Priority = api.Priority(priority)
	inst.Status = api.Status(status)
	inst.RequestedBy = api.PrincipalID(requestedBy)
	inst.StartedAt = decodeTime(started)
	inst.DueAt = decodeTime(due)
	inst.EndedAt = decodeTime(ended)
	inst.CreatedAt = decodeTime(created)
	inst.UpdatedAt = decodeTime(updated)
	return &inst, nil
}

func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)

	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *SQLiteStore) ListInstances(ctx context.Context, filter InstanceFilter) ([]*api.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	var clauses []string

	if filter.TemplateID != "" {
		clauses = append(clauses, "template_id = ?")
		args = append(args, filter.TemplateID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.RequestedBy != "" {
		clauses = append(clauses, "requested_by = ?")
		args = append(args, string(filter.RequestedBy))
	}
	if filter.Search != "" {
		clauses = append(clauses, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*api.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func (s *SQLiteStore) SaveTasks(ctx context.Context, tasks []*api.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, instance_id, step_order, assignee, status, action,
				comments, completed_by, completed_at, due_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID,
			t.InstanceID,
			t.StepOrder,
			string(t.Assignee),
			string(t.Status),
			string(t.Action),
			t.Comments,
			string(t.CompletedBy),
			encodeTime(t.CompletedAt),
			encodeTime(t.DueAt),
			encodeTime(t.CreatedAt),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const taskColumns = `
	id, instance_id, step_order, assignee, status, action,
	comments, completed_by, completed_at, due_at, created_at`

func scanTask(row interface{ Scan(...any) error }) (*api.Task, error) {
	var (
		t                         api.Task
		assignee, status, action  string
		completedBy               string
		completedAt, due, created int64
	)
	if err := row.Scan(
		&t.ID, &t.InstanceID, &t.StepOrder, &assignee, &status, &action,
		&t.Comments, &completedBy, &completedAt, &due, &created,
	); err != nil {
		return nil, err
	}
	t.Assignee = api.PrincipalID(assignee)
	t.Status = api.TaskStatus(status)
	t.Action = api.TaskAction(action)
	t.CompletedBy = api.PrincipalID(completedBy)
	t.CompletedAt = decodeTime(completedAt)
	t.DueAt = decodeTime(due)
	t.CreatedAt = decodeTime(created)
	return &t, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*api.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SQLiteStore) listTasks(ctx context.Context, where string, args ...any) ([]*api.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY step_order ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*api.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListTasksByInstance(ctx context.Context, instanceID string) ([]*api.Task, error) {
	return s.listTasks(ctx, "instance_id = ?", instanceID)
}

func (s *SQLiteStore) ListTasksByStep(ctx context.Context, instanceID string, stepOrder int) ([]*api.Task, error) {
	return s.listTasks(ctx, "instance_id = ? AND step_order = ?", instanceID, stepOrder)
}

func (s *SQLiteStore) ListPendingByAssignee(ctx context.Context, assignee api.PrincipalID) ([]*api.Task, error) {
	return s.listTasks(ctx, "assignee = ? AND status = ?", string(assignee), string(api.TaskPending))
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, id string, action api.TaskAction, comments string, actor api.PrincipalID, at time.Time) (*api.Task, error) {
	// The status guard in the WHERE clause is what makes completion a
	// single-winner transition under concurrency.
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, action = ?, comments = ?, completed_by = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(api.TaskCompleted),
		string(action),
		comments,
		string(actor),
		encodeTime(at),
		id,
		string(api.TaskPending),
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrTaskNotPending
	}
	return s.GetTask(ctx, id)
}

func (s *SQLiteStore) ReassignTask(ctx context.Context, id string, newAssignee api.PrincipalID) (*api.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assignee = ? WHERE id = ? AND status = ?`,
		string(newAssignee), id, string(api.TaskPending),
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrTaskNotPending
	}
	return s.GetTask(ctx, id)
}

func (s *SQLiteStore) VoidPendingTasks(ctx context.Context, instanceID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ? WHERE instance_id = ? AND status = ?`,
		string(api.TaskVoid), instanceID, string(api.TaskPending),
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, entry api.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (instance_id, action, step_order, details, performed_by, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.InstanceID,
		entry.Action,
		entry.StepOrder,
		entry.Details,
		string(entry.PerformedBy),
		encodeTime(entry.At),
	)
	return err
}

func (s *SQLiteStore) ListHistory(ctx context.Context, instanceID string) ([]api.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, instance_id, action, step_order, details, performed_by, at
		FROM history
		WHERE instance_id = ?
		ORDER BY at ASC, seq ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.HistoryEntry
	for rows.Next() {
		var (
			e           api.HistoryEntry
			performedBy string
			at          int64
		)
		if err := rows.Scan(&e.Seq, &e.InstanceID, &e.Action, &e.StepOrder, &e.Details, &performedBy, &at); err != nil {
			return nil, err
		}
		e.PerformedBy = api.PrincipalID(performedBy)
		e.At = decodeTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
