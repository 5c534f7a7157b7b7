package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petrijr/approvo/pkg/api"
)

// PostgresStore implements InstanceStore, TaskStore and HistoryStore on a
// PostgreSQL database.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements the interfaces.
var (
	_ InstanceStore = (*PostgresStore)(nil)
	_ TaskStore     = (*PostgresStore)(nil)
	_ HistoryStore  = (*PostgresStore)(nil)
)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
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
			started_at BIGINT NOT NULL DEFAULT 0,
			due_at BIGINT NOT NULL DEFAULT 0,
			ended_at BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 0
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
			completed_at BIGINT NOT NULL DEFAULT 0,
			due_at BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_instance ON tasks(instance_id, step_order);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee, status);

		CREATE TABLE IF NOT EXISTS history (
			seq BIGSERIAL PRIMARY KEY,
			instance_id TEXT NOT NULL,
			action TEXT NOT NULL,
			step_order INTEGER NOT NULL DEFAULT 0,
			details TEXT NOT NULL DEFAULT '',
			performed_by TEXT NOT NULL DEFAULT '',
			at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_instance ON history(instance_id, at, seq);
	`)
	return err
}

func (s *PostgresStore) SaveInstance(ctx context.Context, inst *api.Instance) error {
	attrs, err := encodeAttrs(inst.Document.Attributes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (
			id, template_id, document_id, document_attrs, title, description, priority,
			status, current_step, requested_by,
			started_at, due_at, ended_at, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
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

func (s *PostgresStore) UpdateInstance(ctx context.Context, inst *api.Instance) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instances
		SET status = $1, current_step = $2, title = $3, description = $4, priority = $5,
		    started_at = $6, due_at = $7, ended_at = $8, updated_at = $9,
		    version = version + 1
		WHERE id = $10 AND version = $11`,
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
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM instances WHERE id = $1`, inst.ID).Scan(&exists)
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

func (s *PostgresStore) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)

	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *PostgresStore) ListInstances(ctx context.Context, filter InstanceFilter) ([]*api.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	var clauses []string

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TemplateID != "" {
		clauses = append(clauses, "template_id = "+arg(filter.TemplateID))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(string(filter.Status)))
	}
	if filter.RequestedBy != "" {
		clauses = append(clauses, "requested_by = "+arg(string(filter.RequestedBy)))
	}
	if filter.Search != "" {
		clauses = append(clauses, "title ILIKE "+arg("%"+filter.Search+"%"))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
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

func (s *PostgresStore) SaveTasks(ctx context.Context, tasks []*api.Task) error {
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
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
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

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*api.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) listTasks(ctx context.Context, where string, args ...any) ([]*api.Task, error) {
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

func (s *PostgresStore) ListTasksByInstance(ctx context.Context, instanceID string) ([]*api.Task, error) {
	return s.listTasks(ctx, "instance_id = $1", instanceID)
}

func (s *PostgresStore) ListTasksByStep(ctx context.Context, instanceID string, stepOrder int) ([]*api.Task, error) {
	return s.listTasks(ctx, "instance_id = $1 AND step_order = $2", instanceID, stepOrder)
}

func (s *PostgresStore) ListPendingByAssignee(ctx context.Context, assignee api.PrincipalID) ([]*api.Task, error) {
	return s.listTasks(ctx, "assignee = $1 AND status = $2", string(assignee), string(api.TaskPending))
}

func (s *PostgresStore) CompleteTask(ctx context.Context, id string, action api.TaskAction, comments string, actor api.PrincipalID, at time.Time) (*api.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, action = $2, comments = $3, completed_by = $4, completed_at = $5
		WHERE id = $6 AND status = $7`,
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

func (s *PostgresStore) ReassignTask(ctx context.Context, id string, newAssignee api.PrincipalID) (*api.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assignee = $1 WHERE id = $2 AND status = $3`,
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

func (s *PostgresStore) VoidPendingTasks(ctx context.Context, instanceID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1 WHERE instance_id = $2 AND status = $3`,
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

func (s *PostgresStore) AppendHistory(ctx context.Context, entry api.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (instance_id, action, step_order, details, performed_by, at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.InstanceID,
		entry.Action,
		entry.StepOrder,
		entry.Details,
		string(entry.PerformedBy),
		encodeTime(entry.At),
	)
	return err
}

func (s *PostgresStore) ListHistory(ctx context.Context, instanceID string) ([]api.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, instance_id, action, step_order, details, performed_by, at
		FROM history
		WHERE instance_id = $1
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
