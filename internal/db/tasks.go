package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/bidtrack/internal/model"
)

const taskColumns = `id, title, description, start_date, deadline_days, deadline_date, priority, status,
	project_id, project_number, is_project_task, source_kind, source_key, created_at, completed_at`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TaskFilter narrows ListTasks. Zero values mean "any".
type TaskFilter struct {
	ProjectID *int64
	Status    *model.Status
}

// CreateTask inserts a new task and sets its ID.
// CreatedAt defaults to now when empty.
func (db *DB) CreateTask(ctx context.Context, t *model.Task) (int64, error) {
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().Format(time.RFC3339)
	}
	id, err := insertTask(ctx, db, t, false)
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

// insertTask writes t. With keepID the row keeps t.ID (used by restores).
func insertTask(ctx context.Context, ex execer, t *model.Task, keepID bool) (int64, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityLow
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if !t.Priority.IsValid() {
		return 0, fmt.Errorf("invalid priority: %s", t.Priority)
	}
	if !t.Status.IsValid() {
		return 0, fmt.Errorf("invalid status: %s", t.Status)
	}

	var kind sql.NullString
	var key string
	if t.Source != nil {
		if !t.Source.Kind.IsValid() {
			return 0, fmt.Errorf("invalid task source: %s", t.Source.Kind)
		}
		kind = sql.NullString{String: string(t.Source.Kind), Valid: true}
		key = t.Source.Key
	}

	var id any
	if keepID && t.ID != 0 {
		id = t.ID
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, start_date, deadline_days, deadline_date, priority, status,
			project_id, project_number, is_project_task, source_kind, source_key, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.Title, t.Description, t.StartDate, t.DeadlineDays, t.DeadlineDate, t.Priority, t.Status,
		t.ProjectID, t.ProjectNumber, t.IsProjectTask, kind, key, t.CreatedAt, nullString(t.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	return result.LastInsertId()
}

// GetTask retrieves a task by ID.
func (db *DB) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	tasks, err := db.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %d: %w (use 'bidtrack task list' to see available tasks)", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// ListTasks returns tasks matching the filter in creation order.
func (db *DB) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if filter.ProjectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	if filter.Status != nil {
		if !filter.Status.IsValid() {
			return nil, fmt.Errorf("invalid status: %s", *filter.Status)
		}
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY id ASC`

	return db.queryTasks(ctx, query, args...)
}

// ListProjectTasks returns every task linked to a project, any status.
func (db *DB) ListProjectTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	return db.ListTasks(ctx, TaskFilter{ProjectID: &projectID})
}

// UpdateTask applies a partial update. An empty patch is a no-op.
func (db *DB) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.StartDate != nil {
		set("start_date", *patch.StartDate)
	}
	if patch.DeadlineDays != nil {
		set("deadline_days", *patch.DeadlineDays)
	}
	if patch.DeadlineDate != nil {
		set("deadline_date", *patch.DeadlineDate)
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return fmt.Errorf("invalid priority: %s", *patch.Priority)
		}
		set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return fmt.Errorf("invalid status: %s", *patch.Status)
		}
		set("status", *patch.Status)
	}
	if patch.ProjectNumber != nil {
		set("project_number", *patch.ProjectNumber)
	}
	if patch.CompletedAt != nil {
		set("completed_at", nullString(*patch.CompletedAt))
	}

	args = append(args, id)
	result, err := db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// CompleteTask marks a task completed at the given timestamp.
func (db *DB) CompleteTask(ctx context.Context, id int64, at string) error {
	status := model.StatusCompleted
	return db.UpdateTask(ctx, id, model.TaskPatch{Status: &status, CompletedAt: &at})
}

// DeleteTask removes a task.
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProjectTasks removes every task linked to a project.
func (db *DB) DeleteProjectTasks(ctx context.Context, projectID int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.RowsAffected()
}

// queryTasks is a helper to scan task rows.
func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var projectID sql.NullInt64
		var kind, completedAt sql.NullString
		var key string
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.StartDate, &t.DeadlineDays, &t.DeadlineDate,
			&t.Priority, &t.Status, &projectID, &t.ProjectNumber, &t.IsProjectTask,
			&kind, &key, &t.CreatedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if projectID.Valid {
			t.ProjectID = &projectID.Int64
		}
		if kind.Valid {
			t.Source = &model.DerivedSource{Kind: model.DerivedKind(kind.String), Key: key}
		}
		if completedAt.Valid {
			t.CompletedAt = completedAt.String
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
