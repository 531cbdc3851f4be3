package db

import (
	"context"
	"fmt"

	"github.com/baiirun/bidtrack/internal/model"
)

// ReplaceAll swaps the entire contents of the store in one transaction.
// Either all three tables hold the new rows afterwards or nothing changed.
// Row IDs are preserved so task -> project references survive a restore.
func (db *DB) ReplaceAll(ctx context.Context, tasks []model.Task, projects []model.Project, years []model.Year) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"tasks", "projects", "years"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range years {
		if _, err := insertYear(ctx, tx, &years[i], true); err != nil {
			return err
		}
	}
	for i := range projects {
		if _, err := insertProject(ctx, tx, &projects[i], true); err != nil {
			return fmt.Errorf("project %q: %w", projects[i].ProjectNumber, err)
		}
	}
	for i := range tasks {
		if _, err := insertTask(ctx, tx, &tasks[i], true); err != nil {
			return fmt.Errorf("task %q: %w", tasks[i].Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
