package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/model"
)

// RenameProject changes a project's name and rewrites the first occurrence
// of the old name in each of its tasks' titles. Returns the number of
// tasks retitled.
func (r *Reconciler) RenameProject(ctx context.Context, id int64, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("project name is required")
	}
	p, err := r.store.GetProject(ctx, id)
	if err != nil {
		return 0, err
	}
	old := p.ProjectName
	if old == name {
		return 0, nil
	}

	p.ProjectName = name
	if err := r.store.UpdateProject(ctx, p); err != nil {
		return 0, err
	}

	n, err := r.rewriteTasks(ctx, id, func(t model.Task) model.TaskPatch {
		return model.TaskPatch{Title: model.Ptr(strings.Replace(t.Title, old, name, 1))}
	})
	if err != nil {
		return n, err
	}
	r.logger.Info("Renamed project",
		zap.Int64("project_id", id),
		zap.String("from", old),
		zap.String("to", name),
		zap.Int("tasks", n),
	)
	return n, nil
}

// RenumberProject changes a project's number, the number copied onto its
// tasks, and the first occurrence of the old number in task descriptions.
// Returns the number of tasks touched.
func (r *Reconciler) RenumberProject(ctx context.Context, id int64, number string) (int, error) {
	if number == "" {
		return 0, fmt.Errorf("project number is required")
	}
	p, err := r.store.GetProject(ctx, id)
	if err != nil {
		return 0, err
	}
	old := p.ProjectNumber
	if old == number {
		return 0, nil
	}

	p.ProjectNumber = number
	if err := r.store.UpdateProject(ctx, p); err != nil {
		return 0, err
	}

	n, err := r.rewriteTasks(ctx, id, func(t model.Task) model.TaskPatch {
		return model.TaskPatch{
			Description:   model.Ptr(strings.Replace(t.Description, old, number, 1)),
			ProjectNumber: &number,
		}
	})
	if err != nil {
		return n, err
	}
	r.logger.Info("Renumbered project",
		zap.Int64("project_id", id),
		zap.String("from", old),
		zap.String("to", number),
		zap.Int("tasks", n),
	)
	return n, nil
}

func (r *Reconciler) rewriteTasks(ctx context.Context, projectID int64, rewrite func(model.Task) model.TaskPatch) (int, error) {
	tasks, err := r.store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load project tasks: %w", err)
	}

	n := 0
	for i := range tasks {
		patch := changedFields(&tasks[i], rewrite(tasks[i]))
		if patch.IsEmpty() {
			continue
		}
		if err := r.store.UpdateTask(ctx, tasks[i].ID, patch); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
