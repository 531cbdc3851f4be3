package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/metrics"
	"github.com/baiirun/bidtrack/internal/model"
)

// RefreshPriorities re-classifies every pending task that has a deadline
// against today and stores the priorities that drifted. Returns how many
// tasks changed.
func (r *Reconciler) RefreshPriorities(ctx context.Context) (int, error) {
	pending := model.StatusPending
	tasks, err := r.store.ListTasks(ctx, db.TaskFilter{Status: &pending})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	today := deadline.Today(r.now())
	changed := 0
	for _, t := range tasks {
		priority, ok := deadline.ClassifyDate(t.DeadlineDate, today)
		if !ok || priority == t.Priority {
			continue
		}
		if err := r.store.UpdateTask(ctx, t.ID, model.TaskPatch{Priority: &priority}); err != nil {
			return changed, err
		}
		changed++
		r.logger.Debug("Refreshed task priority",
			zap.Int64("task_id", t.ID),
			zap.String("from", string(t.Priority)),
			zap.String("to", string(priority)),
		)
	}

	metrics.AddPriorityRefreshes(changed)
	return changed, nil
}
