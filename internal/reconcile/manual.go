package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/model"
)

// ManualTask is a task entered by hand rather than derived from a project.
type ManualTask struct {
	Title         string
	Description   string
	StartDate     string
	Days          int
	ProjectID     *int64
	ProjectNumber string
	IsProjectTask bool
}

// NewManualTask schedules a hand-entered task in calendar days and
// classifies it against today. The task is not stored.
func (r *Reconciler) NewManualTask(ctx context.Context, in ManualTask) (*model.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	now := r.now()
	if in.StartDate == "" {
		in.StartDate = deadline.FormatDate(deadline.Today(now))
	}

	due, err := deadline.CalculateDate(ctx, r.cal, in.StartDate, in.Days, false)
	if err != nil {
		return nil, err
	}
	priority, _ := deadline.ClassifyDate(due, deadline.Today(now))

	return &model.Task{
		Title:         in.Title,
		Description:   in.Description,
		StartDate:     in.StartDate,
		DeadlineDays:  in.Days,
		DeadlineDate:  due,
		Priority:      priority,
		Status:        model.StatusPending,
		ProjectID:     in.ProjectID,
		ProjectNumber: in.ProjectNumber,
		IsProjectTask: in.IsProjectTask,
		CreatedAt:     now.Format(time.RFC3339),
	}, nil
}
