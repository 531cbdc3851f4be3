// Package reconcile keeps a project's derived tasks in step with the
// project's state.
//
// Every governed item (contract signing, performance bond, each payment
// term, each insurance, each construction milestone) owns at most one task,
// found by the task's (project, kind, key) identity. Running a pass twice
// over unchanged data writes nothing the second time.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/logger"
	"github.com/baiirun/bidtrack/internal/metrics"
	"github.com/baiirun/bidtrack/internal/model"
)

// TaskStore is the task persistence the reconciler needs.
type TaskStore interface {
	ListTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error)
	ListProjectTasks(ctx context.Context, projectID int64) ([]model.Task, error)
	CreateTask(ctx context.Context, t *model.Task) (int64, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) error
}

// ProjectStore is the project persistence used by renames.
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
}

// Store is satisfied by *db.DB.
type Store interface {
	TaskStore
	ProjectStore
}

// Result counts the task mutations made by one call.
type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Completed int `json:"completed"`
	Reopened  int `json:"reopened"`
}

// Changed reports whether anything was written.
func (r Result) Changed() bool {
	return r.Created+r.Updated+r.Completed+r.Reopened > 0
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d updated, %d completed, %d reopened",
		r.Created, r.Updated, r.Completed, r.Reopened)
}

type Reconciler struct {
	store  Store
	cal    calendar.BusinessCalendar
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Reconciler)

// WithClock overrides the time source used for priorities and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func New(store Store, cal calendar.BusinessCalendar, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		cal:    cal,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs every rule for next. prev is the project as it was before
// the edit, or nil for a freshly created project; it is only consulted to
// detect a change of project duration.
func (r *Reconciler) Reconcile(ctx context.Context, prev, next *model.Project) (*Result, error) {
	prevDuration := next.AwardNotice.ProjectDuration
	if prev != nil {
		prevDuration = prev.AwardNotice.ProjectDuration
	}

	return r.run(ctx, next, func(p *pass) error {
		if err := p.contractSigning(); err != nil {
			return err
		}
		if err := p.durationChange(prevDuration); err != nil {
			return err
		}
		if err := p.payments(); err != nil {
			return err
		}
		if err := p.contract(); err != nil {
			return err
		}
		return p.construction()
	})
}

// ReconcileAwardNotice applies the rules that follow an award notice edit:
// the contract signing task and a changed project duration.
func (r *Reconciler) ReconcileAwardNotice(ctx context.Context, prevDuration int, next *model.Project) (*Result, error) {
	return r.run(ctx, next, func(p *pass) error {
		if err := p.contractSigning(); err != nil {
			return err
		}
		return p.durationChange(prevDuration)
	})
}

// ReconcileContract applies the rules that follow a contract edit.
func (r *Reconciler) ReconcileContract(ctx context.Context, next *model.Project) (*Result, error) {
	return r.run(ctx, next, func(p *pass) error {
		if err := p.payments(); err != nil {
			return err
		}
		return p.contract()
	})
}

// ReconcileConstruction applies the rules that follow a construction
// material edit.
func (r *Reconciler) ReconcileConstruction(ctx context.Context, next *model.Project) (*Result, error) {
	return r.run(ctx, next, func(p *pass) error {
		if err := p.payments(); err != nil {
			return err
		}
		return p.construction()
	})
}

func (r *Reconciler) run(ctx context.Context, project *model.Project, fn func(*pass) error) (*Result, error) {
	if project.ID == 0 {
		return nil, fmt.Errorf("project must be saved before reconciling")
	}

	tasks, err := r.store.ListProjectTasks(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project tasks: %w", err)
	}

	now := r.now()
	p := &pass{
		r:       r,
		ctx:     ctx,
		project: project,
		tasks:   tasks,
		now:     now,
		today:   deadline.Today(now),
		result:  &Result{},
		log:     logger.WithProject(r.logger, project.ID, project.ProjectNumber),
	}
	if err := fn(p); err != nil {
		return p.result, fmt.Errorf("project %s: %w", project.ProjectNumber, err)
	}

	if p.result.Changed() {
		p.log.Info("Reconciled project tasks",
			zap.Int("created", p.result.Created),
			zap.Int("updated", p.result.Updated),
			zap.Int("completed", p.result.Completed),
			zap.Int("reopened", p.result.Reopened),
		)
	}
	return p.result, nil
}

// pass is the state of one reconciliation call. tasks mirrors the store
// so later rules see the writes of earlier ones without re-reading.
type pass struct {
	r       *Reconciler
	ctx     context.Context
	project *model.Project
	tasks   []model.Task
	now     time.Time
	today   time.Time
	result  *Result
	log     *zap.Logger
}

// find returns the task governed by kind/key in any status.
func (p *pass) find(kind model.DerivedKind, key string) *model.Task {
	for i := range p.tasks {
		if p.tasks[i].Source.Matches(kind, key) {
			return &p.tasks[i]
		}
	}
	return nil
}

func (p *pass) findWithStatus(kind model.DerivedKind, key string, status model.Status) *model.Task {
	for i := range p.tasks {
		if p.tasks[i].Source.Matches(kind, key) && p.tasks[i].Status == status {
			return &p.tasks[i]
		}
	}
	return nil
}

func (p *pass) todayDate() string {
	return deadline.FormatDate(p.today)
}

func (p *pass) timestamp() string {
	return p.now.Format(time.RFC3339)
}

// schedule computes a due date and the priority it implies today.
func (p *pass) schedule(start string, days int, workingDays bool) (string, model.Priority, error) {
	due, err := deadline.CalculateDate(p.ctx, p.r.cal, start, days, workingDays)
	if err != nil {
		return "", "", err
	}
	priority, _ := deadline.ClassifyDate(due, p.today)
	return due, priority, nil
}

// create stores a new derived task for kind/key.
func (p *pass) create(kind model.DerivedKind, key string, t model.Task) error {
	projectID := p.project.ID
	t.Title = title(kind, key, p.project.ProjectName)
	t.Status = model.StatusPending
	t.ProjectID = &projectID
	t.ProjectNumber = p.project.ProjectNumber
	t.IsProjectTask = true
	t.Source = &model.DerivedSource{Kind: kind, Key: key}
	t.CreatedAt = p.timestamp()

	if _, err := p.r.store.CreateTask(p.ctx, &t); err != nil {
		return err
	}
	p.tasks = append(p.tasks, t)
	p.result.Created++
	p.record("create", t)
	return nil
}

// update writes the fields of patch that differ from t. Nothing is
// written, and nothing counted, when they all match.
func (p *pass) update(t *model.Task, patch model.TaskPatch) error {
	patch = changedFields(t, patch)
	if patch.IsEmpty() {
		return nil
	}
	if err := p.r.store.UpdateTask(p.ctx, t.ID, patch); err != nil {
		return err
	}
	applyPatch(t, patch)
	p.result.Updated++
	p.record("update", *t)
	return nil
}

// complete marks a pending task completed at the given time.
func (p *pass) complete(t *model.Task, at string) error {
	if at == "" {
		at = p.timestamp()
	}
	patch := model.TaskPatch{
		Status:      model.Ptr(model.StatusCompleted),
		CompletedAt: &at,
	}
	if err := p.r.store.UpdateTask(p.ctx, t.ID, patch); err != nil {
		return err
	}
	applyPatch(t, patch)
	p.result.Completed++
	p.record("complete", *t)
	return nil
}

// reopen moves a completed task back to pending with fresh fields.
func (p *pass) reopen(t *model.Task, patch model.TaskPatch) error {
	patch.Status = model.Ptr(model.StatusPending)
	patch.CompletedAt = model.Ptr("")
	if err := p.r.store.UpdateTask(p.ctx, t.ID, patch); err != nil {
		return err
	}
	applyPatch(t, patch)
	p.result.Reopened++
	p.record("reopen", *t)
	return nil
}

func (p *pass) record(op string, t model.Task) {
	kind := ""
	if t.Source != nil {
		kind = string(t.Source.Kind)
	}
	metrics.IncrementTaskOp(op, kind)
	p.log.Debug("Derived task "+op,
		zap.Int64("task_id", t.ID),
		zap.String("kind", kind),
		zap.String("title", t.Title),
		zap.String("deadline", t.DeadlineDate),
		zap.String("priority", string(t.Priority)),
	)
}

// changedFields drops the patch fields that already hold their value on t.
func changedFields(t *model.Task, patch model.TaskPatch) model.TaskPatch {
	if patch.Title != nil && *patch.Title == t.Title {
		patch.Title = nil
	}
	if patch.Description != nil && *patch.Description == t.Description {
		patch.Description = nil
	}
	if patch.StartDate != nil && *patch.StartDate == t.StartDate {
		patch.StartDate = nil
	}
	if patch.DeadlineDays != nil && *patch.DeadlineDays == t.DeadlineDays {
		patch.DeadlineDays = nil
	}
	if patch.DeadlineDate != nil && *patch.DeadlineDate == t.DeadlineDate {
		patch.DeadlineDate = nil
	}
	if patch.Priority != nil && *patch.Priority == t.Priority {
		patch.Priority = nil
	}
	if patch.Status != nil && *patch.Status == t.Status {
		patch.Status = nil
	}
	if patch.ProjectNumber != nil && *patch.ProjectNumber == t.ProjectNumber {
		patch.ProjectNumber = nil
	}
	if patch.CompletedAt != nil && *patch.CompletedAt == t.CompletedAt {
		patch.CompletedAt = nil
	}
	return patch
}

func applyPatch(t *model.Task, patch model.TaskPatch) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.StartDate != nil {
		t.StartDate = *patch.StartDate
	}
	if patch.DeadlineDays != nil {
		t.DeadlineDays = *patch.DeadlineDays
	}
	if patch.DeadlineDate != nil {
		t.DeadlineDate = *patch.DeadlineDate
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.ProjectNumber != nil {
		t.ProjectNumber = *patch.ProjectNumber
	}
	if patch.CompletedAt != nil {
		t.CompletedAt = *patch.CompletedAt
	}
}
