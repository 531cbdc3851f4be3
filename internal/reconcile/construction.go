package reconcile

import "github.com/baiirun/bidtrack/internal/model"

type milestoneRule struct {
	kind   model.DerivedKind
	needed bool
	date   string
}

// construction runs the construction milestone rules in form order.
func (p *pass) construction() error {
	cm := p.project.ConstructionMaterial

	before := []milestoneRule{
		{model.KindRoadOccupancy, cm.NeedRoadOccupancyApproval, cm.RoadOccupancyApprovalDate},
		{model.KindStartApplication, cm.NeedStartApplication, cm.StartApplicationDate},
	}
	after := []milestoneRule{
		{model.KindAcceptanceCertificate, cm.NeedAcceptanceCertificate, cm.AcceptanceCertificateDate},
		{model.KindSettlementAudit, cm.NeedSettlementAudit, cm.SettlementAuditDate},
	}

	for _, m := range before {
		if err := p.milestone(m); err != nil {
			return err
		}
	}
	if err := p.completionApplication(); err != nil {
		return err
	}
	for _, m := range after {
		if err := p.milestone(m); err != nil {
			return err
		}
	}
	return nil
}

// milestone handles a milestone whose task carries no deadline. The task
// is completed on the milestone's date; a task in any status counts as
// existing, so a completed one is never recreated.
func (p *pass) milestone(m milestoneRule) error {
	if m.date != "" {
		if t := p.findWithStatus(m.kind, "", model.StatusPending); t != nil {
			return p.complete(t, m.date)
		}
		return nil
	}
	if !m.needed || p.find(m.kind, "") != nil {
		return nil
	}
	return p.create(m.kind, "", model.Task{
		Description: milestoneDescription(p.project, m.kind),
		StartDate:   p.todayDate(),
		Priority:    model.PriorityLow,
	})
}

// completionApplication is due a project duration after the start
// application. Clearing its date after completion reopens the task.
func (p *pass) completionApplication() error {
	cm := p.project.ConstructionMaterial
	kind := model.KindCompletionApplication

	if cm.CompletionApplicationDate != "" {
		if t := p.findWithStatus(kind, "", model.StatusPending); t != nil {
			return p.complete(t, cm.CompletionApplicationDate)
		}
		return nil
	}
	if !cm.NeedCompletionApplication || cm.StartApplicationDate == "" {
		return nil
	}

	pending := p.findWithStatus(kind, "", model.StatusPending)
	completed := p.findWithStatus(kind, "", model.StatusCompleted)
	duration := p.project.AwardNotice.ProjectDuration

	switch {
	case pending == nil && completed == nil && duration > 0:
		due, priority, err := p.schedule(cm.StartApplicationDate, duration, false)
		if err != nil {
			return err
		}
		return p.create(kind, "", model.Task{
			Description:  completionDescription(p.project, due),
			StartDate:    cm.StartApplicationDate,
			DeadlineDays: duration,
			DeadlineDate: due,
			Priority:     priority,
		})

	case pending == nil && completed != nil:
		due, priority, err := p.schedule(cm.StartApplicationDate, duration, false)
		if err != nil {
			return err
		}
		desc := completionDescription(p.project, due)
		return p.reopen(completed, model.TaskPatch{
			StartDate:    &cm.StartApplicationDate,
			DeadlineDays: &duration,
			DeadlineDate: &due,
			Priority:     &priority,
			Description:  &desc,
		})
	}
	return nil
}
