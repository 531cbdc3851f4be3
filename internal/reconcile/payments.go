package reconcile

import "github.com/baiirun/bidtrack/internal/model"

func (p *pass) payments() error {
	for _, term := range p.project.Contract.PaymentTerms {
		if term.Name == "" {
			continue
		}
		if err := p.payment(term); err != nil {
			return err
		}
	}
	return nil
}

// payment keeps one term's task in the scheduled or blocked state. A term
// is blocked while the milestone it is anchored to has no date.
func (p *pass) payment(term model.PaymentTerm) error {
	if term.IsPaid {
		if t := p.findWithStatus(model.KindPayment, term.Name, model.StatusPending); t != nil {
			return p.complete(t, term.PaymentDate)
		}
		return nil
	}

	milestoneDate := p.project.MilestoneDate(term.Milestone)
	existing := p.find(model.KindPayment, term.Name)

	if milestoneDate == "" {
		desc := blockedPaymentDescription(p.project, term)
		if existing == nil {
			return p.create(model.KindPayment, term.Name, model.Task{
				Description:  desc,
				StartDate:    p.todayDate(),
				DeadlineDays: term.DaysAfterMilestone,
				Priority:     model.PriorityLow,
			})
		}
		if existing.DeadlineDate == "" {
			return nil
		}
		// The milestone was reverted: back to blocked.
		return p.update(existing, model.TaskPatch{
			StartDate:    model.Ptr(p.todayDate()),
			DeadlineDays: &term.DaysAfterMilestone,
			DeadlineDate: model.Ptr(""),
			Priority:     model.Ptr(model.PriorityLow),
			Description:  &desc,
		})
	}

	due, priority, err := p.schedule(milestoneDate, term.DaysAfterMilestone, term.IsWorkingDays)
	if err != nil {
		return err
	}
	desc := paymentDescription(p.project, term, due)

	if existing == nil {
		return p.create(model.KindPayment, term.Name, model.Task{
			Description:  desc,
			StartDate:    milestoneDate,
			DeadlineDays: term.DaysAfterMilestone,
			DeadlineDate: due,
			Priority:     priority,
		})
	}
	// Newly unblocked or already scheduled: either way recompute, since the
	// term's parameters may have changed.
	return p.update(existing, model.TaskPatch{
		StartDate:    &milestoneDate,
		DeadlineDays: &term.DaysAfterMilestone,
		DeadlineDate: &due,
		Priority:     &priority,
		Description:  &desc,
	})
}
