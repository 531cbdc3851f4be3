package reconcile

import "github.com/baiirun/bidtrack/internal/model"

// contractSigning keeps the signing task scheduled from the award notice.
// An existing task is rescheduled whatever its status.
func (p *pass) contractSigning() error {
	a := p.project.AwardNotice
	if a.AwardDate == "" || a.ContractSignDays <= 0 {
		return nil
	}

	due, priority, err := p.schedule(a.AwardDate, a.ContractSignDays, a.IsWorkingDays)
	if err != nil {
		return err
	}
	desc := contractSignDescription(p.project, due)

	if t := p.find(model.KindContractSign, ""); t != nil {
		return p.update(t, model.TaskPatch{
			StartDate:    &a.AwardDate,
			DeadlineDays: &a.ContractSignDays,
			DeadlineDate: &due,
			Priority:     &priority,
			Description:  &desc,
		})
	}
	return p.create(model.KindContractSign, "", model.Task{
		Description:  desc,
		StartDate:    a.AwardDate,
		DeadlineDays: a.ContractSignDays,
		DeadlineDate: due,
		Priority:     priority,
	})
}

// durationChange reschedules the pending completion application task after
// the project duration changed.
func (p *pass) durationChange(prevDuration int) error {
	duration := p.project.AwardNotice.ProjectDuration
	start := p.project.ConstructionMaterial.StartApplicationDate
	if prevDuration == duration || start == "" {
		return nil
	}

	t := p.findWithStatus(model.KindCompletionApplication, "", model.StatusPending)
	if t == nil {
		return nil
	}
	due, priority, err := p.schedule(start, duration, false)
	if err != nil {
		return err
	}
	desc := completionDescription(p.project, due)
	return p.update(t, model.TaskPatch{
		DeadlineDays: &duration,
		DeadlineDate: &due,
		Priority:     &priority,
		Description:  &desc,
	})
}

// contract handles signing completion, the performance bond and insurance.
func (p *pass) contract() error {
	c := p.project.Contract

	if c.SignDate != "" {
		if t := p.findWithStatus(model.KindContractSign, "", model.StatusPending); t != nil {
			if err := p.complete(t, c.SignDate); err != nil {
				return err
			}
		}
	}

	if err := p.performanceBond(); err != nil {
		return err
	}

	for _, ins := range c.InsuranceTerms {
		if err := p.insurance(ins); err != nil {
			return err
		}
	}
	return nil
}

// performanceBond creates the bond task once the contract is signed. The
// task is never rescheduled afterwards.
func (p *pass) performanceBond() error {
	c := p.project.Contract

	if c.NeedPerformanceBond && c.PerformanceBondDays > 0 && c.SignDate != "" &&
		p.find(model.KindPerformanceBond, "") == nil {
		due, priority, err := p.schedule(c.SignDate, c.PerformanceBondDays, false)
		if err != nil {
			return err
		}
		err = p.create(model.KindPerformanceBond, "", model.Task{
			Description:  performanceBondDescription(p.project, due),
			StartDate:    c.SignDate,
			DeadlineDays: c.PerformanceBondDays,
			DeadlineDate: due,
			Priority:     priority,
		})
		if err != nil {
			return err
		}
	}

	if c.PerformanceBondSubmitDate != "" {
		if t := p.findWithStatus(model.KindPerformanceBond, "", model.StatusPending); t != nil {
			return p.complete(t, c.PerformanceBondSubmitDate)
		}
	}
	return nil
}

func (p *pass) insurance(ins model.Insurance) error {
	if ins.Name == "" {
		return nil
	}

	if !ins.IsPurchased {
		if p.find(model.KindInsurance, ins.Name) != nil {
			return nil
		}
		return p.create(model.KindInsurance, ins.Name, model.Task{
			Description: insuranceDescription(p.project, ins.Name),
			StartDate:   p.todayDate(),
			Priority:    model.PriorityLow,
		})
	}

	if t := p.findWithStatus(model.KindInsurance, ins.Name, model.StatusPending); t != nil {
		return p.complete(t, ins.PurchaseDate)
	}
	return nil
}
