package reconcile

import (
	"fmt"

	"github.com/baiirun/bidtrack/internal/model"
)

// title renders the display title of a derived task.
func title(kind model.DerivedKind, key, projectName string) string {
	var head string
	switch kind {
	case model.KindContractSign, model.KindPerformanceBond:
		head = kind.Marker()
	case model.KindPayment:
		head = key + "付款"
	case model.KindInsurance:
		head = "购买" + key + "保险"
	default:
		head = "完成" + kind.Marker()
	}
	return head + " - " + projectName
}

func unit(workingDays bool, calendarUnit string) string {
	if workingDays {
		return "个工作日"
	}
	return calendarUnit
}

func contractSignDescription(p *model.Project, due string) string {
	a := p.AwardNotice
	return fmt.Sprintf("项目 %s 需要在 %d %s内签署合同（截止日期：%s）",
		p.ProjectNumber, a.ContractSignDays, unit(a.IsWorkingDays, "天"), due)
}

func performanceBondDescription(p *model.Project, due string) string {
	return fmt.Sprintf("项目 %s 需要在 %d 天内提交履约保函（截止日期：%s）",
		p.ProjectNumber, p.Contract.PerformanceBondDays, due)
}

func paymentDescription(p *model.Project, term model.PaymentTerm, due string) string {
	return fmt.Sprintf("项目 %s 的 %s 需要在 %d %s后付款（截止日期：%s）",
		p.ProjectNumber, term.Name, term.DaysAfterMilestone, unit(term.IsWorkingDays, "日"), due)
}

func blockedPaymentDescription(p *model.Project, term model.PaymentTerm) string {
	label := term.Milestone.Label()
	return fmt.Sprintf("项目 %s 的 %s 需要在 %s后 %d %s内付款（前置里程碑：%s未完成）",
		p.ProjectNumber, term.Name, label, term.DaysAfterMilestone, unit(term.IsWorkingDays, "日"), label)
}

func insuranceDescription(p *model.Project, name string) string {
	return fmt.Sprintf("项目 %s 需要购买 %s 保险", p.ProjectNumber, name)
}

func milestoneDescription(p *model.Project, kind model.DerivedKind) string {
	return fmt.Sprintf("项目 %s 需要完成%s", p.ProjectNumber, kind.Marker())
}

func completionDescription(p *model.Project, due string) string {
	return fmt.Sprintf("项目 %s 需要在 %d 天内完成完工申请报告（截止日期：%s）",
		p.ProjectNumber, p.AwardNotice.ProjectDuration, due)
}
