package report

import (
	"fmt"
	"strings"

	"github.com/baiirun/bidtrack/internal/model"
)

// Project renders a single project as a standalone document covering
// every recorded field.
func Project(p *model.Project) string {
	var b strings.Builder
	a := p.AwardNotice
	c := p.Contract
	cm := p.ConstructionMaterial

	fmt.Fprintf(&b, "# %s - %s\n\n", p.ProjectNumber, p.ProjectName)
	fmt.Fprintf(&b, "**年度:** %d\n\n", p.Year)
	fmt.Fprintf(&b, "**项目类别:** %s\n\n", p.Category)
	fmt.Fprintf(&b, "**创建时间:** %s\n\n", p.CreatedAt)

	b.WriteString("## 基本信息\n\n")
	fmt.Fprintf(&b, "- **项目编号:** %s\n", p.ProjectNumber)
	fmt.Fprintf(&b, "- **项目名称:** %s\n", p.ProjectName)
	fmt.Fprintf(&b, "- **项目类别:** %s\n", p.Category)
	fmt.Fprintf(&b, "- **预估金额:** %s\n", Amount(p.EstimatedAmount))
	fmt.Fprintf(&b, "- **预算价:** %s\n", Amount(p.BudgetPrice))
	fmt.Fprintf(&b, "- **招标日期:** %s\n\n", p.TenderDate)

	b.WriteString("## 中标通知书\n\n")
	fmt.Fprintf(&b, "- **中标日期:** %s\n", a.AwardDate)
	fmt.Fprintf(&b, "- **合同签订天数:** %d天\n", a.ContractSignDays)
	fmt.Fprintf(&b, "- **是否工作日:** %s\n", yesNo(a.IsWorkingDays))
	fmt.Fprintf(&b, "- **中标单位:** %s\n", a.WinningUnit)
	fmt.Fprintf(&b, "- **项目经理姓名:** %s\n", a.ProjectManagerName)
	fmt.Fprintf(&b, "- **项目经理身份证号:** %s\n", a.ProjectManagerID)
	fmt.Fprintf(&b, "- **中标价格:** %s\n", Amount(a.WinningPrice))
	fmt.Fprintf(&b, "- **工期:** %d天\n\n", a.ProjectDuration)

	b.WriteString("## 合同协议书\n\n")
	signDate := c.SignDate
	if signDate == "" {
		signDate = "未签订"
	}
	fmt.Fprintf(&b, "- **合同签订日期:** %s\n", signDate)
	fmt.Fprintf(&b, "- **需要履约保函:** %s\n", yesNo(c.NeedPerformanceBond))
	if c.NeedPerformanceBond {
		fmt.Fprintf(&b, "- **履约保函提交期限:** %d天\n", c.PerformanceBondDays)
	}
	b.WriteString("\n")

	if len(c.PaymentTerms) > 0 {
		b.WriteString("### 付款条款\n\n")
		for i, term := range c.PaymentTerms {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, term.Name)
			fmt.Fprintf(&b, "   - 里程碑: %s\n", term.Milestone.Label())
			fmt.Fprintf(&b, "   - 里程碑后天数: %d天\n", term.DaysAfterMilestone)
			fmt.Fprintf(&b, "   - 是否工作日: %s\n", yesNo(term.IsWorkingDays))
			if term.PaymentDate != "" {
				fmt.Fprintf(&b, "   - 付款日期: %s\n", term.PaymentDate)
			}
			fmt.Fprintf(&b, "   - 是否已付款: %s\n\n", yesNo(term.IsPaid))
		}
	}

	if len(c.InsuranceTerms) > 0 {
		b.WriteString("### 保险条款\n\n")
		for i, ins := range c.InsuranceTerms {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, ins.Name)
			fmt.Fprintf(&b, "   - 是否已购买: %s\n", yesNo(ins.IsPurchased))
			if ins.PurchaseDate != "" {
				fmt.Fprintf(&b, "   - 购买日期: %s\n", ins.PurchaseDate)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## 开工资料\n\n")
	for _, row := range []struct {
		label string
		need  bool
		date  string
	}{
		{"需要道路占用审批", cm.NeedRoadOccupancyApproval, cm.RoadOccupancyApprovalDate},
		{"需要开工申请", cm.NeedStartApplication, cm.StartApplicationDate},
		{"需要完工申请", cm.NeedCompletionApplication, cm.CompletionApplicationDate},
		{"需要验收证书", cm.NeedAcceptanceCertificate, cm.AcceptanceCertificateDate},
		{"需要结算审核", cm.NeedSettlementAudit, cm.SettlementAuditDate},
	} {
		fmt.Fprintf(&b, "- **%s:** %s\n", row.label, yesNo(row.need))
		if row.date != "" {
			fmt.Fprintf(&b, "  - 日期: %s\n", row.date)
		}
	}
	return b.String()
}
