// Package report renders projects as Markdown for sharing. The output is
// for people; nothing reads it back.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/model"
)

var printer = message.NewPrinter(language.SimplifiedChinese)

// Filter selects the projects in a report. Empty fields select everything.
type Filter struct {
	Years      []int
	ProjectIDs []int64
}

// Apply returns the projects the filter selects, in input order.
func (f Filter) Apply(projects []model.Project) []model.Project {
	var out []model.Project
	for _, p := range projects {
		if len(f.Years) > 0 && !slices.Contains(f.Years, p.Year) {
			continue
		}
		if len(f.ProjectIDs) > 0 && !slices.Contains(f.ProjectIDs, p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FileName names a report generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("项目报告_%s.md", now.Format("2006-01-02"))
}

// ProjectFileName names a single-project export.
func ProjectFileName(p *model.Project) string {
	return fmt.Sprintf("%s_%s.md", p.ProjectNumber, p.ProjectName)
}

// Amount formats money with zh-CN digit grouping.
func Amount(v float64) string {
	return "¥" + printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// Date renders yyyy-MM-dd as yyyy年MM月dd日. Empty dates read as having no
// deadline; unparsable ones are shown as stored.
func Date(s string) string {
	if s == "" {
		return "无截止日期"
	}
	t, err := deadline.ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format("2006年01月02日")
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func dayUnit(working bool) string {
	if working {
		return "个工作日"
	}
	return "天"
}

// Generate renders the whole-database report: projects grouped by year,
// oldest year first, each followed by its tasks.
func Generate(projects []model.Project, tasks []model.Task, now time.Time) string {
	var b strings.Builder

	b.WriteString("# 项目报告\n\n")
	fmt.Fprintf(&b, "生成时间：%s\n\n", now.Format("2006/1/2 15:04:05"))
	fmt.Fprintf(&b, "项目总数：%d\n\n", len(projects))
	b.WriteString("---\n\n")

	byYear := make(map[int][]model.Project)
	var years []int
	for _, p := range projects {
		if _, ok := byYear[p.Year]; !ok {
			years = append(years, p.Year)
		}
		byYear[p.Year] = append(byYear[p.Year], p)
	}
	slices.Sort(years)

	tasksByProject := make(map[int64][]model.Task)
	for _, t := range tasks {
		if t.ProjectID != nil {
			tasksByProject[*t.ProjectID] = append(tasksByProject[*t.ProjectID], t)
		}
	}

	for _, year := range years {
		fmt.Fprintf(&b, "## %d年度\n\n", year)
		fmt.Fprintf(&b, "项目数量：%d\n\n", len(byYear[year]))
		for _, p := range byYear[year] {
			writeProjectSection(&b, &p, tasksByProject[p.ID])
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}

func writeProjectSection(b *strings.Builder, p *model.Project, tasks []model.Task) {
	a := p.AwardNotice
	fmt.Fprintf(b, "### %s - %s\n\n", p.ProjectNumber, p.ProjectName)
	fmt.Fprintf(b, "- **类别**：%s\n", p.Category)
	fmt.Fprintf(b, "- **预算价格**：%s\n", Amount(p.BudgetPrice))
	fmt.Fprintf(b, "- **中标价格**：%s\n", Amount(a.WinningPrice))
	fmt.Fprintf(b, "- **招标日期**：%s\n", Date(p.TenderDate))
	fmt.Fprintf(b, "- **中标单位**：%s\n", a.WinningUnit)
	fmt.Fprintf(b, "- **项目经理**：%s\n", a.ProjectManagerName)
	fmt.Fprintf(b, "- **项目经理ID**：%s\n", a.ProjectManagerID)
	fmt.Fprintf(b, "- **中标日期**：%s\n", Date(a.AwardDate))
	fmt.Fprintf(b, "- **合同签署期限**：%d%s\n", a.ContractSignDays, dayUnit(a.IsWorkingDays))
	fmt.Fprintf(b, "- **项目工期**：%d天\n\n", a.ProjectDuration)

	c := p.Contract
	if c.SignDate != "" {
		b.WriteString("#### 合同信息\n\n")
		fmt.Fprintf(b, "- **签署日期**：%s\n", Date(c.SignDate))
		fmt.Fprintf(b, "- **需要履约保函**：%s\n", yesNo(c.NeedPerformanceBond))
		if c.NeedPerformanceBond {
			fmt.Fprintf(b, "- **履约保函期限**：%d天\n", c.PerformanceBondDays)
			if c.PerformanceBondSubmitDate != "" {
				fmt.Fprintf(b, "- **履约保函提交日期**：%s\n", Date(c.PerformanceBondSubmitDate))
			}
		}
		b.WriteString("\n")
	}

	if len(c.PaymentTerms) > 0 {
		b.WriteString("#### 付款条款\n\n")
		for _, term := range c.PaymentTerms {
			fmt.Fprintf(b, "- **%s**\n", term.Name)
			fmt.Fprintf(b, "  - 里程碑：%s\n", term.Milestone.Label())
			fmt.Fprintf(b, "  - 付款期限：%d%s\n", term.DaysAfterMilestone, dayUnit(term.IsWorkingDays))
			if term.IsPaid {
				b.WriteString("  - 付款状态：已付款\n")
			} else {
				b.WriteString("  - 付款状态：未付款\n")
			}
			if term.PaymentDate != "" {
				fmt.Fprintf(b, "  - 付款日期：%s\n", Date(term.PaymentDate))
			}
			b.WriteString("\n")
		}
	}

	if len(c.InsuranceTerms) > 0 {
		b.WriteString("#### 保险条款\n\n")
		for _, ins := range c.InsuranceTerms {
			state := "未购买"
			if ins.IsPurchased {
				state = "已购买"
			}
			fmt.Fprintf(b, "- **%s**：%s", ins.Name, state)
			if ins.PurchaseDate != "" {
				fmt.Fprintf(b, "（%s）", Date(ins.PurchaseDate))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if rows := constructionRows(p.ConstructionMaterial); len(rows) > 0 {
		b.WriteString("#### 建材相关\n\n")
		for _, r := range rows {
			value := "待办理"
			if r.date != "" {
				value = Date(r.date)
			}
			fmt.Fprintf(b, "- **%s**：%s\n", r.label, value)
		}
		b.WriteString("\n")
	}

	if len(tasks) > 0 {
		b.WriteString("#### 相关任务\n\n")
		for _, t := range tasks {
			status := "待完成"
			if t.Status == model.StatusCompleted {
				status = "已完成"
			}
			fmt.Fprintf(b, "- **%s**\n", t.Title)
			fmt.Fprintf(b, "  - 状态：%s\n", status)
			fmt.Fprintf(b, "  - 优先级：%s\n", t.Priority.Label())
			fmt.Fprintf(b, "  - 开始日期：%s\n", Date(t.StartDate))
			fmt.Fprintf(b, "  - 截止日期：%s\n\n", Date(t.DeadlineDate))
		}
	}
}

type constructionRow struct {
	label, date string
}

// constructionRows lists the milestones the project needs.
func constructionRows(cm model.ConstructionMaterial) []constructionRow {
	var rows []constructionRow
	add := func(need bool, label, date string) {
		if need {
			rows = append(rows, constructionRow{label, date})
		}
	}
	add(cm.NeedRoadOccupancyApproval, "占道审批", cm.RoadOccupancyApprovalDate)
	add(cm.NeedStartApplication, model.MilestoneStartApplication.Label(), cm.StartApplicationDate)
	add(cm.NeedCompletionApplication, model.MilestoneCompletionApplication.Label(), cm.CompletionApplicationDate)
	add(cm.NeedAcceptanceCertificate, model.MilestoneAcceptanceCertificate.Label(), cm.AcceptanceCertificateDate)
	add(cm.NeedSettlementAudit, model.MilestoneSettlementAudit.Label(), cm.SettlementAuditDate)
	return rows
}
