package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/model"
)

// Friday 1 March 2024
var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func setup(t *testing.T) (*db.DB, *Reconciler) {
	t.Helper()
	database := setupTestDB(t)
	r := New(database, calendar.Weekdays{}, WithClock(func() time.Time { return fixedNow }))
	return database, r
}

func createProject(t *testing.T, database *db.DB, p *model.Project) *model.Project {
	t.Helper()
	if p.ProjectNumber == "" {
		p.ProjectNumber = "ZB-001"
	}
	if p.ProjectName == "" {
		p.ProjectName = "道路改造"
	}
	if p.Category == "" {
		p.Category = model.CategoryEngineering
	}
	if p.Year == 0 {
		p.Year = 2024
	}
	if _, err := database.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return p
}

func reconcile(t *testing.T, r *Reconciler, prev, next *model.Project) *Result {
	t.Helper()
	res, err := r.Reconcile(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	return res
}

func projectTasks(t *testing.T, database *db.DB, projectID int64) []model.Task {
	t.Helper()
	tasks, err := database.ListProjectTasks(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	return tasks
}

// derived returns the single task for kind/key, failing if there isn't
// exactly one.
func derived(t *testing.T, database *db.DB, projectID int64, kind model.DerivedKind, key string) model.Task {
	t.Helper()
	var found []model.Task
	for _, task := range projectTasks(t, database, projectID) {
		if task.Source.Matches(kind, key) {
			found = append(found, task)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one %s/%q task, got %d", kind, key, len(found))
	}
	return found[0]
}

func TestReconcile_NewProject(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{AwardDate: "2024-03-01", ContractSignDays: 7},
		Contract: model.Contract{
			PaymentTerms: []model.PaymentTerm{
				{Name: "预付款", Milestone: model.MilestoneContractSign, DaysAfterMilestone: 10},
			},
			InsuranceTerms: []model.Insurance{{Name: "工伤"}},
		},
		ConstructionMaterial: model.ConstructionMaterial{NeedStartApplication: true},
	})

	res := reconcile(t, r, nil, p)
	if res.Created != 4 || res.Updated != 0 {
		t.Errorf("result = %+v, want 4 created", res)
	}

	sign := derived(t, database, p.ID, model.KindContractSign, "")
	if sign.Title != "签署合同 - 道路改造" {
		t.Errorf("title = %q", sign.Title)
	}
	if sign.DeadlineDate != "2024-03-07" || sign.Priority != model.PriorityNormal {
		t.Errorf("deadline = %s priority = %s, want 2024-03-07 normal", sign.DeadlineDate, sign.Priority)
	}
	if sign.Description != "项目 ZB-001 需要在 7 天内签署合同（截止日期：2024-03-07）" {
		t.Errorf("description = %q", sign.Description)
	}
	if !sign.IsProjectTask || sign.ProjectNumber != "ZB-001" {
		t.Errorf("expected project task for ZB-001, got %+v", sign)
	}

	pay := derived(t, database, p.ID, model.KindPayment, "预付款")
	if pay.Title != "预付款付款 - 道路改造" {
		t.Errorf("title = %q", pay.Title)
	}
	if pay.DeadlineDate != "" || pay.Priority != model.PriorityLow || pay.StartDate != "2024-03-01" {
		t.Errorf("expected blocked payment, got %+v", pay)
	}
	if pay.Description != "项目 ZB-001 的 预付款 需要在 合同签署后 10 日内付款（前置里程碑：合同签署未完成）" {
		t.Errorf("description = %q", pay.Description)
	}

	ins := derived(t, database, p.ID, model.KindInsurance, "工伤")
	if ins.Title != "购买工伤保险 - 道路改造" || ins.Description != "项目 ZB-001 需要购买 工伤 保险" {
		t.Errorf("insurance task = %q / %q", ins.Title, ins.Description)
	}

	start := derived(t, database, p.ID, model.KindStartApplication, "")
	if start.Title != "完成开工申请报告 - 道路改造" || start.Description != "项目 ZB-001 需要完成开工申请报告" {
		t.Errorf("start application task = %q / %q", start.Title, start.Description)
	}
	if start.DeadlineDate != "" || start.Priority != model.PriorityLow {
		t.Errorf("expected no deadline and low priority, got %+v", start)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{AwardDate: "2024-03-01", ContractSignDays: 5, IsWorkingDays: true, ProjectDuration: 60},
		Contract: model.Contract{
			SignDate:            "2024-03-04",
			NeedPerformanceBond: true,
			PerformanceBondDays: 10,
			PaymentTerms: []model.PaymentTerm{
				{Name: "预付款", Milestone: model.MilestoneContractSign, DaysAfterMilestone: 10},
				{Name: "进度款", Milestone: model.MilestoneCompletionApplication, DaysAfterMilestone: 30, IsWorkingDays: true},
			},
			InsuranceTerms: []model.Insurance{{Name: "工伤"}, {Name: "意外"}},
		},
		ConstructionMaterial: model.ConstructionMaterial{
			NeedRoadOccupancyApproval: true,
			NeedStartApplication:      true,
			StartApplicationDate:      "2024-03-10",
			NeedCompletionApplication: true,
			NeedAcceptanceCertificate: true,
			NeedSettlementAudit:       true,
		},
	})

	first := reconcile(t, r, nil, p)
	if !first.Changed() {
		t.Fatal("expected first pass to create tasks")
	}
	count := len(projectTasks(t, database, p.ID))

	second := reconcile(t, r, p, p)
	if second.Changed() {
		t.Errorf("second pass changed tasks: %s", second)
	}
	if got := len(projectTasks(t, database, p.ID)); got != count {
		t.Errorf("task count = %d, want %d", got, count)
	}
}

func TestReconcile_MilestoneCompletion(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		ConstructionMaterial: model.ConstructionMaterial{NeedStartApplication: true},
	})
	reconcile(t, r, nil, p)

	p.ConstructionMaterial.StartApplicationDate = "2024-03-05"
	res := reconcile(t, r, p, p)
	if res.Completed != 1 {
		t.Errorf("result = %+v, want 1 completed", res)
	}

	task := derived(t, database, p.ID, model.KindStartApplication, "")
	if task.Status != model.StatusCompleted || task.CompletedAt != "2024-03-05" {
		t.Errorf("status = %s completedAt = %q", task.Status, task.CompletedAt)
	}

	res = reconcile(t, r, p, p)
	if res.Changed() {
		t.Errorf("second pass changed tasks: %s", res)
	}
	again := derived(t, database, p.ID, model.KindStartApplication, "")
	if again.CompletedAt != "2024-03-05" {
		t.Errorf("completedAt changed to %q", again.CompletedAt)
	}
}

func TestReconcile_MilestoneNotNeeded(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{})

	reconcile(t, r, nil, p)
	if n := len(projectTasks(t, database, p.ID)); n != 0 {
		t.Errorf("expected no tasks, got %d", n)
	}
}

func TestReconcile_MilestoneCompletedNotRecreated(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		ConstructionMaterial: model.ConstructionMaterial{NeedSettlementAudit: true},
	})
	reconcile(t, r, nil, p)

	task := derived(t, database, p.ID, model.KindSettlementAudit, "")
	if err := database.CompleteTask(context.Background(), task.ID, "2024-03-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	res := reconcile(t, r, p, p)
	if res.Created != 0 {
		t.Errorf("expected no new task, got %+v", res)
	}
}

func TestReconcile_CompletionApplicationReopen(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{ProjectDuration: 30},
		ConstructionMaterial: model.ConstructionMaterial{
			NeedStartApplication:      true,
			StartApplicationDate:      "2024-03-01",
			NeedCompletionApplication: true,
		},
	})
	reconcile(t, r, nil, p)

	task := derived(t, database, p.ID, model.KindCompletionApplication, "")
	if task.DeadlineDate != "2024-03-30" || task.Priority != model.PriorityLow || task.DeadlineDays != 30 {
		t.Errorf("created task = %+v", task)
	}
	if task.Title != "完成完工申请报告 - 道路改造" {
		t.Errorf("title = %q", task.Title)
	}

	p.ConstructionMaterial.CompletionApplicationDate = "2024-03-20"
	reconcile(t, r, p, p)
	task = derived(t, database, p.ID, model.KindCompletionApplication, "")
	if task.Status != model.StatusCompleted || task.CompletedAt != "2024-03-20" {
		t.Fatalf("expected completed task, got %+v", task)
	}

	prev := *p
	p.ConstructionMaterial.CompletionApplicationDate = ""
	p.AwardNotice.ProjectDuration = 5
	res := reconcile(t, r, &prev, p)
	if res.Reopened != 1 || res.Created != 0 {
		t.Errorf("result = %+v, want 1 reopened", res)
	}

	task = derived(t, database, p.ID, model.KindCompletionApplication, "")
	if task.Status != model.StatusPending || task.CompletedAt != "" {
		t.Errorf("status = %s completedAt = %q", task.Status, task.CompletedAt)
	}
	if task.DeadlineDate != "2024-03-05" || task.DeadlineDays != 5 || task.Priority != model.PriorityNormal {
		t.Errorf("deadline = %s days = %d priority = %s", task.DeadlineDate, task.DeadlineDays, task.Priority)
	}
	if task.Description != "项目 ZB-001 需要在 5 天内完成完工申请报告（截止日期：2024-03-05）" {
		t.Errorf("description = %q", task.Description)
	}
}

func TestReconcile_CompletionApplicationNeedsDuration(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		ConstructionMaterial: model.ConstructionMaterial{
			StartApplicationDate:      "2024-03-01",
			NeedCompletionApplication: true,
		},
	})

	reconcile(t, r, nil, p)
	if n := len(projectTasks(t, database, p.ID)); n != 0 {
		t.Errorf("expected no task without a duration, got %d", n)
	}
}

func TestReconcileAwardNotice_DurationChange(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{ProjectDuration: 30},
		ConstructionMaterial: model.ConstructionMaterial{
			StartApplicationDate:      "2024-03-01",
			NeedCompletionApplication: true,
		},
	})
	reconcile(t, r, nil, p)
	before := derived(t, database, p.ID, model.KindCompletionApplication, "")

	p.AwardNotice.ProjectDuration = 3
	res, err := r.ReconcileAwardNotice(context.Background(), 30, p)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if res.Updated != 1 || res.Created != 0 {
		t.Errorf("result = %+v, want 1 updated", res)
	}

	after := derived(t, database, p.ID, model.KindCompletionApplication, "")
	if after.ID != before.ID {
		t.Error("expected the same task to be updated")
	}
	if after.DeadlineDate != "2024-03-03" || after.DeadlineDays != 3 || after.Priority != model.PriorityNormal {
		t.Errorf("deadline = %s days = %d priority = %s", after.DeadlineDate, after.DeadlineDays, after.Priority)
	}
}

func TestReconcile_PaymentBlockedThenScheduled(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		Contract: model.Contract{
			PaymentTerms: []model.PaymentTerm{
				{Name: "进度款", Milestone: model.MilestoneStartApplication, DaysAfterMilestone: 3, IsWorkingDays: true},
			},
		},
	})
	reconcile(t, r, nil, p)
	blocked := derived(t, database, p.ID, model.KindPayment, "进度款")
	if blocked.DeadlineDate != "" || blocked.Priority != model.PriorityLow {
		t.Fatalf("expected blocked payment, got %+v", blocked)
	}
	if blocked.Description != "项目 ZB-001 的 进度款 需要在 开工申请后 3 个工作日内付款（前置里程碑：开工申请未完成）" {
		t.Errorf("description = %q", blocked.Description)
	}

	// Friday: three working days later is Wednesday.
	p.ConstructionMaterial.StartApplicationDate = "2024-03-01"
	res := reconcile(t, r, p, p)
	if res.Created != 0 || res.Updated != 1 {
		t.Errorf("result = %+v, want 1 updated", res)
	}

	scheduled := derived(t, database, p.ID, model.KindPayment, "进度款")
	if scheduled.ID != blocked.ID {
		t.Error("expected the same task to be scheduled")
	}
	if scheduled.DeadlineDate != "2024-03-06" || scheduled.Priority != model.PriorityNormal || scheduled.StartDate != "2024-03-01" {
		t.Errorf("scheduled task = %+v", scheduled)
	}
	if scheduled.Description != "项目 ZB-001 的 进度款 需要在 3 个工作日后付款（截止日期：2024-03-06）" {
		t.Errorf("description = %q", scheduled.Description)
	}

	// Reverting the milestone blocks the task again.
	p.ConstructionMaterial.StartApplicationDate = ""
	reconcile(t, r, p, p)
	reverted := derived(t, database, p.ID, model.KindPayment, "进度款")
	if reverted.DeadlineDate != "" || reverted.Priority != model.PriorityLow {
		t.Errorf("expected blocked again, got %+v", reverted)
	}
}

func TestReconcile_PaymentRecomputedOnTermChange(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		Contract: model.Contract{
			SignDate: "2024-03-01",
			PaymentTerms: []model.PaymentTerm{
				{Name: "预付款", Milestone: model.MilestoneContractSign, DaysAfterMilestone: 20},
			},
		},
	})
	reconcile(t, r, nil, p)
	if got := derived(t, database, p.ID, model.KindPayment, "预付款").DeadlineDate; got != "2024-03-20" {
		t.Fatalf("deadline = %s, want 2024-03-20", got)
	}

	p.Contract.PaymentTerms[0].DaysAfterMilestone = 1
	reconcile(t, r, p, p)
	task := derived(t, database, p.ID, model.KindPayment, "预付款")
	if task.DeadlineDate != "2024-03-01" || task.Priority != model.PriorityHigh {
		t.Errorf("deadline = %s priority = %s, want 2024-03-01 high", task.DeadlineDate, task.Priority)
	}
	if task.DeadlineDays != 1 {
		t.Errorf("deadlineDays = %d, want 1", task.DeadlineDays)
	}
}

func TestReconcile_PaymentPaid(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		Contract: model.Contract{
			SignDate: "2024-03-01",
			PaymentTerms: []model.PaymentTerm{
				{Name: "预付款", Milestone: model.MilestoneContractSign, DaysAfterMilestone: 10},
				{Name: "尾款", Milestone: model.MilestoneSettlementAudit, DaysAfterMilestone: 10},
			},
		},
	})
	reconcile(t, r, nil, p)

	p.Contract.PaymentTerms[0].IsPaid = true
	p.Contract.PaymentTerms[0].PaymentDate = "2024-03-08"
	p.Contract.PaymentTerms[1].IsPaid = true
	res := reconcile(t, r, p, p)
	if res.Completed != 2 {
		t.Errorf("result = %+v, want 2 completed", res)
	}

	if got := derived(t, database, p.ID, model.KindPayment, "预付款").CompletedAt; got != "2024-03-08" {
		t.Errorf("completedAt = %q, want payment date", got)
	}
	if got := derived(t, database, p.ID, model.KindPayment, "尾款").CompletedAt; got != fixedNow.Format(time.RFC3339) {
		t.Errorf("completedAt = %q, want now", got)
	}
}

func TestReconcile_ContractSigning(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{AwardDate: "2024-03-01", ContractSignDays: 3, IsWorkingDays: true},
	})
	reconcile(t, r, nil, p)
	task := derived(t, database, p.ID, model.KindContractSign, "")
	if task.DeadlineDate != "2024-03-06" {
		t.Errorf("deadline = %s, want 2024-03-06", task.DeadlineDate)
	}
	if task.Description != "项目 ZB-001 需要在 3 个工作日内签署合同（截止日期：2024-03-06）" {
		t.Errorf("description = %q", task.Description)
	}

	// Changing the allowance reschedules the same task.
	p.AwardNotice.ContractSignDays = 10
	p.AwardNotice.IsWorkingDays = false
	res, err := r.ReconcileAwardNotice(context.Background(), 0, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Created != 0 {
		t.Errorf("result = %+v, want 1 updated", res)
	}
	task = derived(t, database, p.ID, model.KindContractSign, "")
	if task.DeadlineDate != "2024-03-10" || task.DeadlineDays != 10 {
		t.Errorf("deadline = %s days = %d", task.DeadlineDate, task.DeadlineDays)
	}

	p.Contract.SignDate = "2024-03-04"
	res, err = r.ReconcileContract(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Completed != 1 {
		t.Errorf("result = %+v, want 1 completed", res)
	}
	task = derived(t, database, p.ID, model.KindContractSign, "")
	if task.Status != model.StatusCompleted || task.CompletedAt != "2024-03-04" {
		t.Errorf("status = %s completedAt = %q", task.Status, task.CompletedAt)
	}
}

func TestReconcile_PerformanceBond(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		Contract: model.Contract{
			SignDate:            "2024-03-04",
			NeedPerformanceBond: true,
			PerformanceBondDays: 5,
		},
	})
	reconcile(t, r, nil, p)
	reconcile(t, r, p, p)

	task := derived(t, database, p.ID, model.KindPerformanceBond, "")
	if task.Title != "提交履约保函 - 道路改造" {
		t.Errorf("title = %q", task.Title)
	}
	if task.DeadlineDate != "2024-03-08" || task.StartDate != "2024-03-04" {
		t.Errorf("deadline = %s start = %s", task.DeadlineDate, task.StartDate)
	}
	if task.Description != "项目 ZB-001 需要在 5 天内提交履约保函（截止日期：2024-03-08）" {
		t.Errorf("description = %q", task.Description)
	}

	p.Contract.PerformanceBondSubmitDate = "2024-03-07"
	reconcile(t, r, p, p)
	task = derived(t, database, p.ID, model.KindPerformanceBond, "")
	if task.Status != model.StatusCompleted || task.CompletedAt != "2024-03-07" {
		t.Errorf("status = %s completedAt = %q", task.Status, task.CompletedAt)
	}
}

func TestReconcile_Insurance(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		Contract: model.Contract{
			InsuranceTerms: []model.Insurance{{Name: "工伤"}, {Name: "意外"}},
		},
	})
	reconcile(t, r, nil, p)
	if n := len(projectTasks(t, database, p.ID)); n != 2 {
		t.Fatalf("expected 2 insurance tasks, got %d", n)
	}

	p.Contract.InsuranceTerms[0] = model.Insurance{Name: "工伤", IsPurchased: true, PurchaseDate: "2024-03-02"}
	p.Contract.InsuranceTerms[1] = model.Insurance{Name: "意外", IsPurchased: true}
	res := reconcile(t, r, p, p)
	if res.Completed != 2 {
		t.Errorf("result = %+v, want 2 completed", res)
	}
	if got := derived(t, database, p.ID, model.KindInsurance, "工伤").CompletedAt; got != "2024-03-02" {
		t.Errorf("completedAt = %q", got)
	}
	if got := derived(t, database, p.ID, model.KindInsurance, "意外").CompletedAt; got != fixedNow.Format(time.RFC3339) {
		t.Errorf("completedAt = %q", got)
	}
}

func TestReconcile_UnsavedProject(t *testing.T) {
	_, r := setup(t)
	if _, err := r.Reconcile(context.Background(), nil, &model.Project{}); err == nil {
		t.Error("expected error for project without id")
	}
}

func TestReconcile_InvalidDate(t *testing.T) {
	database, r := setup(t)
	p := createProject(t, database, &model.Project{
		AwardNotice: model.AwardNotice{AwardDate: "1 March", ContractSignDays: 3},
	})
	if _, err := r.Reconcile(context.Background(), nil, p); err == nil {
		t.Error("expected error for invalid award date")
	}
}
