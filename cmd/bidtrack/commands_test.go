package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baiirun/bidtrack/internal/backup"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/model"
	"github.com/baiirun/bidtrack/internal/reconcile"
	"github.com/baiirun/bidtrack/internal/report"
	"github.com/baiirun/bidtrack/internal/summary"
)

func addTestProject(t *testing.T, a *app) *model.Project {
	t.Helper()
	p := &model.Project{
		Year:          2024,
		ProjectNumber: "ZB-001",
		ProjectName:   "道路改造",
		Category:      model.CategoryEngineering,
		AwardNotice:   model.AwardNotice{AwardDate: "2024-03-01", ContractSignDays: 7, ProjectDuration: 90},
	}
	var err error
	captureOutput(func() { err = runProjectAdd(context.Background(), a, p) })
	if err != nil {
		t.Fatalf("runProjectAdd failed: %v", err)
	}
	return p
}

func TestYearCommands(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	for _, y := range []int{2023, 2024} {
		var err error
		out := captureOutput(func() { err = runYearAdd(ctx, a, y) })
		if err != nil {
			t.Fatalf("runYearAdd(%d) failed: %v", y, err)
		}
		if !strings.Contains(out, "Added year") {
			t.Errorf("unexpected output: %q", out)
		}
	}

	var err error
	captureOutput(func() { err = runYearAdd(ctx, a, 2024) })
	if err == nil {
		t.Error("expected error adding a duplicate year")
	}

	out := captureOutput(func() { err = runYearList(ctx, a) })
	if err != nil {
		t.Fatalf("runYearList failed: %v", err)
	}
	if out != "2024  0 projects\n2023  0 projects\n" {
		t.Errorf("year list = %q", out)
	}

	out = captureOutput(func() { err = runYearDelete(ctx, a, 2023) })
	if err != nil {
		t.Fatalf("runYearDelete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted year 2023 and 0 projects") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2024", false},
		{"24x", true},
		{"12", true},
	}
	for _, tt := range tests {
		if _, err := parseYear(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("parseYear(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestProjectAdd(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	p := &model.Project{
		Year:          2024,
		ProjectNumber: "ZB-001",
		ProjectName:   "道路改造",
		Category:      model.CategoryEngineering,
		AwardNotice:   model.AwardNotice{AwardDate: "2024-03-01", ContractSignDays: 7},
	}
	var err error
	out := captureOutput(func() { err = runProjectAdd(ctx, a, p) })
	if err != nil {
		t.Fatalf("runProjectAdd failed: %v", err)
	}
	if !strings.Contains(out, "Created project 1: ZB-001 - 道路改造") || !strings.Contains(out, "Tasks: 1 created") {
		t.Errorf("unexpected output: %q", out)
	}

	years, _ := a.db.ListYears(ctx)
	if len(years) != 1 || years[0].Year != 2024 {
		t.Errorf("years = %+v, want 2024 added", years)
	}

	tasks, _ := a.db.ListProjectTasks(ctx, p.ID)
	if len(tasks) != 1 || tasks[0].Title != "签署合同 - 道路改造" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestProjectListAndShow(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)

	var err error
	out := captureOutput(func() { err = runProjectList(ctx, a, nil) })
	if err != nil {
		t.Fatalf("runProjectList failed: %v", err)
	}
	if !strings.Contains(out, "ZB-001") || !strings.Contains(out, "awarded 2024-03-01") {
		t.Errorf("unexpected list output: %q", out)
	}

	other := 2020
	out = captureOutput(func() { err = runProjectList(ctx, a, &other) })
	if out != "No projects\n" {
		t.Errorf("filtered list = %q", out)
	}

	out = captureOutput(func() { err = runProjectShow(ctx, a, p.ID, false) })
	if err != nil {
		t.Fatalf("runProjectShow failed: %v", err)
	}
	if !strings.HasPrefix(out, "# ZB-001 - 道路改造") {
		t.Errorf("show output = %q", out)
	}

	out = captureOutput(func() { err = runProjectShow(ctx, a, p.ID, true) })
	var got model.Project
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if got.ProjectNumber != "ZB-001" || got.AwardNotice.ProjectDuration != 90 {
		t.Errorf("json project = %+v", got)
	}

	captureOutput(func() { err = runProjectShow(ctx, a, 99, false) })
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProjectApply(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)

	path := filepath.Join(t.TempDir(), "contract.yaml")
	doc := `
contract:
  signDate: "2024-03-05"
  needPerformanceBond: false
  paymentTerms:
    - name: 预付款
      milestone: contract_sign_date
      daysAfterMilestone: 10
  insuranceTerms: []
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	var err error
	out := captureOutput(func() { err = runProjectApply(ctx, a, p.ID, path) })
	if err != nil {
		t.Fatalf("runProjectApply failed: %v", err)
	}
	if !strings.Contains(out, "1 created") || !strings.Contains(out, "1 completed") {
		t.Errorf("unexpected output: %q", out)
	}

	got, _ := a.db.GetProject(ctx, p.ID)
	if got.Contract.SignDate != "2024-03-05" || got.AwardNotice.ContractSignDays != 7 {
		t.Errorf("project after apply = %+v", got)
	}

	tasks, _ := a.db.ListProjectTasks(ctx, p.ID)
	var sign, pay *model.Task
	for i := range tasks {
		switch {
		case tasks[i].Source.Matches(model.KindContractSign, ""):
			sign = &tasks[i]
		case tasks[i].Source.Matches(model.KindPayment, "预付款"):
			pay = &tasks[i]
		}
	}
	if sign == nil || sign.Status != model.StatusCompleted {
		t.Errorf("sign task = %+v, want completed", sign)
	}
	if pay == nil || pay.DeadlineDate != "2024-03-14" {
		t.Errorf("payment task = %+v, want due 2024-03-14", pay)
	}

	// Applying the same document again changes nothing.
	out = captureOutput(func() { err = runProjectApply(ctx, a, p.ID, path) })
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if !strings.Contains(out, "0 created, 0 updated, 0 completed, 0 reopened") {
		t.Errorf("second apply output: %q", out)
	}
}

func TestProjectApply_JSONAndRenameGuard(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "award.json")
	os.WriteFile(jsonPath, []byte(`{"id": 42, "awardNotice": {"awardDate": "2024-03-01", "contractSignDays": 3, "projectDuration": 90}}`), 0644)

	var err error
	captureOutput(func() { err = runProjectApply(ctx, a, p.ID, jsonPath) })
	if err != nil {
		t.Fatalf("runProjectApply failed: %v", err)
	}
	sign, _ := a.db.ListProjectTasks(ctx, p.ID)
	if len(sign) != 1 || sign[0].DeadlineDate != "2024-03-03" {
		t.Errorf("sign task after json apply = %+v", sign)
	}
	if _, err := a.db.GetProject(ctx, 42); !errors.Is(err, db.ErrNotFound) {
		t.Error("document id must not move the project")
	}

	renamePath := filepath.Join(dir, "rename.yaml")
	os.WriteFile(renamePath, []byte("projectName: 新名字\n"), 0644)
	captureOutput(func() { err = runProjectApply(ctx, a, p.ID, renamePath) })
	if err == nil {
		t.Error("expected apply to refuse a name change")
	}
}

func TestProjectSyncAndDelete(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)

	var err error
	out := captureOutput(func() { err = runProjectSync(ctx, a, p.ID) })
	if err != nil {
		t.Fatalf("runProjectSync failed: %v", err)
	}
	if out != "Project ZB-001 is up to date\n" {
		t.Errorf("sync output = %q", out)
	}

	out = captureOutput(func() { err = runProjectDelete(ctx, a, p.ID) })
	if err != nil {
		t.Fatalf("runProjectDelete failed: %v", err)
	}
	if out != "Deleted project ZB-001 and 1 tasks\n" {
		t.Errorf("delete output = %q", out)
	}
	tasks, _ := a.db.ListTasks(ctx, db.TaskFilter{})
	if len(tasks) != 0 {
		t.Errorf("expected project tasks removed, got %d", len(tasks))
	}
}

func TestTaskCommands(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)

	var err error
	out := captureOutput(func() {
		err = runTaskAdd(ctx, a, reconcile.ManualTask{Title: "买水泥", StartDate: "2024-03-01", Days: 3}, p.ID)
	})
	if err != nil {
		t.Fatalf("runTaskAdd failed: %v", err)
	}
	if out != "Created task 2: 买水泥 (due 2024-03-03, 普通)\n" {
		t.Errorf("add output = %q", out)
	}

	captureOutput(func() {
		err = runTaskAdd(ctx, a, reconcile.ManualTask{Title: "x", Days: 1}, 99)
	})
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for missing project", err)
	}

	out = captureOutput(func() { err = runTaskList(ctx, a, db.TaskFilter{}, false) })
	if err != nil {
		t.Fatalf("runTaskList failed: %v", err)
	}
	if !strings.Contains(out, "买水泥  [ZB-001]") || !strings.Contains(out, "签署合同 - 道路改造") {
		t.Errorf("list output = %q", out)
	}

	out = captureOutput(func() { err = runTaskDone(ctx, a, 2) })
	if err != nil || out != "Completed task 2: 买水泥\n" {
		t.Errorf("done: out=%q err=%v", out, err)
	}
	out = captureOutput(func() { err = runTaskDone(ctx, a, 2) })
	if out != "Task 2 is already completed\n" {
		t.Errorf("second done = %q", out)
	}

	done := model.StatusCompleted
	out = captureOutput(func() { err = runTaskList(ctx, a, db.TaskFilter{Status: &done}, true) })
	var tasks []model.Task
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(tasks) != 1 || tasks[0].CompletedAt != fixedNow.Format("2006-01-02T15:04:05Z07:00") {
		t.Errorf("completed tasks = %+v", tasks)
	}
}

func TestTaskLine_OrphanedProject(t *testing.T) {
	pid := int64(7)
	line := taskLine(model.Task{ID: 3, Title: "旧任务", ProjectID: &pid, Priority: model.PriorityLow, Status: model.StatusPending})
	if !strings.HasSuffix(line, "[#7]") {
		t.Errorf("line = %q, want raw project id", line)
	}
}

func TestDashboard(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	addTestProject(t, a)

	// A stale priority is corrected before bucketing.
	stale := &model.Task{Title: "过期", DeadlineDate: "2024-02-20", Priority: model.PriorityLow}
	if _, err := a.db.CreateTask(ctx, stale); err != nil {
		t.Fatal(err)
	}

	var err error
	out := captureOutput(func() { err = runDashboard(ctx, a, true) })
	if err != nil {
		t.Fatalf("runDashboard failed: %v", err)
	}
	var s summary.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if s.Counts.Overdue != 1 || s.Counts.Next7Days != 1 {
		t.Errorf("counts = %+v", s.Counts)
	}
	if s.Overdue[0].Priority != model.PriorityUrgent {
		t.Errorf("overdue priority = %s, want urgent", s.Overdue[0].Priority)
	}

	out = captureOutput(func() { err = runDashboard(ctx, a, false) })
	for _, want := range []string{"待完成任务：2", "已逾期 (1)", "7天内到期 (1)", "其他任务 (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q\n%s", want, out)
		}
	}
}

func TestDeadlineAndCalendar(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	var err error
	out := captureOutput(func() { err = runDeadline(ctx, a, "2024-03-01", 5, true) })
	if err != nil {
		t.Fatalf("runDeadline failed: %v", err)
	}
	if !strings.Contains(out, "Deadline: 2024-03-08") || !strings.Contains(out, "Priority: 普通") {
		t.Errorf("deadline output = %q", out)
	}

	captureOutput(func() { err = runDeadline(ctx, a, "03/01/2024", 5, false) })
	if err == nil {
		t.Error("expected error for bad start date")
	}

	out = captureOutput(func() { err = runCalendar(ctx, a, "2024-03-02", false) })
	if err != nil {
		t.Fatalf("runCalendar failed: %v", err)
	}
	if !strings.Contains(out, "Business day: false") || !strings.Contains(out, "Saturday") {
		t.Errorf("calendar output = %q", out)
	}
}

func TestExportImport(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	addTestProject(t, a)
	path := filepath.Join(t.TempDir(), "backup.json")

	var err error
	out := captureOutput(func() { err = runExport(ctx, a, path) })
	if err != nil {
		t.Fatalf("runExport failed: %v", err)
	}
	if !strings.Contains(out, "Exported 1 projects, 1 tasks, 1 years") {
		t.Errorf("export output = %q", out)
	}

	b := setupTestApp(t)
	out = captureOutput(func() { err = runImport(ctx, b, path) })
	if err != nil {
		t.Fatalf("runImport failed: %v", err)
	}
	if !strings.Contains(out, "Imported 1 projects, 1 tasks, 1 years") {
		t.Errorf("import output = %q", out)
	}
	projects, _ := b.db.ListProjects(ctx, db.ProjectFilter{})
	if len(projects) != 1 || projects[0].ProjectNumber != "ZB-001" {
		t.Errorf("imported projects = %+v", projects)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"tasks": []}`), 0644)
	captureOutput(func() { err = runImport(ctx, b, bad) })
	if !errors.Is(err, backup.ErrInvalidFormat) {
		t.Errorf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestReport(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	addTestProject(t, a)

	var err error
	out := captureOutput(func() { err = runReport(ctx, a, report.Filter{}, "") })
	if err != nil {
		t.Fatalf("runReport failed: %v", err)
	}
	if !strings.Contains(out, "## 2024年度") || !strings.Contains(out, "- **签署合同 - 道路改造**") {
		t.Errorf("report output = %q", out)
	}

	out = captureOutput(func() { err = runReport(ctx, a, report.Filter{Years: []int{2023}}, "") })
	if !strings.Contains(out, "项目总数：0") {
		t.Errorf("filtered report = %q", out)
	}

	path := filepath.Join(t.TempDir(), report.FileName(fixedNow))
	captureOutput(func() { err = runReport(ctx, a, report.Filter{}, path) })
	if err != nil {
		t.Fatalf("runReport to file failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.HasPrefix(string(data), "# 项目报告") {
		t.Errorf("report file = %q, err %v", data, err)
	}
}

func TestStorage(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	addTestProject(t, a)

	var err error
	out := captureOutput(func() { err = runStorage(ctx, a, false) })
	if err != nil {
		t.Fatalf("runStorage failed: %v", err)
	}
	if !strings.Contains(out, "Status:    healthy") || !strings.Contains(out, "Projects:  1") {
		t.Errorf("storage output = %q", out)
	}

	out = captureOutput(func() { err = runStorage(ctx, a, true) })
	var got struct {
		Health backup.Health     `json:"health"`
		Stats  backup.Statistics `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if got.Health.Status != backup.HealthHealthy || got.Stats.TaskCount != 1 {
		t.Errorf("storage json = %+v", got)
	}
}

func TestServeMux(t *testing.T) {
	a := setupTestApp(t)
	srv := httptest.NewServer(newServeMux(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestImportThenSync_PaymentNamedAfterSigning(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()

	legacy := `{
  "tasks": [
    {"id": 3, "title": "签署合同 - 桥梁维修", "description": "", "startDate": "2024-03-01", "deadlineDays": 7,
     "deadlineDate": "2024-03-07", "priority": "normal", "status": "pending", "projectId": 1,
     "projectNumber": "Q-9", "isProjectTask": true, "createdAt": "2024-03-01T02:00:00.000Z"},
    {"id": 4, "title": "签署合同后预付款付款 - 桥梁维修", "description": "", "startDate": "2024-03-01",
     "deadlineDays": 10, "deadlineDate": "", "priority": "low", "status": "pending", "projectId": 1,
     "projectNumber": "Q-9", "isProjectTask": true, "createdAt": "2024-03-01T02:00:00.000Z"}
  ],
  "projects": [
    {"id": 1, "year": 2024, "projectNumber": "Q-9", "projectName": "桥梁维修", "category": "工程",
     "awardNotice": {"awardDate": "2024-03-01", "contractSignDays": 7},
     "contract": {"needPerformanceBond": false, "insuranceTerms": [],
       "paymentTerms": [{"name": "签署合同后预付款", "milestone": "contract_sign_date", "daysAfterMilestone": 10}]},
     "constructionMaterial": {}, "createdAt": "2024-03-01T01:00:00.000Z"}
  ],
  "years": [{"id": 1, "year": 2024, "createdAt": "2024-01-01T00:00:00.000Z"}]
}`
	path := filepath.Join(t.TempDir(), "legacy.json")
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	var err error
	captureOutput(func() { err = runImport(ctx, a, path) })
	if err != nil {
		t.Fatalf("runImport failed: %v", err)
	}
	captureOutput(func() { err = runProjectSync(ctx, a, 1) })
	if err != nil {
		t.Fatalf("runProjectSync failed: %v", err)
	}

	tasks, _ := a.db.ListProjectTasks(ctx, 1)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks after sync, got %d: %+v", len(tasks), tasks)
	}
	payments := 0
	for _, task := range tasks {
		switch task.ID {
		case 3:
			if !task.Source.Matches(model.KindContractSign, "") || task.DeadlineDate != "2024-03-07" {
				t.Errorf("sign task = %+v", task)
			}
		case 4:
			if !task.Source.Matches(model.KindPayment, "签署合同后预付款") || task.DeadlineDate != "" {
				t.Errorf("payment task = %+v", task)
			}
		}
		if task.Source.Matches(model.KindPayment, "签署合同后预付款") {
			payments++
		}
	}
	if payments != 1 {
		t.Errorf("payment tasks = %d, want 1", payments)
	}
}

func TestProjectApply_SectionReplacedWhole(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	p := addTestProject(t, a)
	dir := t.TempDir()

	terms := filepath.Join(dir, "terms.yaml")
	os.WriteFile(terms, []byte(`
contract:
  paymentTerms:
    - name: 预付款
      milestone: contract_sign_date
      daysAfterMilestone: 10
`), 0644)
	signed := filepath.Join(dir, "signed.yaml")
	os.WriteFile(signed, []byte("contract:\n  signDate: \"2024-03-05\"\n"), 0644)

	var err error
	captureOutput(func() { err = runProjectApply(ctx, a, p.ID, terms) })
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	captureOutput(func() { err = runProjectApply(ctx, a, p.ID, signed) })
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	got, _ := a.db.GetProject(ctx, p.ID)
	if got.Contract.SignDate != "2024-03-05" {
		t.Errorf("signDate = %q, want 2024-03-05", got.Contract.SignDate)
	}
	if len(got.Contract.PaymentTerms) != 0 {
		t.Errorf("paymentTerms = %+v, want replaced by the contract section", got.Contract.PaymentTerms)
	}
	if got.AwardNotice.ContractSignDays != 7 || got.ProjectName != "道路改造" {
		t.Errorf("sections absent from the document changed: %+v", got)
	}
}
