// Package tui provides the interactive deadline dashboard using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/bidtrack/internal/model"
	"github.com/baiirun/bidtrack/internal/report"
	"github.com/baiirun/bidtrack/internal/scheduler"
	"github.com/baiirun/bidtrack/internal/summary"
)

// Store is the task persistence the dashboard needs.
type Store interface {
	scheduler.TaskLister
	CompleteTask(ctx context.Context, id int64, at string) error
	DeleteTask(ctx context.Context, id int64) error
}

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// InputMode represents what kind of text input is active.
type InputMode int

const (
	InputNone InputMode = iota
	InputSearch
)

// FocusPane represents which pane is focused in split view.
type FocusPane int

const (
	FocusList FocusPane = iota
	FocusDetail
)

// bucketAll selects every pending task.
const bucketAll summary.Bucket = ""

// Minimum terminal width for split view
const minSplitWidth = 80

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	store   Store
	refresh scheduler.Refresher
	now     func() time.Time

	summary  summary.Summary
	filtered []model.Task
	cursor   int
	viewMode ViewMode

	bucket       summary.Bucket
	filterSearch string

	inputMode  InputMode
	inputText  string
	inputLabel string

	width   int
	height  int
	err     error
	message string

	focusPane    FocusPane
	detailScroll int
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	priorityColors = map[model.Priority]lipgloss.Color{
		model.PriorityUrgent: lipgloss.Color("196"),
		model.PriorityHigh:   lipgloss.Color("214"),
		model.PriorityNormal: lipgloss.Color("39"),
		model.PriorityLow:    lipgloss.Color("245"),
	}

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	contentPadding = 2
)

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "‼"
	case model.PriorityHigh:
		return "!"
	case model.PriorityNormal:
		return "•"
	default:
		return "·"
	}
}

// New creates a dashboard over the given store. now is the clock used to
// bucket tasks; nil means time.Now.
func New(store Store, refresh scheduler.Refresher, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		store:    store,
		refresh:  refresh,
		now:      now,
		viewMode: ViewList,
		bucket:   bucketAll,
	}
}

type summaryMsg struct {
	summary summary.Summary
	changed int
	err     error
}

type actionMsg struct {
	message string
	err     error
}

// load refreshes priorities and rebuilds the buckets.
func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		s, changed, err := scheduler.Snapshot(context.Background(), m.refresh, m.store, m.now())
		return summaryMsg{summary: s, changed: changed, err: err}
	}
}

// applyFilters narrows the pending tasks to the selected bucket and search.
func (m *Model) applyFilters() {
	var source []model.Task
	if m.bucket == bucketAll {
		for _, b := range summary.Buckets {
			source = append(source, m.summary.Tasks(b)...)
		}
	} else {
		source = m.summary.Tasks(m.bucket)
	}

	m.filtered = nil
	search := strings.ToLower(m.filterSearch)
	for _, t := range source {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) &&
			!strings.Contains(strings.ToLower(t.ProjectNumber), search) {
			continue
		}
		m.filtered = append(m.filtered, t)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

func (m Model) selected() (model.Task, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return model.Task{}, false
	}
	return m.filtered[m.cursor], true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewMode == ViewDetail && m.width >= minSplitWidth {
			m.viewMode = ViewList
		}
		return m, nil

	case summaryMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.summary = msg.summary
		m.applyFilters()
		if msg.changed > 0 {
			m.message = fmt.Sprintf("已更新 %d 个任务的优先级", msg.changed)
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		return m, m.load()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = InputNone
		m.inputText = ""
		m.filterSearch = ""
		m.applyFilters()
		return m, nil

	case tea.KeyEnter:
		m.inputMode = InputNone
		m.filterSearch = m.inputText
		m.inputText = ""
		m.applyFilters()
		return m, nil

	case tea.KeyBackspace:
		if r := []rune(m.inputText); len(r) > 0 {
			m.inputText = string(r[:len(r)-1])
		}

	case tea.KeyRunes, tea.KeySpace:
		m.inputText += string(msg.Runes)

	default:
		return m, nil
	}

	m.filterSearch = m.inputText
	m.applyFilters()
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.width >= minSplitWidth && m.focusPane == FocusDetail {
		return m.handleDetailPaneKey(msg)
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.width >= minSplitWidth {
			m.focusPane = FocusDetail
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.detailScroll = 0
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.detailScroll = 0
		}

	case "g", "home":
		m.cursor = 0

	case "G", "end":
		m.cursor = max(0, len(m.filtered)-1)

	case "enter":
		if m.width < minSplitWidth && len(m.filtered) > 0 {
			m.viewMode = ViewDetail
		}

	case "0":
		m.bucket = bucketAll
		m.cursor = 0
		m.applyFilters()

	case "1", "2", "3", "4", "5":
		m.bucket = summary.Buckets[key[0]-'1']
		m.cursor = 0
		m.applyFilters()

	case "left", "h":
		m.bucket = m.cycleBucket(-1)
		m.cursor = 0
		m.applyFilters()

	case "right", "l":
		m.bucket = m.cycleBucket(1)
		m.cursor = 0
		m.applyFilters()

	case "/":
		m.inputMode = InputSearch
		m.inputLabel = "搜索: "
		m.inputText = m.filterSearch

	case "esc":
		if m.filterSearch != "" || m.bucket != bucketAll {
			m.filterSearch = ""
			m.bucket = bucketAll
			m.applyFilters()
		} else {
			return m, tea.Quit
		}

	case "r":
		return m, m.load()

	case "d":
		return m.doDone()

	case "X":
		return m.doDelete()
	}

	return m, nil
}

// cycleBucket steps through all, then each bucket in order, wrapping.
func (m Model) cycleBucket(step int) summary.Bucket {
	tabs := append([]summary.Bucket{bucketAll}, summary.Buckets...)
	i := 0
	for j, b := range tabs {
		if b == m.bucket {
			i = j
		}
	}
	i = (i + step + len(tabs)) % len(tabs)
	return tabs[i]
}

// handleDetailPaneKey handles keys when the detail pane is focused in split view.
func (m Model) handleDetailPaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "esc", "h":
		m.focusPane = FocusList

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}

	case "down", "j":
		m.detailScroll++

	case "g", "home":
		m.detailScroll = 0

	case "d":
		return m.doDone()
	}

	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc", "h", "backspace":
		m.viewMode = ViewList

	case "d":
		return m.doDone()
	}

	return m, nil
}

func (m Model) doDone() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !t.IsPending() {
		m.message = "任务已完成"
		return m, nil
	}
	at := m.now().Format(time.RFC3339)
	return m, func() tea.Msg {
		if err := m.store.CompleteTask(context.Background(), t.ID, at); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: "已完成 " + t.Title}
	}
}

func (m Model) doDelete() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		if err := m.store.DeleteTask(context.Background(), t.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: "已删除 " + t.Title}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	switch m.viewMode {
	case ViewList:
		b.WriteString(m.listView())
	case ViewDetail:
		b.WriteString(m.detailView(0, 0))
	}

	if m.inputMode != InputNone {
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(m.inputLabel + m.inputText + "█"))
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("错误: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) listView() string {
	if m.width >= minSplitWidth {
		return m.splitView()
	}
	height := m.height - 8
	if height < 10 {
		height = 15
	}
	return m.renderList(m.width-(contentPadding*2), height)
}

// splitView renders the list on the left and details on the right.
func (m Model) splitView() string {
	focusedColor := lipgloss.Color("39")
	unfocusedColor := lipgloss.Color("241")

	// 1 border char each side of each pane, plus the gap between them
	gap := 1
	availableWidth := m.width - 4 - gap - (contentPadding * 2)
	leftWidth := availableWidth / 2
	rightWidth := availableWidth - leftWidth

	contentHeight := max(m.height-4, 10)

	leftLines := normalizeLines(strings.Split(m.renderList(leftWidth, contentHeight), "\n"), contentHeight, leftWidth)
	rightLines := normalizeLines(strings.Split(m.detailView(rightWidth, contentHeight), "\n"), contentHeight, rightWidth)

	leftColor, rightColor := focusedColor, unfocusedColor
	if m.focusPane == FocusDetail {
		leftColor, rightColor = unfocusedColor, focusedColor
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		buildBorderedBox(leftLines, leftWidth, leftColor),
		strings.Repeat(" ", gap),
		buildBorderedBox(rightLines, rightWidth, rightColor),
	)
}

// normalizeLines returns exactly height lines, each padded to width.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := range result {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)
	horizontal := strings.Repeat(style.Render("─"), contentWidth)
	vertical := style.Render("│")

	var b strings.Builder
	b.WriteString(style.Render("╭") + horizontal + style.Render("╮") + "\n")
	for _, line := range lines {
		b.WriteString(vertical + line + vertical + "\n")
	}
	b.WriteString(style.Render("╰") + horizontal + style.Render("╯"))
	return b.String()
}

// padToWidth pads s with spaces to the given visible width.
func padToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens s to at most width terminal cells. CJK runes take two.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}

func (m Model) tabs() string {
	counts := m.summary.Counts
	parts := []string{m.renderTab(bucketAll, "全部", counts.Total())}
	for _, b := range summary.Buckets {
		parts = append(parts, m.renderTab(b, b.Label(), counts.Of(b)))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderTab(b summary.Bucket, label string, n int) string {
	text := fmt.Sprintf(" %s %d ", label, n)
	if b == m.bucket {
		return activeTabStyle.Render(text)
	}
	return tabStyle.Render(text)
}

func (m Model) renderList(width, height int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bidtrack"))
	b.WriteString(fmt.Sprintf("  %d/%d 待完成", len(m.filtered), m.summary.Counts.Total()))
	if m.filterSearch != "" {
		b.WriteString("  ")
		b.WriteString(filterStyle.Render(truncate("搜索:\""+m.filterSearch+"\"", max(width-24, 10))))
	}
	b.WriteString("\n")
	tabs := lipgloss.NewStyle().Width(width).Render(m.tabs())
	b.WriteString(tabs)
	b.WriteString("\n\n")

	// title, blank line and the 3-line footer around the tabs
	rows := max(height-5-lipgloss.Height(tabs), 3)

	if len(m.filtered) == 0 {
		b.WriteString("没有符合条件的任务\n")
	} else {
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		end := min(start+rows, len(m.filtered))
		rowWidth := max(width, 40)

		for i := start; i < end; i++ {
			t := m.filtered[i]
			if i == m.cursor {
				b.WriteString(selectedRowStyle.Width(rowWidth).Render(formatLine(t, rowWidth, false)))
			} else {
				b.WriteString(lipgloss.NewStyle().Width(rowWidth).Render(formatLine(t, rowWidth, true)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.width >= minSplitWidth {
		b.WriteString(helpStyle.Render("j/k:移动  tab:详情  d:完成 X:删除  r:刷新"))
	} else {
		b.WriteString(helpStyle.Render("j/k:移动  enter:详情  d:完成 X:删除  r:刷新"))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("0-5/h/l:分组  /:搜索  esc:清除  q:退出"))

	return b.String()
}

// formatLine renders: icon deadline title [project]. Styled lines color the
// icon by priority; the selected row is left plain for the highlight.
func formatLine(t model.Task, width int, styled bool) string {
	icon := priorityIcon(t.Priority)
	due := t.DeadlineDate
	if due == "" {
		due = "----------"
	}
	project := ""
	if t.ProjectNumber != "" {
		project = "[" + t.ProjectNumber + "]"
	}

	// icon(1) + space(1) + date(10) + spaces(2) + space before project(1)
	titleWidth := max(width-15-lipgloss.Width(project), 10)
	title := padToWidth(truncate(t.Title, titleWidth), titleWidth)

	if styled {
		icon = lipgloss.NewStyle().Foreground(priorityColors[t.Priority]).Render(icon)
		due = dimStyle.Render(due)
		project = dimStyle.Render(project)
	}
	return fmt.Sprintf("%s %s  %s %s", icon, due, title, project)
}

// detailView renders the selected task. A zero width means the full
// terminal; a non-zero height applies the detail scroll offset.
func (m Model) detailView(width, height int) string {
	t, ok := m.selected()
	if !ok {
		return "未选择任务"
	}

	effectiveWidth := width
	if effectiveWidth == 0 {
		effectiveWidth = m.width - (contentPadding * 2)
	}
	effectiveWidth = max(effectiveWidth, 40)

	color := priorityColors[t.Priority]
	icon := lipgloss.NewStyle().Foreground(color).Render(priorityIcon(t.Priority))

	lines := []string{
		icon + " " + titleStyle.Render(truncate(t.Title, effectiveWidth-4)),
		"",
		detailLabelStyle.Render("编号:     ") + fmt.Sprintf("%d", t.ID),
		detailLabelStyle.Render("优先级:   ") + lipgloss.NewStyle().Foreground(color).Render(t.Priority.Label()),
		detailLabelStyle.Render("开始日期: ") + report.Date(t.StartDate),
		detailLabelStyle.Render("截止日期: ") + report.Date(t.DeadlineDate),
	}
	if t.DeadlineDays > 0 {
		lines = append(lines, detailLabelStyle.Render("期限:     ")+fmt.Sprintf("%d 天", t.DeadlineDays))
	}
	if t.ProjectNumber != "" {
		lines = append(lines, detailLabelStyle.Render("项目:     ")+t.ProjectNumber)
	}
	if t.Source != nil {
		lines = append(lines, detailLabelStyle.Render("来源:     ")+dimStyle.Render(string(t.Source.Kind)+" "+t.Source.Key))
	}
	lines = append(lines, detailLabelStyle.Render("创建时间: ")+dimStyle.Render(t.CreatedAt))

	if t.Description != "" {
		lines = append(lines, "", detailLabelStyle.Render("描述:"))
		for _, dl := range strings.Split(t.Description, "\n") {
			lines = append(lines, truncate(dl, effectiveWidth))
		}
	}

	if width == 0 {
		lines = append(lines, "", helpStyle.Render("esc:返回  d:完成  q:退出"))
		return strings.Join(lines, "\n")
	}

	visible := height
	if visible <= 0 {
		visible = len(lines)
	}
	scroll := min(m.detailScroll, max(0, len(lines)-visible))
	end := min(scroll+visible, len(lines))
	return strings.Join(lines[scroll:end], "\n")
}

// Run starts the dashboard.
func Run(store Store, refresh scheduler.Refresher) error {
	p := tea.NewProgram(New(store, refresh, nil), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
