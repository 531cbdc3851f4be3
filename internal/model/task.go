package model

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// IsValid returns true if the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Label returns the display label used in reports.
func (p Priority) Label() string {
	switch p {
	case PriorityUrgent:
		return "加急"
	case PriorityHigh:
		return "急"
	case PriorityNormal:
		return "普通"
	default:
		return "不急"
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Task is a to-do item, either entered by hand or derived from project state.
//
// DeadlineDate is empty while the task is blocked on a milestone that has no
// date yet. ProjectID is a weak reference: the project may have been deleted.
type Task struct {
	ID            int64          `json:"id,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	StartDate     string         `json:"startDate"`
	DeadlineDays  int            `json:"deadlineDays"`
	DeadlineDate  string         `json:"deadlineDate"`
	Priority      Priority       `json:"priority"`
	Status        Status         `json:"status"`
	ProjectID     *int64         `json:"projectId,omitempty"`
	ProjectNumber string         `json:"projectNumber,omitempty"`
	IsProjectTask bool           `json:"isProjectTask"`
	Source        *DerivedSource `json:"source,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	CompletedAt   string         `json:"completedAt,omitempty"`
}

// IsPending reports whether the task still needs doing.
func (t Task) IsPending() bool {
	return t.Status == StatusPending
}

// HasDeadline reports whether the task has a scheduled deadline.
func (t Task) HasDeadline() bool {
	return t.DeadlineDate != ""
}

// TaskPatch is a partial update. Nil fields are left untouched; a non-nil
// CompletedAt pointing at "" clears the completion timestamp.
type TaskPatch struct {
	Title         *string
	Description   *string
	StartDate     *string
	DeadlineDays  *int
	DeadlineDate  *string
	Priority      *Priority
	Status        *Status
	ProjectNumber *string
	CompletedAt   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StartDate == nil &&
		p.DeadlineDays == nil && p.DeadlineDate == nil && p.Priority == nil &&
		p.Status == nil && p.ProjectNumber == nil && p.CompletedAt == nil
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Year groups projects by their Year value.
type Year struct {
	ID        int64  `json:"id,omitempty"`
	Year      int    `json:"year"`
	CreatedAt string `json:"createdAt"`
}
