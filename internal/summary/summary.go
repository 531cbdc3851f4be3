// Package summary groups pending tasks into the dashboard's display buckets.
package summary

import (
	"time"

	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/model"
)

// Bucket is a dashboard grouping. Unlike priorities it separates
// "due within a month" from everything further out.
type Bucket string

const (
	BucketOverdue    Bucket = "overdue"
	BucketToday      Bucket = "today"
	BucketNext7Days  Bucket = "next7Days"
	BucketNext30Days Bucket = "next30Days"
	BucketOther      Bucket = "other"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketOverdue, BucketToday, BucketNext7Days, BucketNext30Days, BucketOther}

// Label returns the dashboard heading for the bucket.
func (b Bucket) Label() string {
	switch b {
	case BucketOverdue:
		return "已逾期"
	case BucketToday:
		return "今日到期"
	case BucketNext7Days:
		return "7天内到期"
	case BucketNext30Days:
		return "30天内到期"
	case BucketOther:
		return "其他任务"
	}
	return string(b)
}

type Counts struct {
	Overdue    int `json:"overdue"`
	Today      int `json:"today"`
	Next7Days  int `json:"next7Days"`
	Next30Days int `json:"next30Days"`
	Other      int `json:"other"`
}

// Total is the number of pending tasks counted.
func (c Counts) Total() int {
	return c.Overdue + c.Today + c.Next7Days + c.Next30Days + c.Other
}

// Of returns the count for one bucket.
func (c Counts) Of(b Bucket) int {
	switch b {
	case BucketOverdue:
		return c.Overdue
	case BucketToday:
		return c.Today
	case BucketNext7Days:
		return c.Next7Days
	case BucketNext30Days:
		return c.Next30Days
	case BucketOther:
		return c.Other
	}
	return 0
}

// Summary holds the pending tasks of each bucket, in input order.
type Summary struct {
	Overdue    []model.Task `json:"overdue"`
	Today      []model.Task `json:"today"`
	Next7Days  []model.Task `json:"next7Days"`
	Next30Days []model.Task `json:"next30Days"`
	Other      []model.Task `json:"other"`
	Counts     Counts       `json:"counts"`
}

// Tasks returns the list for one bucket.
func (s *Summary) Tasks(b Bucket) []model.Task {
	switch b {
	case BucketOverdue:
		return s.Overdue
	case BucketToday:
		return s.Today
	case BucketNext7Days:
		return s.Next7Days
	case BucketNext30Days:
		return s.Next30Days
	case BucketOther:
		return s.Other
	}
	return nil
}

// BucketOf places a single pending task. Tasks without a usable deadline
// and tasks due more than 30 days out both land in BucketOther.
func BucketOf(t model.Task, today time.Time) Bucket {
	if t.DeadlineDate == "" {
		return BucketOther
	}
	d, err := deadline.ParseDate(t.DeadlineDate)
	if err != nil {
		return BucketOther
	}

	diff := deadline.DaysBetween(d, today)
	switch {
	case diff < 0:
		return BucketOverdue
	case diff == 0:
		return BucketToday
	case diff <= 7:
		return BucketNext7Days
	case diff <= 30:
		return BucketNext30Days
	default:
		return BucketOther
	}
}

// Build partitions the pending tasks. Completed tasks are skipped.
func Build(tasks []model.Task, today time.Time) Summary {
	s := Summary{
		Overdue:    []model.Task{},
		Today:      []model.Task{},
		Next7Days:  []model.Task{},
		Next30Days: []model.Task{},
		Other:      []model.Task{},
	}

	for _, t := range tasks {
		if !t.IsPending() {
			continue
		}
		switch BucketOf(t, today) {
		case BucketOverdue:
			s.Overdue = append(s.Overdue, t)
		case BucketToday:
			s.Today = append(s.Today, t)
		case BucketNext7Days:
			s.Next7Days = append(s.Next7Days, t)
		case BucketNext30Days:
			s.Next30Days = append(s.Next30Days, t)
		default:
			s.Other = append(s.Other, t)
		}
	}

	s.Counts = Counts{
		Overdue:    len(s.Overdue),
		Today:      len(s.Today),
		Next7Days:  len(s.Next7Days),
		Next30Days: len(s.Next30Days),
		Other:      len(s.Other),
	}
	return s
}
