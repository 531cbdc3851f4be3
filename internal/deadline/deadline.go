// Package deadline turns a start date and a day allowance into a due date,
// and a due date into a priority.
package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/model"
)

// ParseDate parses a yyyy-MM-dd date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(calendar.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want yyyy-mm-dd): %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return t.Format(calendar.DateLayout)
}

// Today returns the calendar date of now, at midnight UTC.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Calculate returns the due date for a task that starts on start and is
// allowed days days.
//
// In calendar mode the start date counts as day one, so one day is due on
// start itself and zero days lands on the day before. In working mode the
// start date is never counted: the walk begins the next day and stops on the
// days-th business day, so zero days is due on start.
func Calculate(ctx context.Context, cal calendar.BusinessCalendar, start time.Time, days int, workingDays bool) (time.Time, error) {
	if !workingDays {
		return start.AddDate(0, 0, days-1), nil
	}

	current := start
	for counted := 0; counted < days; {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		current = current.AddDate(0, 0, 1)
		if cal.IsBusinessDay(ctx, current) {
			counted++
		}
	}
	return current, nil
}

// CalculateDate is Calculate over yyyy-MM-dd strings.
func CalculateDate(ctx context.Context, cal calendar.BusinessCalendar, start string, days int, workingDays bool) (string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return "", err
	}
	due, err := Calculate(ctx, cal, s, days, workingDays)
	if err != nil {
		return "", fmt.Errorf("failed to calculate deadline: %w", err)
	}
	return FormatDate(due), nil
}

// CountBusinessDays counts business days after start up to and including end.
func CountBusinessDays(ctx context.Context, cal calendar.BusinessCalendar, start, end time.Time) (int, error) {
	count := 0
	for current := start; current.Before(end); {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		current = current.AddDate(0, 0, 1)
		if cal.IsBusinessDay(ctx, current) {
			count++
		}
	}
	return count, nil
}

// DaysBetween returns the number of whole calendar days from today to
// deadline. Time of day is ignored.
func DaysBetween(deadline, today time.Time) int {
	d := Today(deadline)
	t := Today(today)
	return int(d.Sub(t).Hours() / 24)
}

// Classify maps the distance to a deadline onto a priority.
func Classify(deadline, today time.Time) model.Priority {
	diff := DaysBetween(deadline, today)
	switch {
	case diff < 0:
		return model.PriorityUrgent
	case diff == 0:
		return model.PriorityHigh
	case diff <= 7:
		return model.PriorityNormal
	default:
		return model.PriorityLow
	}
}

// ClassifyDate classifies a yyyy-MM-dd deadline. It returns false when the
// deadline is empty or unparsable; such tasks have no priority of their own.
func ClassifyDate(deadline string, today time.Time) (model.Priority, bool) {
	if deadline == "" {
		return "", false
	}
	d, err := ParseDate(deadline)
	if err != nil {
		return "", false
	}
	return Classify(d, today), true
}
