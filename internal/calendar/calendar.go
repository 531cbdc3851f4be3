// Package calendar answers whether a date is a business day under the
// official Chinese holiday calendar.
//
// The Gateway asks a remote holiday API and caches the answers. Lookups
// never fail: when the API cannot be reached the day is treated as an
// ordinary day (weekends off, weekdays on).
package calendar

import (
	"context"
	"time"
)

// DateLayout is the wire and cache key format for dates.
const DateLayout = "2006-01-02"

// BusinessCalendar decides whether a date counts as a working day.
type BusinessCalendar interface {
	IsBusinessDay(ctx context.Context, date time.Time) bool
}

// HolidayInfo describes a single date.
// Holiday marks an official day off; Work marks a weekend day that is
// worked in exchange for a holiday.
type HolidayInfo struct {
	Date    string `json:"date"`
	Holiday bool   `json:"holiday"`
	Work    bool   `json:"work"`
	Name    string `json:"name,omitempty"`
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBusinessDay applies the calendar rule to a looked-up date.
// Weekend days only consult the workday flag; weekdays only the holiday flag.
func (h HolidayInfo) IsBusinessDay(date time.Time) bool {
	if IsWeekend(date) {
		return h.Work
	}
	return !h.Holiday
}

// Weekdays is the offline calendar: Monday to Friday are business days.
type Weekdays struct{}

func (Weekdays) IsBusinessDay(_ context.Context, date time.Time) bool {
	return !IsWeekend(date)
}

// Info returns the weekend-only answer for a date.
func (Weekdays) Info(_ context.Context, date time.Time) HolidayInfo {
	return HolidayInfo{Date: date.Format(DateLayout)}
}
