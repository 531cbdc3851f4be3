package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/deadline"
)

var (
	flagWorking    bool
	flagClearCache bool
)

var deadlineCmd = &cobra.Command{
	Use:   "deadline <start> <days>",
	Short: "Preview a deadline and the priority it gets today",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[1])
		if err != nil || days < 0 {
			return fmt.Errorf("invalid day count: %s", args[1])
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runDeadline(ctx, a, args[0], days, flagWorking)
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar <date>",
	Short: "Look up whether a date is a business day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return runCalendar(ctx, a, args[0], flagClearCache)
		})
	},
}

func init() {
	deadlineCmd.Flags().BoolVarP(&flagWorking, "working", "w", false, "count business days")
	calendarCmd.Flags().BoolVar(&flagClearCache, "clear-cache", false, "drop cached holiday answers first")
}

func runDeadline(ctx context.Context, a *app, start string, days int, working bool) error {
	due, err := deadline.CalculateDate(ctx, a.cal, start, days, working)
	if err != nil {
		return err
	}
	priority, _ := deadline.ClassifyDate(due, deadline.Today(a.now()))

	unit := "days"
	if working {
		unit = "business days"
	}
	fmt.Printf("Start:    %s\n", start)
	fmt.Printf("Period:   %d %s\n", days, unit)
	fmt.Printf("Deadline: %s\n", due)
	fmt.Printf("Priority: %s\n", priority.Label())
	return nil
}

func runCalendar(ctx context.Context, a *app, date string, clearCache bool) error {
	d, err := deadline.ParseDate(date)
	if err != nil {
		return err
	}

	var info calendar.HolidayInfo
	if a.gw != nil {
		if clearCache {
			a.gw.ClearCache(ctx)
		}
		info = a.gw.Info(ctx, d)
	} else {
		info = calendar.Weekdays{}.Info(ctx, d)
	}

	fmt.Printf("Date:         %s (%s)\n", date, d.Weekday())
	if info.Name != "" {
		fmt.Printf("Name:         %s\n", info.Name)
	}
	fmt.Printf("Holiday:      %t\n", info.Holiday)
	fmt.Printf("Working day:  %t\n", info.Work)
	fmt.Printf("Business day: %t\n", info.IsBusinessDay(d))

	if a.gw != nil {
		if h := a.gw.Health(); !h.Healthy() {
			fmt.Printf("\nHoliday service unreachable (%d failures): %s\n", h.ConsecutiveFailures, h.LastError)
			fmt.Println("Answer assumes an ordinary day.")
		}
	}
	return nil
}
