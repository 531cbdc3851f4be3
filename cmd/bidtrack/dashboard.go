package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baiirun/bidtrack/internal/scheduler"
	"github.com/baiirun/bidtrack/internal/summary"
	"github.com/baiirun/bidtrack/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show pending tasks grouped by how soon they are due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return runDashboard(ctx, a, flagJSON)
		})
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return tui.Run(a.db, a.rec)
		})
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
}

func runDashboard(ctx context.Context, a *app, asJSON bool) error {
	s, changed, err := scheduler.Snapshot(ctx, a.rec, a.db, a.now())
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(os.Stdout, s)
	}

	if changed > 0 {
		fmt.Printf("Updated priority of %d tasks\n\n", changed)
	}
	fmt.Printf("待完成任务：%d\n", s.Counts.Total())
	for _, b := range summary.Buckets {
		tasks := s.Tasks(b)
		fmt.Printf("\n%s (%d)\n", b.Label(), len(tasks))
		for _, t := range tasks {
			fmt.Println(taskLine(t))
		}
	}
	return nil
}
