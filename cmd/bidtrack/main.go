package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDB      string
	flagOffline bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bidtrack",
	Short: "Deadline tracking for awarded construction bids",
	Long: `bidtrack follows awarded procurement projects from the award notice to the
settlement audit. It derives a task for every contractual obligation, keeps
those tasks in step as project details change, and ranks everything that is
still open by how close its deadline is.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.bidtrack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default ~/.bidtrack/bidtrack.db)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "skip the holiday service; weekdays are business days")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(yearCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(deadlineCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
