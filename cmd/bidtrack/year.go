package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baiirun/bidtrack/internal/db"
)

var yearCmd = &cobra.Command{
	Use:   "year",
	Short: "Manage project years",
}

var yearAddCmd = &cobra.Command{
	Use:   "add <year>",
	Short: "Add a year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := parseYear(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runYearAdd(ctx, a, year)
		})
	},
}

var yearListCmd = &cobra.Command{
	Use:   "list",
	Short: "List years, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(runYearList)
	},
}

var yearDeleteCmd = &cobra.Command{
	Use:   "delete <year>",
	Short: "Delete a year and every project in it",
	Long:  `Delete a year and every project in it. Tasks of those projects are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := parseYear(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runYearDelete(ctx, a, year)
		})
	},
}

func init() {
	yearCmd.AddCommand(yearAddCmd)
	yearCmd.AddCommand(yearListCmd)
	yearCmd.AddCommand(yearDeleteCmd)
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year: %s", s)
	}
	return year, nil
}

func runYearAdd(ctx context.Context, a *app, year int) error {
	y, err := a.db.CreateYear(ctx, year)
	if err != nil {
		return err
	}
	fmt.Printf("Added year %d\n", y.Year)
	return nil
}

func runYearList(ctx context.Context, a *app) error {
	years, err := a.db.ListYears(ctx)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		fmt.Println("No years")
		return nil
	}
	for _, y := range years {
		projects, err := a.db.ListProjects(ctx, db.ProjectFilter{Year: &y.Year})
		if err != nil {
			return err
		}
		fmt.Printf("%d  %d projects\n", y.Year, len(projects))
	}
	return nil
}

func runYearDelete(ctx context.Context, a *app, year int) error {
	n, err := a.db.DeleteYear(ctx, year)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted year %d and %d projects\n", year, n)
	return nil
}
