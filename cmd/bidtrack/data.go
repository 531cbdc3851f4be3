package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/baiirun/bidtrack/internal/backup"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/report"
)

var (
	flagReportYears    []int
	flagReportProjects []int64
	flagOutput         string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write a JSON backup of everything",
	Long: `Write a JSON backup of every task, project and year. Without a file the
backup goes to bidtrack_backup_<date>.json in the current directory; use -
for stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runExport(ctx, a, path)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all data with a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return runImport(ctx, a, args[0])
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a Markdown report of projects and their tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := report.Filter{Years: flagReportYears, ProjectIDs: flagReportProjects}
		return withApp(func(ctx context.Context, a *app) error {
			return runReport(ctx, a, filter, flagOutput)
		})
	},
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show storage usage and data statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return runStorage(ctx, a, flagJSON)
		})
	},
}

func init() {
	reportCmd.Flags().IntSliceVar(&flagReportYears, "year", nil, "only projects of this year (repeatable)")
	reportCmd.Flags().Int64SliceVar(&flagReportProjects, "project", nil, "only this project id (repeatable)")
	reportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write to file instead of stdout")
	storageCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
}

func runExport(ctx context.Context, a *app, path string) error {
	doc, err := backup.Export(ctx, a.db, a.now())
	if err != nil {
		return err
	}
	if path == "-" {
		return backup.Write(os.Stdout, doc)
	}
	if path == "" {
		path = backup.DefaultFileName(a.now())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := backup.Write(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Exported %d projects, %d tasks, %d years to %s\n",
		len(doc.Projects), len(doc.Tasks), len(doc.Years), path)
	return nil
}

func runImport(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := backup.Import(ctx, a.db, f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d projects, %d tasks, %d years from %s\n",
		len(doc.Projects), len(doc.Tasks), len(doc.Years), path)
	return nil
}

func runReport(ctx context.Context, a *app, filter report.Filter, output string) error {
	projects, err := a.db.ListProjects(ctx, db.ProjectFilter{})
	if err != nil {
		return err
	}
	tasks, err := a.db.ListTasks(ctx, db.TaskFilter{})
	if err != nil {
		return err
	}
	md := report.Generate(filter.Apply(projects), tasks, a.now())

	if output == "" {
		fmt.Print(md)
		return nil
	}
	if err := os.WriteFile(output, []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("Wrote report to %s\n", output)
	return nil
}

func runStorage(ctx context.Context, a *app, asJSON bool) error {
	info, err := backup.Info(ctx, a.db)
	if err != nil {
		return err
	}
	stats, err := backup.Stats(ctx, a.db)
	if err != nil {
		return err
	}
	health := info.Health()

	if asJSON {
		return writeJSON(os.Stdout, struct {
			Health backup.Health     `json:"health"`
			Stats  backup.Statistics `json:"stats"`
		}{health, stats})
	}

	fmt.Printf("Status:    %s\n", health.Status)
	fmt.Printf("           %s\n", health.Message)
	fmt.Printf("Used:      %s of %d MB\n", stats.StorageSize, info.Total/(1024*1024))
	fmt.Printf("Projects:  %d (room for about %d more)\n", stats.ProjectCount, stats.EstimatedProjects)
	fmt.Printf("Tasks:     %d (room for about %d more)\n", stats.TaskCount, stats.EstimatedTasks)
	fmt.Printf("Years:     %d\n", stats.YearCount)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
