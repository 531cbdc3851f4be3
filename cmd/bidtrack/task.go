package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/model"
	"github.com/baiirun/bidtrack/internal/reconcile"
)

var (
	flagStart       string
	flagDays        int
	flagProject     int64
	flagDescription string
	flagStatus      string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := reconcile.ManualTask{
			Title:       args[0],
			Description: flagDescription,
			StartDate:   flagStart,
			Days:        flagDays,
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runTaskAdd(ctx, a, in, flagProject)
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter db.TaskFilter
		if flagProject != 0 {
			filter.ProjectID = &flagProject
		}
		if flagStatus != "" {
			status := model.Status(flagStatus)
			if !status.IsValid() {
				return fmt.Errorf("invalid status: %s (use pending or completed)", flagStatus)
			}
			filter.Status = &status
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runTaskList(ctx, a, filter, flagJSON)
		})
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runTaskDone(ctx, a, id)
		})
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.db.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted task %d\n", id)
			return nil
		})
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&flagStart, "start", "", "start date (default today)")
	taskAddCmd.Flags().IntVar(&flagDays, "days", 1, "days until due, counting the start date")
	taskAddCmd.Flags().Int64Var(&flagProject, "project", 0, "attach to project id")
	taskAddCmd.Flags().StringVarP(&flagDescription, "description", "d", "", "task description")

	taskListCmd.Flags().Int64Var(&flagProject, "project", 0, "only tasks of this project id")
	taskListCmd.Flags().StringVar(&flagStatus, "status", "", "pending or completed")
	taskListCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

func runTaskAdd(ctx context.Context, a *app, in reconcile.ManualTask, projectID int64) error {
	if projectID != 0 {
		p, err := a.db.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		in.ProjectID = &p.ID
		in.ProjectNumber = p.ProjectNumber
		in.IsProjectTask = true
	}

	t, err := a.rec.NewManualTask(ctx, in)
	if err != nil {
		return err
	}
	id, err := a.db.CreateTask(ctx, t)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %d: %s (due %s, %s)\n", id, t.Title, t.DeadlineDate, t.Priority.Label())
	return nil
}

// taskLine renders one task for listings. A task whose project is gone
// still shows the raw project id.
func taskLine(t model.Task) string {
	mark := "[ ]"
	if !t.IsPending() {
		mark = "[x]"
	}
	due := t.DeadlineDate
	if due == "" {
		due = "-"
	}
	line := fmt.Sprintf("%4d %s %-10s %-4s %s", t.ID, mark, due, t.Priority.Label(), t.Title)
	switch {
	case t.ProjectNumber != "":
		line += "  [" + t.ProjectNumber + "]"
	case t.ProjectID != nil:
		line += fmt.Sprintf("  [#%d]", *t.ProjectID)
	}
	return line
}

func runTaskList(ctx context.Context, a *app, filter db.TaskFilter, asJSON bool) error {
	tasks, err := a.db.ListTasks(ctx, filter)
	if err != nil {
		return err
	}
	if asJSON {
		if tasks == nil {
			tasks = []model.Task{}
		}
		return writeJSON(os.Stdout, tasks)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Println(taskLine(t))
	}
	return nil
}

func runTaskDone(ctx context.Context, a *app, id int64) error {
	t, err := a.db.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !t.IsPending() {
		fmt.Printf("Task %d is already completed\n", id)
		return nil
	}
	if err := a.db.CompleteTask(ctx, id, a.timestamp()); err != nil {
		return err
	}
	fmt.Printf("Completed task %d: %s\n", id, t.Title)
	return nil
}
