package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/model"
	"github.com/baiirun/bidtrack/internal/reconcile"
	"github.com/baiirun/bidtrack/internal/report"
)

var (
	flagYear         int
	flagNumber       string
	flagName         string
	flagCategory     string
	flagEstimated    float64
	flagBudget       float64
	flagTenderDate   string
	flagAwardDate    string
	flagSignDays     int
	flagWorkingDays  bool
	flagDuration     int
	flagWinningUnit  string
	flagWinningPrice float64
	flagManager      string
	flagManagerID    string
	flagJSON         bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a project and its initial tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, ok := model.ParseCategory(flagCategory)
		if !ok {
			return fmt.Errorf("invalid category: %s (use engineering, service or procurement)", flagCategory)
		}
		p := &model.Project{
			Year:            flagYear,
			ProjectNumber:   flagNumber,
			ProjectName:     flagName,
			Category:        category,
			EstimatedAmount: flagEstimated,
			BudgetPrice:     flagBudget,
			TenderDate:      flagTenderDate,
			AwardNotice: model.AwardNotice{
				AwardDate:          flagAwardDate,
				ContractSignDays:   flagSignDays,
				IsWorkingDays:      flagWorkingDays,
				WinningUnit:        flagWinningUnit,
				ProjectManagerName: flagManager,
				ProjectManagerID:   flagManagerID,
				WinningPrice:       flagWinningPrice,
				ProjectDuration:    flagDuration,
			},
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectAdd(ctx, a, p)
		})
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectShow(ctx, a, id, flagJSON)
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var year *int
		if cmd.Flags().Changed("year") {
			year = &flagYear
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectList(ctx, a, year)
		})
	},
}

var projectApplyCmd = &cobra.Command{
	Use:   "apply <id> <file>",
	Short: "Update a project from a YAML or JSON document",
	Long: `Update a project from a YAML or JSON document and bring its tasks in step.

Only the top-level keys present in the document change. A section that is
present (awardNotice, contract, constructionMaterial) replaces the stored one
wholesale, so list every field of it you want to keep. Files ending in .json
are read as JSON, anything else as YAML.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectApply(ctx, a, id, args[1])
		})
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a project and retitle its tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.rec.RenameProject(ctx, id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed project %d to %s (%d tasks updated)\n", id, args[1], n)
			return nil
		})
	},
}

var projectRenumberCmd = &cobra.Command{
	Use:   "renumber <id> <number>",
	Short: "Change a project's number",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.rec.RenumberProject(ctx, id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renumbered project %d to %s (%d tasks updated)\n", id, args[1], n)
			return nil
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectDelete(ctx, a, id)
		})
	},
}

var projectSyncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Re-derive a project's tasks from its current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			return runProjectSync(ctx, a, id)
		})
	},
}

func init() {
	f := projectAddCmd.Flags()
	f.IntVar(&flagYear, "year", 0, "project year (required)")
	f.StringVar(&flagNumber, "number", "", "project number (required)")
	f.StringVar(&flagName, "name", "", "project name (required)")
	f.StringVar(&flagCategory, "category", "engineering", "engineering, service or procurement")
	f.Float64Var(&flagEstimated, "estimated", 0, "estimated amount")
	f.Float64Var(&flagBudget, "budget", 0, "budget price")
	f.StringVar(&flagTenderDate, "tender-date", "", "tender date (YYYY-MM-DD)")
	f.StringVar(&flagAwardDate, "award-date", "", "award date (YYYY-MM-DD)")
	f.IntVar(&flagSignDays, "sign-days", 0, "days allowed to sign the contract")
	f.BoolVar(&flagWorkingDays, "working-days", false, "count sign days as working days")
	f.IntVar(&flagDuration, "duration", 0, "project duration in days")
	f.StringVar(&flagWinningUnit, "winning-unit", "", "winning bidder")
	f.Float64Var(&flagWinningPrice, "winning-price", 0, "winning price")
	f.StringVar(&flagManager, "manager", "", "project manager name")
	f.StringVar(&flagManagerID, "manager-id", "", "project manager ID number")
	_ = projectAddCmd.MarkFlagRequired("year")
	_ = projectAddCmd.MarkFlagRequired("number")
	_ = projectAddCmd.MarkFlagRequired("name")

	projectShowCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	projectListCmd.Flags().IntVar(&flagYear, "year", 0, "only projects of this year")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectApplyCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectRenumberCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectSyncCmd)
}

// ensureYear adds the project's year if it isn't listed yet.
func ensureYear(ctx context.Context, a *app, year int) error {
	years, err := a.db.ListYears(ctx)
	if err != nil {
		return err
	}
	for _, y := range years {
		if y.Year == year {
			return nil
		}
	}
	_, err = a.db.CreateYear(ctx, year)
	return err
}

func runProjectAdd(ctx context.Context, a *app, p *model.Project) error {
	if err := ensureYear(ctx, a, p.Year); err != nil {
		return err
	}
	id, err := a.db.CreateProject(ctx, p)
	if err != nil {
		return err
	}
	res, err := a.rec.Reconcile(ctx, nil, p)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %d: %s - %s\n", id, p.ProjectNumber, p.ProjectName)
	fmt.Printf("Tasks: %s\n", res)
	return nil
}

func runProjectShow(ctx context.Context, a *app, id int64, asJSON bool) error {
	p, err := a.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(os.Stdout, p)
	}
	fmt.Print(report.Project(p))
	return nil
}

func runProjectList(ctx context.Context, a *app, year *int) error {
	projects, err := a.db.ListProjects(ctx, db.ProjectFilter{Year: year})
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects")
		return nil
	}
	for _, p := range projects {
		award := p.AwardNotice.AwardDate
		if award == "" {
			award = "-"
		}
		fmt.Printf("%4d  %d  %-12s %s  [%s]  awarded %s\n",
			p.ID, p.Year, p.ProjectNumber, p.ProjectName, p.Category, award)
	}
	return nil
}

// decodeProject overlays the document at path onto p. Top-level keys
// missing from the document keep their stored values; a section the
// document names is replaced as a whole.
func decodeProject(path string, p *model.Project) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}

	var keys map[string]any
	if err := unmarshal(data, &keys); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	resetSections(p, keys)

	if err := unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func resetSections(p *model.Project, keys map[string]any) {
	if _, ok := keys["awardNotice"]; ok {
		p.AwardNotice = model.AwardNotice{}
	}
	if _, ok := keys["contract"]; ok {
		p.Contract = model.Contract{}
	}
	if _, ok := keys["constructionMaterial"]; ok {
		p.ConstructionMaterial = model.ConstructionMaterial{}
	}
}

func runProjectApply(ctx context.Context, a *app, id int64, path string) error {
	prev, err := a.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	// Decoded separately so the overlay can't alias prev's slices.
	next, err := a.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := decodeProject(path, next); err != nil {
		return err
	}
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt

	if next.ProjectName != prev.ProjectName || next.ProjectNumber != prev.ProjectNumber {
		return fmt.Errorf("use project rename or project renumber to change the name or number")
	}
	if err := a.db.UpdateProject(ctx, next); err != nil {
		return err
	}
	res, err := a.rec.Reconcile(ctx, prev, next)
	if err != nil {
		return err
	}
	fmt.Printf("Updated project %d: %s\n", id, next.ProjectNumber)
	fmt.Printf("Tasks: %s\n", res)
	return nil
}

func runProjectDelete(ctx context.Context, a *app, id int64) error {
	p, err := a.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	n, err := a.db.DeleteProjectTasks(ctx, id)
	if err != nil {
		return err
	}
	if err := a.db.DeleteProject(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted project %s and %d tasks\n", p.ProjectNumber, n)
	return nil
}

func runProjectSync(ctx context.Context, a *app, id int64) error {
	p, err := a.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	res, err := a.rec.Reconcile(ctx, p, p)
	if err != nil {
		return err
	}
	if !res.Changed() {
		fmt.Printf("Project %s is up to date\n", p.ProjectNumber)
		return nil
	}
	fmt.Printf("Synced project %s: %s\n", p.ProjectNumber, res)
	return nil
}

var _ reconcile.Store = (*db.DB)(nil)
