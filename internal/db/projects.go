package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baiirun/bidtrack/internal/model"
)

const projectColumns = `id, year, project_number, project_name, category, estimated_amount, budget_price,
	tender_date, award_notice, contract, construction_material, created_at`

// ProjectFilter narrows ListProjects. Zero values mean "any".
type ProjectFilter struct {
	Year *int
}

// projectSections holds the JSON encodings of a project's embedded records.
type projectSections struct {
	award, contract, construction string
}

func encodeSections(p *model.Project) (projectSections, error) {
	// Nil slices encode as null; the browser export always had arrays.
	if p.Contract.PaymentTerms == nil {
		p.Contract.PaymentTerms = []model.PaymentTerm{}
	}
	if p.Contract.InsuranceTerms == nil {
		p.Contract.InsuranceTerms = []model.Insurance{}
	}

	award, err := json.Marshal(p.AwardNotice)
	if err != nil {
		return projectSections{}, fmt.Errorf("failed to marshal award notice: %w", err)
	}
	contract, err := json.Marshal(p.Contract)
	if err != nil {
		return projectSections{}, fmt.Errorf("failed to marshal contract: %w", err)
	}
	construction, err := json.Marshal(p.ConstructionMaterial)
	if err != nil {
		return projectSections{}, fmt.Errorf("failed to marshal construction material: %w", err)
	}
	return projectSections{string(award), string(contract), string(construction)}, nil
}

func validateProject(p *model.Project) error {
	if p.ProjectNumber == "" {
		return fmt.Errorf("project number is required")
	}
	if p.ProjectName == "" {
		return fmt.Errorf("project name is required")
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	for _, term := range p.Contract.PaymentTerms {
		if !term.Milestone.IsValid() {
			return fmt.Errorf("payment term %q: invalid milestone: %s", term.Name, term.Milestone)
		}
	}
	return nil
}

// CreateProject inserts a new project and sets its ID.
// CreatedAt defaults to now when empty.
func (db *DB) CreateProject(ctx context.Context, p *model.Project) (int64, error) {
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().Format(time.RFC3339)
	}
	id, err := insertProject(ctx, db, p, false)
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func insertProject(ctx context.Context, ex execer, p *model.Project, keepID bool) (int64, error) {
	if err := validateProject(p); err != nil {
		return 0, err
	}
	sections, err := encodeSections(p)
	if err != nil {
		return 0, err
	}

	var id any
	if keepID && p.ID != 0 {
		id = p.ID
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO projects (id, year, project_number, project_name, category, estimated_amount, budget_price,
			tender_date, award_notice, contract, construction_material, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Year, p.ProjectNumber, p.ProjectName, p.Category, p.EstimatedAmount, p.BudgetPrice,
		p.TenderDate, sections.award, sections.contract, sections.construction, p.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}
	return result.LastInsertId()
}

// GetProject retrieves a project by ID.
func (db *DB) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	projects, err := db.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %d: %w (use 'bidtrack project list' to see available projects)", id, ErrNotFound)
	}
	return &projects[0], nil
}

// UpdateProject replaces every stored field of an existing project.
func (db *DB) UpdateProject(ctx context.Context, p *model.Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	sections, err := encodeSections(p)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE projects
		SET year = ?, project_number = ?, project_name = ?, category = ?, estimated_amount = ?,
		    budget_price = ?, tender_date = ?, award_notice = ?, contract = ?, construction_material = ?
		WHERE id = ?`,
		p.Year, p.ProjectNumber, p.ProjectName, p.Category, p.EstimatedAmount,
		p.BudgetPrice, p.TenderDate, sections.award, sections.contract, sections.construction, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// ListProjects returns projects matching the filter, ordered by year then id.
func (db *DB) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := []any{}

	if filter.Year != nil {
		query += ` AND year = ?`
		args = append(args, *filter.Year)
	}
	query += ` ORDER BY year ASC, id ASC`

	return db.queryProjects(ctx, query, args...)
}

// DeleteProject removes a project. Its tasks are left in place; callers that
// want them gone use DeleteProjectTasks.
func (db *DB) DeleteProject(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

// queryProjects is a helper to scan project rows.
func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		var award, contract, construction string
		if err := rows.Scan(
			&p.ID, &p.Year, &p.ProjectNumber, &p.ProjectName, &p.Category, &p.EstimatedAmount,
			&p.BudgetPrice, &p.TenderDate, &award, &contract, &construction, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if err := json.Unmarshal([]byte(award), &p.AwardNotice); err != nil {
			return nil, fmt.Errorf("project %d: failed to decode award notice: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(contract), &p.Contract); err != nil {
			return nil, fmt.Errorf("project %d: failed to decode contract: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(construction), &p.ConstructionMaterial); err != nil {
			return nil, fmt.Errorf("project %d: failed to decode construction material: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
