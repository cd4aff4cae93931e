package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/projects"
)

// CreateProject implements projects.Store
func (s *Store) CreateProject(ctx context.Context, p *projects.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject implements projects.Store
func (s *Store) GetProject(ctx context.Context, id string) (*projects.Project, error) {
	var p projects.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, start_date, end_date, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "project not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjects implements projects.Store
func (s *Store) ListProjects(ctx context.Context) ([]projects.Project, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, start_date, end_date, created_at, updated_at
		FROM projects ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var items []projects.Project
	for rows.Next() {
		var p projects.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		items = append(items, p)
	}
	return items, int64(len(items)), rows.Err()
}

// DeleteProject implements projects.Store. Stages cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "project not found")
	}
	return nil
}

// CreateStage implements projects.Store
func (s *Store) CreateStage(ctx context.Context, st *projects.Stage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stages (id, project_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, st.ID, st.ProjectID, st.Name, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stage: %w", err)
	}
	return nil
}

// ListStages implements projects.Store
func (s *Store) ListStages(ctx context.Context, projectID string) ([]projects.Stage, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, created_at
		FROM stages WHERE project_id = $1 ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var items []projects.Stage
	for rows.Next() {
		var st projects.Stage
		if err := rows.Scan(&st.ID, &st.ProjectID, &st.Name, &st.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan stage: %w", err)
		}
		items = append(items, st)
	}
	return items, int64(len(items)), rows.Err()
}

// DeleteStage implements projects.Store
func (s *Store) DeleteStage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "stage not found")
	}
	return nil
}
