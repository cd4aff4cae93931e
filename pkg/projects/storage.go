package projects

import "context"

// Store is the persistence contract for projects and stages
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, int64, error)
	DeleteProject(ctx context.Context, id string) error

	CreateStage(ctx context.Context, s *Stage) error
	ListStages(ctx context.Context, projectID string) ([]Stage, int64, error)
	DeleteStage(ctx context.Context, id string) error
}
