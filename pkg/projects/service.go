package projects

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/observability"
)

// Service provides project and stage operations
type Service struct {
	store  Store
	logger *observability.Logger
	now    func() time.Time
}

// NewService creates a new project service
func NewService(store Store, logger *observability.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// CreateProject creates a project
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	if len(name) > MaxNameLen {
		return nil, apperr.Newf(apperr.KindValidation, "name exceeds %d characters", MaxNameLen)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, apperr.New(apperr.KindValidation, "end_date cannot precede start_date")
	}

	now := s.now()
	p := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithField("project_id", p.ID).Info("project created")
	return p, nil
}

// GetProject returns a project by ID
func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.store.GetProject(ctx, id)
}

// ListProjects returns all projects
func (s *Service) ListProjects(ctx context.Context) (*ProjectList, error) {
	items, total, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Project{}
	}
	return &ProjectList{Items: items, Total: total}, nil
}

// DeleteProject removes a project
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, id)
}

// CreateStage adds a stage to an existing project
func (s *Service) CreateStage(ctx context.Context, projectID, name string) (*Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	if len(name) > MaxNameLen {
		return nil, apperr.Newf(apperr.KindValidation, "name exceeds %d characters", MaxNameLen)
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	st := &Stage{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateStage(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ListStages returns the stages of a project
func (s *Service) ListStages(ctx context.Context, projectID string) (*StageList, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListStages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Stage{}
	}
	return &StageList{Items: items, Total: total}, nil
}

// DeleteStage removes a stage
func (s *Service) DeleteStage(ctx context.Context, id string) error {
	return s.store.DeleteStage(ctx, id)
}
