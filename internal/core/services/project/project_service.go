// Package project implements project management, including the live-name
// uniqueness rule and soft deletion.
package project

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/project"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

const maxNameLength = 255

type projectService struct {
	repo   project.Repository
	logger *logrus.Logger
}

// NewProjectService creates the project management service.
func NewProjectService(repo project.Repository, logger *logrus.Logger) project.Service {
	return &projectService{repo: repo, logger: logger}
}

// Create inserts a project. Names must be unique among live projects in the
// organization; a partial unique index backstops the pre-check.
func (s *projectService) Create(ctx context.Context, orgID ulid.ULID, name string, retentionDays *int) (*project.Project, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validateRetention(retentionDays); err != nil {
		return nil, err
	}

	taken, err := s.repo.NameExists(ctx, orgID, name)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to create project", err)
	}
	if taken {
		return nil, appErrors.NewConflictError("project name already in use", "choose a different name")
	}

	p := &project.Project{ID: ulid.New(), OrgID: orgID, Name: name, RetentionDays: retentionDays}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, project.ErrDuplicateName) {
			return nil, appErrors.NewConflictError("project name already in use", "choose a different name")
		}
		s.logger.WithError(err).WithField("org_id", orgID.String()).Error("Failed to create project")
		return nil, appErrors.NewInternalError("failed to create project", err)
	}
	return p, nil
}

func (s *projectService) Get(ctx context.Context, id ulid.ULID) (*project.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil, appErrors.NewNotFoundError("project")
		}
		return nil, appErrors.NewInternalError("failed to get project", err)
	}
	return p, nil
}

func (s *projectService) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*project.Project, error) {
	projects, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to list projects", err)
	}
	return projects, nil
}

func (s *projectService) Update(ctx context.Context, id ulid.ULID, params project.UpdateParams) (*project.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil && *params.Name != p.Name {
		name, err := validateName(*params.Name)
		if err != nil {
			return nil, err
		}
		taken, err := s.repo.NameExists(ctx, p.OrgID, name)
		if err != nil {
			return nil, appErrors.NewInternalError("failed to update project", err)
		}
		if taken {
			return nil, appErrors.NewConflictError("project name already in use", "choose a different name")
		}
		p.Name = name
	}
	if params.RetentionDays != nil {
		if err := validateRetention(params.RetentionDays); err != nil {
			return nil, err
		}
		p.RetentionDays = params.RetentionDays
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, project.ErrDuplicateName) {
			return nil, appErrors.NewConflictError("project name already in use", "choose a different name")
		}
		return nil, appErrors.NewInternalError("failed to update project", err)
	}
	return p, nil
}

// SoftDelete marks the project deleted. Its name becomes reusable; its
// traces stay queryable only through direct store access.
func (s *projectService) SoftDelete(ctx context.Context, id ulid.ULID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.NewInternalError("failed to delete project", err)
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErrors.NewValidationError("invalid name", "name is required")
	}
	if len(name) > maxNameLength {
		return "", appErrors.NewValidationError("invalid name", "name is too long")
	}
	return name, nil
}

func validateRetention(days *int) error {
	if days != nil && *days <= 0 {
		return appErrors.NewValidationError("invalid retention", "retentionDays must be positive")
	}
	return nil
}
