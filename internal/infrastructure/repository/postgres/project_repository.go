package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/project"
	"traceroot/pkg/ulid"
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates the gorm-backed project repository. Soft
// deletion is handled by gorm: reads exclude deleted rows automatically.
func NewProjectRepository(db *gorm.DB) project.Repository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *project.Project) error {
	if err := dbFrom(ctx, r.db).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return project.ErrDuplicateName
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id ulid.ULID) (*project.Project, error) {
	var p project.Project
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *projectRepository) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*project.Project, error) {
	var projects []*project.Project
	err := dbFrom(ctx, r.db).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) NameExists(ctx context.Context, orgID ulid.ULID, name string) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&project.Project{}).
		Where("org_id = ? AND name = ?", orgID, name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check project name: %w", err)
	}
	return count > 0, nil
}

func (r *projectRepository) Update(ctx context.Context, p *project.Project) error {
	if err := dbFrom(ctx, r.db).Save(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return project.ErrDuplicateName
		}
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (r *projectRepository) SoftDelete(ctx context.Context, id ulid.ULID) error {
	result := dbFrom(ctx, r.db).Where("id = ?", id).Delete(&project.Project{})
	if result.Error != nil {
		return fmt.Errorf("delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return project.ErrNotFound
	}
	return nil
}
