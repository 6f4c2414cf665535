package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/organization"
	"traceroot/pkg/ulid"
)

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates the gorm-backed organization repository.
func NewOrganizationRepository(db *gorm.DB) organization.Repository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	if err := dbFrom(ctx, r.db).Create(org).Error; err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id ulid.ULID) (*organization.Organization, error) {
	var org organization.Organization
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organization.ErrNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) ListByUser(ctx context.Context, userID string) ([]*organization.WithRole, error) {
	var orgs []*organization.WithRole
	err := dbFrom(ctx, r.db).
		Table("organizations").
		Select("organizations.*, members.role AS role").
		Joins("JOIN members ON members.org_id = organizations.id").
		Where("members.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Scan(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations by user: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *organization.Organization) error {
	if err := dbFrom(ctx, r.db).Save(org).Error; err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result := dbFrom(ctx, r.db).Where("id = ?", id).Delete(&organization.Organization{})
	if result.Error != nil {
		return fmt.Errorf("delete organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrNotFound
	}
	return nil
}
