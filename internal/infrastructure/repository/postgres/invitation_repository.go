package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/organization"
	"traceroot/pkg/ulid"
)

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates the gorm-backed invitation repository.
func NewInvitationRepository(db *gorm.DB) organization.InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *organization.Invitation) error {
	if err := dbFrom(ctx, r.db).Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return organization.ErrDuplicateInvitation
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id ulid.ULID) (*organization.Invitation, error) {
	var inv organization.Invitation
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organization.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

func (r *invitationRepository) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*organization.Invitation, error) {
	var invs []*organization.Invitation
	err := dbFrom(ctx, r.db).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (r *invitationRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result := dbFrom(ctx, r.db).Where("id = ?", id).Delete(&organization.Invitation{})
	if result.Error != nil {
		return fmt.Errorf("delete invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrInvitationNotFound
	}
	return nil
}
