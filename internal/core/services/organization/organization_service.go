// Package organization implements tenancy: organizations, memberships and
// invitations, including the owner-protection invariant.
package organization

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/organization"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

const maxNameLength = 255

type organizationService struct {
	orgRepo    organization.Repository
	memberRepo organization.MemberRepository
	tx         organization.Transactor
	logger     *logrus.Logger
}

// NewOrganizationService creates the organization management service.
func NewOrganizationService(
	orgRepo organization.Repository,
	memberRepo organization.MemberRepository,
	tx organization.Transactor,
	logger *logrus.Logger,
) organization.Service {
	return &organizationService{orgRepo: orgRepo, memberRepo: memberRepo, tx: tx, logger: logger}
}

// Create inserts the organization and its first membership in one
// transaction; the creating user becomes the sole OWNER.
func (s *organizationService) Create(ctx context.Context, ownerUserID, name string) (*organization.Organization, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	org := &organization.Organization{ID: ulid.New(), Name: name}
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orgRepo.Create(txCtx, org); err != nil {
			return err
		}
		owner := &organization.Member{
			ID:     ulid.New(),
			OrgID:  org.ID,
			UserID: ownerUserID,
			Role:   organization.RoleOwner,
		}
		return s.memberRepo.Create(txCtx, owner)
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", ownerUserID).Error("Failed to create organization")
		return nil, appErrors.NewInternalError("failed to create organization", err)
	}
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, id ulid.ULID) (*organization.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, organization.ErrNotFound) {
			return nil, appErrors.NewNotFoundError("organization")
		}
		return nil, appErrors.NewInternalError("failed to get organization", err)
	}
	return org, nil
}

func (s *organizationService) ListForUser(ctx context.Context, userID string) ([]*organization.WithRole, error) {
	orgs, err := s.orgRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to list organizations", err)
	}
	return orgs, nil
}

func (s *organizationService) UpdateName(ctx context.Context, id ulid.ULID, name string) (*organization.Organization, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	org.Name = name
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, appErrors.NewInternalError("failed to update organization", err)
	}
	return org, nil
}

// Delete hard-deletes the organization; memberships, projects, API keys and
// invitations go with it via cascading foreign keys.
func (s *organizationService) Delete(ctx context.Context, id ulid.ULID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.orgRepo.Delete(ctx, id); err != nil {
		return appErrors.NewInternalError("failed to delete organization", err)
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
