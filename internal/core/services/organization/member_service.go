package organization

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/user"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

type memberService struct {
	memberRepo organization.MemberRepository
	userRepo   user.Repository
	tx         organization.Transactor
	logger     *logrus.Logger
}

// NewMemberService creates the membership management service.
func NewMemberService(
	memberRepo organization.MemberRepository,
	userRepo user.Repository,
	tx organization.Transactor,
	logger *logrus.Logger,
) organization.MemberService {
	return &memberService{memberRepo: memberRepo, userRepo: userRepo, tx: tx, logger: logger}
}

func (s *memberService) List(ctx context.Context, orgID ulid.ULID) ([]*organization.MemberInfo, error) {
	members, err := s.memberRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to list members", err)
	}
	return members, nil
}

// Add creates a membership for an existing user. Owners are never added
// directly; ownership is granted at org creation or by promotion.
func (s *memberService) Add(ctx context.Context, actorRole organization.Role, orgID ulid.ULID, userID string, role organization.Role) (*organization.Member, error) {
	if !role.Valid() {
		return nil, appErrors.NewValidationError("invalid role", "role must be one of OWNER, ADMIN, MEMBER, VIEWER")
	}
	if role == organization.RoleOwner {
		return nil, appErrors.NewValidationError("invalid role", "members cannot be added as OWNER directly")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, appErrors.NewNotFoundError("user")
		}
		return nil, appErrors.NewInternalError("failed to add member", err)
	}

	member := &organization.Member{ID: ulid.New(), OrgID: orgID, UserID: userID, Role: role}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, organization.ErrDuplicateMember) {
			return nil, appErrors.NewConflictError("user is already a member", "")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"org_id":  orgID.String(),
			"user_id": userID,
		}).Error("Failed to add member")
		return nil, appErrors.NewInternalError("failed to add member", err)
	}
	return member, nil
}

// UpdateRole changes a membership's role. Promotion to OWNER and any change
// to an existing OWNER require the actor to be an OWNER; the owner-count
// check shares the mutation's transaction so concurrent admins cannot race
// past it.
func (s *memberService) UpdateRole(ctx context.Context, actorRole organization.Role, orgID ulid.ULID, userID string, role organization.Role) (*organization.Member, error) {
	if !role.Valid() {
		return nil, appErrors.NewValidationError("invalid role", "role must be one of OWNER, ADMIN, MEMBER, VIEWER")
	}
	if role == organization.RoleOwner && actorRole != organization.RoleOwner {
		return nil, appErrors.NewForbiddenError("only an owner can promote to owner")
	}

	var updated *organization.Member
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.memberRepo.Get(txCtx, orgID, userID)
		if err != nil {
			return err
		}
		if current.Role == organization.RoleOwner && role != organization.RoleOwner {
			if actorRole != organization.RoleOwner {
				return appErrors.NewForbiddenError("only an owner can change another owner's role")
			}
			owners, err := s.memberRepo.CountOwners(txCtx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return organization.ErrLastOwner
			}
		}
		if err := s.memberRepo.UpdateRole(txCtx, orgID, userID, role); err != nil {
			return err
		}
		current.Role = role
		updated = current
		return nil
	})
	if err != nil {
		return nil, s.mapMemberError(err, orgID, userID, "update member role")
	}
	return updated, nil
}

// Remove deletes a membership, subject to the same owner protections as role
// changes.
func (s *memberService) Remove(ctx context.Context, actorRole organization.Role, orgID ulid.ULID, userID string) error {
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.memberRepo.Get(txCtx, orgID, userID)
		if err != nil {
			return err
		}
		if current.Role == organization.RoleOwner {
			if actorRole != organization.RoleOwner {
				return appErrors.NewForbiddenError("only an owner can remove another owner")
			}
			owners, err := s.memberRepo.CountOwners(txCtx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return organization.ErrLastOwner
			}
		}
		return s.memberRepo.Delete(txCtx, orgID, userID)
	})
	if err != nil {
		return s.mapMemberError(err, orgID, userID, "remove member")
	}
	return nil
}

func (s *memberService) mapMemberError(err error, orgID ulid.ULID, userID, op string) error {
	switch {
	case errors.Is(err, organization.ErrMemberNotFound):
		return appErrors.NewNotFoundError("member")
	case errors.Is(err, organization.ErrLastOwner):
		return appErrors.NewConflictError("organization must retain at least one owner", "assign another owner first")
	default:
		if appErr, ok := appErrors.AsAppError(err); ok {
			return appErr
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"org_id":  orgID.String(),
			"user_id": userID,
		}).Errorf("Failed to %s", op)
		return appErrors.NewInternalError("failed to "+op, err)
	}
}
