package organization

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/organization"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

const mailSendTimeout = 10 * time.Second

type invitationService struct {
	invRepo    organization.InvitationRepository
	memberRepo organization.MemberRepository
	orgRepo    organization.Repository
	tx         organization.Transactor
	tokens     *InviteTokenIssuer
	mailer     organization.InvitationMailer
	logger     *logrus.Logger
}

// NewInvitationService creates the invitation lifecycle service. mailer may
// be nil when email delivery is disabled.
func NewInvitationService(
	invRepo organization.InvitationRepository,
	memberRepo organization.MemberRepository,
	orgRepo organization.Repository,
	tx organization.Transactor,
	tokens *InviteTokenIssuer,
	mailer organization.InvitationMailer,
	logger *logrus.Logger,
) organization.InvitationService {
	return &invitationService{
		invRepo:    invRepo,
		memberRepo: memberRepo,
		orgRepo:    orgRepo,
		tx:         tx,
		tokens:     tokens,
		mailer:     mailer,
		logger:     logger,
	}
}

// Create records the invitation and sends the notification mail
// best-effort: a delivery failure never fails the request.
func (s *invitationService) Create(ctx context.Context, orgID ulid.ULID, invitedByUserID, email string, role organization.Role) (*organization.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, appErrors.NewValidationError("invalid email", "a valid email address is required")
	}
	if !role.Valid() {
		return nil, appErrors.NewValidationError("invalid role", "role must be one of OWNER, ADMIN, MEMBER, VIEWER")
	}
	if role == organization.RoleOwner {
		return nil, appErrors.NewValidationError("invalid role", "invitations cannot grant OWNER")
	}

	inv := &organization.Invitation{
		ID:     ulid.New(),
		Email:  email,
		OrgID:  orgID,
		Role:   role,
		InvitedByUserID: func() *string {
			if invitedByUserID == "" {
				return nil
			}
			return &invitedByUserID
		}(),
	}
	if err := s.invRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, organization.ErrDuplicateInvitation) {
			return nil, appErrors.NewConflictError("invitation already exists", "this email already has a pending invitation")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"org_id": orgID.String(),
			"email":  email,
		}).Error("Failed to create invitation")
		return nil, appErrors.NewInternalError("failed to create invitation", err)
	}

	s.sendMail(ctx, inv)
	return inv, nil
}

func (s *invitationService) List(ctx context.Context, orgID ulid.ULID) ([]*organization.Invitation, error) {
	invs, err := s.invRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to list invitations", err)
	}
	return invs, nil
}

func (s *invitationService) Delete(ctx context.Context, orgID, invitationID ulid.ULID) error {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, organization.ErrInvitationNotFound) {
			return appErrors.NewNotFoundError("invitation")
		}
		return appErrors.NewInternalError("failed to delete invitation", err)
	}
	if inv.OrgID != orgID {
		return appErrors.NewNotFoundError("invitation")
	}
	if err := s.invRepo.Delete(ctx, invitationID); err != nil {
		return appErrors.NewInternalError("failed to delete invitation", err)
	}
	return nil
}

// Accept redeems a token: the membership is created and the invitation
// consumed in one transaction. Accepting twice, or accepting for an email
// that already joined, returns the existing membership unchanged.
func (s *invitationService) Accept(ctx context.Context, userID string, userEmail *string, token string) (*organization.Member, error) {
	invID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, appErrors.NewUnauthorizedError("invalid or expired invitation token")
	}

	var member *organization.Member
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		inv, err := s.invRepo.GetByID(txCtx, invID)
		if err != nil {
			return err
		}
		if userEmail == nil || !strings.EqualFold(*userEmail, inv.Email) {
			return appErrors.NewForbiddenError("invitation was issued to a different email")
		}

		existing, err := s.memberRepo.Get(txCtx, inv.OrgID, userID)
		switch {
		case err == nil:
			member = existing
			return s.invRepo.Delete(txCtx, inv.ID)
		case errors.Is(err, organization.ErrMemberNotFound):
		default:
			return err
		}

		member = &organization.Member{ID: ulid.New(), OrgID: inv.OrgID, UserID: userID, Role: inv.Role}
		if err := s.memberRepo.Create(txCtx, member); err != nil {
			return err
		}
		return s.invRepo.Delete(txCtx, inv.ID)
	})
	if err != nil {
		if errors.Is(err, organization.ErrInvitationNotFound) {
			return nil, appErrors.NewNotFoundError("invitation")
		}
		if appErr, ok := appErrors.AsAppError(err); ok {
			return nil, appErr
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to accept invitation")
		return nil, appErrors.NewInternalError("failed to accept invitation", err)
	}
	return member, nil
}

// sendMail renders and sends the invitation email on a detached context so
// provider latency stays off the request path.
func (s *invitationService) sendMail(ctx context.Context, inv *organization.Invitation) {
	if s.mailer == nil {
		return
	}
	token, err := s.tokens.Sign(inv.ID)
	if err != nil {
		s.logger.WithError(err).WithField("invitation_id", inv.ID.String()).Error("Failed to sign invitation token")
		return
	}
	org, err := s.orgRepo.GetByID(ctx, inv.OrgID)
	if err != nil {
		s.logger.WithError(err).WithField("invitation_id", inv.ID.String()).Error("Failed to load organization for invitation mail")
		return
	}

	invCopy := *inv
	orgName := org.Name
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := s.mailer.SendInvitation(sendCtx, &invCopy, orgName, token); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"invitation_id": invCopy.ID.String(),
				"org_id":        invCopy.OrgID.String(),
			}).Error("Failed to send invitation email")
		}
	}()
}
