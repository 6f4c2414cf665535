// Package organization holds the tenancy core: organizations, memberships
// with ordered roles, and pending invitations.
package organization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"traceroot/pkg/ulid"
)

var (
	ErrNotFound           = errors.New("organization not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrLastOwner is returned when a mutation would leave an organization
	// with no OWNER.
	ErrLastOwner = errors.New("organization must retain at least one owner")

	// ErrDuplicateMember is returned when the user already belongs to the
	// organization.
	ErrDuplicateMember = errors.New("user is already a member")

	// ErrDuplicateInvitation is returned when the email already has a pending
	// invitation for the organization.
	ErrDuplicateInvitation = errors.New("invitation already exists for this email")
)

// Role is an organization-scoped permission tier. Checks compare numeric
// levels, higher meaning more privileged.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// Level returns the numeric rank of the role: OWNER 4, ADMIN 3, MEMBER 2,
// VIEWER 1, unknown 0.
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the role is one of the four defined tiers.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether the role meets the given minimum tier.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

// ParseRole validates a role string from a request body.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// Organization is a tenant. It owns projects and memberships; deleting one
// cascades to both and to pending invitations.
type Organization struct {
	ID        ulid.ULID `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WithRole pairs an organization with the requesting user's role in it.
type WithRole struct {
	Organization
	Role Role `json:"role"`
}

// Member links a user to an organization with a role. (orgId, userId) is
// unique.
type Member struct {
	ID        ulid.ULID `gorm:"primaryKey" json:"id"`
	OrgID     ulid.ULID `gorm:"uniqueIndex:idx_members_org_user;index;not null" json:"orgId"`
	UserID    string    `gorm:"uniqueIndex:idx_members_org_user;index;size:128;not null" json:"userId"`
	Role      Role      `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the historical plural used by the schema.
func (Member) TableName() string { return "members" }

// MemberInfo is a membership joined with the user's display fields, as
// returned by member listings.
type MemberInfo struct {
	UserID      string    `json:"userId"`
	Email       *string   `json:"email,omitempty"`
	DisplayName *string   `json:"displayName,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Invitation is a pending offer of membership, unique per (email, orgId).
type Invitation struct {
	ID              ulid.ULID `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex:idx_invitations_email_org;size:320;not null" json:"email"`
	OrgID           ulid.ULID `gorm:"uniqueIndex:idx_invitations_email_org;index;not null" json:"orgId"`
	Role            Role      `gorm:"size:16;not null" json:"role"`
	InvitedByUserID *string   `gorm:"size:128" json:"invitedByUserId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Repository is the persistence port for organizations.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id ulid.ULID) (*Organization, error)
	ListByUser(ctx context.Context, userID string) ([]*WithRole, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id ulid.ULID) error
}

// MemberRepository is the persistence port for memberships.
type MemberRepository interface {
	Create(ctx context.Context, m *Member) error
	Get(ctx context.Context, orgID ulid.ULID, userID string) (*Member, error)
	ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*MemberInfo, error)
	CountOwners(ctx context.Context, orgID ulid.ULID) (int64, error)
	UpdateRole(ctx context.Context, orgID ulid.ULID, userID string, role Role) error
	Delete(ctx context.Context, orgID ulid.ULID, userID string) error
}

// InvitationRepository is the persistence port for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id ulid.ULID) (*Invitation, error)
	ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*Invitation, error)
	Delete(ctx context.Context, id ulid.ULID) error
}

// Transactor runs fn inside one relational transaction; repository calls made
// with the ctx it passes join that transaction. Owner-protection checks must
// share a transaction with the mutation they guard.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// InvitationMailer delivers invitation notifications. Delivery is
// best-effort; implementations must not block invitation creation on
// provider availability.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, inv *Invitation, orgName, token string) error
}

// Service manages organizations.
type Service interface {
	Create(ctx context.Context, ownerUserID, name string) (*Organization, error)
	Get(ctx context.Context, id ulid.ULID) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*WithRole, error)
	UpdateName(ctx context.Context, id ulid.ULID, name string) (*Organization, error)
	Delete(ctx context.Context, id ulid.ULID) error
}

// MemberService manages memberships. Mutations take the acting user's role so
// owner promotion and demotion rules can be enforced next to the
// owner-protection invariant.
type MemberService interface {
	List(ctx context.Context, orgID ulid.ULID) ([]*MemberInfo, error)
	Add(ctx context.Context, actorRole Role, orgID ulid.ULID, userID string, role Role) (*Member, error)
	UpdateRole(ctx context.Context, actorRole Role, orgID ulid.ULID, userID string, role Role) (*Member, error)
	Remove(ctx context.Context, actorRole Role, orgID ulid.ULID, userID string) error
}

// InvitationService manages the invitation lifecycle.
type InvitationService interface {
	Create(ctx context.Context, orgID ulid.ULID, invitedByUserID, email string, role Role) (*Invitation, error)
	List(ctx context.Context, orgID ulid.ULID) ([]*Invitation, error)
	Delete(ctx context.Context, orgID, invitationID ulid.ULID) error
	// Accept redeems an invitation token for the authenticated user, creating
	// the membership and consuming the invitation atomically.
	Accept(ctx context.Context, userID string, userEmail *string, token string) (*Member, error)
}
