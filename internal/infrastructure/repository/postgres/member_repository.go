package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/organization"
	"traceroot/pkg/ulid"
)

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates the gorm-backed membership repository.
func NewMemberRepository(db *gorm.DB) organization.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, m *organization.Member) error {
	if err := dbFrom(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return organization.ErrDuplicateMember
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *memberRepository) Get(ctx context.Context, orgID ulid.ULID, userID string) (*organization.Member, error) {
	var m organization.Member
	err := dbFrom(ctx, r.db).Where("org_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organization.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (r *memberRepository) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*organization.MemberInfo, error) {
	var members []*organization.MemberInfo
	err := dbFrom(ctx, r.db).
		Table("members").
		Select("members.user_id, users.email, users.display_name, members.role, members.created_at, members.updated_at").
		Joins("JOIN users ON users.id = members.user_id").
		Where("members.org_id = ?", orgID).
		Order("members.created_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (r *memberRepository) CountOwners(ctx context.Context, orgID ulid.ULID) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&organization.Member{}).
		Where("org_id = ? AND role = ?", orgID, organization.RoleOwner).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return count, nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, orgID ulid.ULID, userID string, role organization.Role) error {
	result := dbFrom(ctx, r.db).
		Model(&organization.Member{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("update member role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrMemberNotFound
	}
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, orgID ulid.ULID, userID string) error {
	result := dbFrom(ctx, r.db).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&organization.Member{})
	if result.Error != nil {
		return fmt.Errorf("delete member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return organization.ErrMemberNotFound
	}
	return nil
}
