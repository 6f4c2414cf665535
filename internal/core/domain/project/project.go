// Package project holds projects, the unit of trace ownership and API-key
// scoping.
package project

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"traceroot/pkg/ulid"
)

var (
	ErrNotFound = errors.New("project not found")

	// ErrDuplicateName is returned when a live project with the same name
	// already exists in the organization.
	ErrDuplicateName = errors.New("project name already in use")
)

// Project belongs to an organization and is soft-deletable; listings exclude
// deleted rows. Name is unique among live projects within the organization,
// enforced by a partial unique index in the schema and re-checked by the
// service inside the create/update path.
type Project struct {
	ID            ulid.ULID      `gorm:"primaryKey" json:"id"`
	OrgID         ulid.ULID      `gorm:"index;not null" json:"orgId"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	RetentionDays *int           `json:"retentionDays,omitempty"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Repository is the persistence port for projects. Reads exclude soft-deleted
// rows.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id ulid.ULID) (*Project, error)
	ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*Project, error)
	// NameExists reports whether a live project with the name exists in the
	// organization.
	NameExists(ctx context.Context, orgID ulid.ULID, name string) (bool, error)
	Update(ctx context.Context, p *Project) error
	SoftDelete(ctx context.Context, id ulid.ULID) error
}

// UpdateParams are the mutable project fields; nil means unchanged.
type UpdateParams struct {
	Name          *string `json:"name,omitempty"`
	RetentionDays *int    `json:"retentionDays,omitempty"`
}

// Service manages projects.
type Service interface {
	Create(ctx context.Context, orgID ulid.ULID, name string, retentionDays *int) (*Project, error)
	Get(ctx context.Context, id ulid.ULID) (*Project, error)
	ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*Project, error)
	Update(ctx context.Context, id ulid.ULID, params UpdateParams) (*Project, error)
	SoftDelete(ctx context.Context, id ulid.ULID) error
}
