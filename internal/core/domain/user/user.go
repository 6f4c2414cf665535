// Package user holds the platform user entity. Identity lives in an external
// provider; users are created here lazily, on first authenticated request.
package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no user row matches.
var ErrNotFound = errors.New("user not found")

// User is a platform user. The ID is the identity provider's subject and is
// taken as-is from the authenticated request.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Email       *string   `gorm:"uniqueIndex;size:320" json:"email,omitempty"`
	DisplayName *string   `gorm:"size:255" json:"displayName,omitempty"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller as asserted by the edge.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Repository is the relational persistence port for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}

// Service resolves authenticated identities into user rows.
type Service interface {
	// Resolve upserts the identity into the user table and returns the row.
	// It is idempotent by subject id, with email as a secondary lookup key.
	Resolve(ctx context.Context, identity Identity) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
