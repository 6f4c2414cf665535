// Package auth holds project API keys, the credential SDKs present on the
// ingestion surface. API-key authentication never resolves a user; it yields
// only the project the key is scoped to.
package auth

import (
	"context"
	"errors"
	"time"

	"traceroot/pkg/ulid"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKey is a project-scoped bearer credential. Only the SHA-256 hash and a
// display prefix of the token are stored; the plaintext is returned exactly
// once, at creation.
type APIKey struct {
	ID         ulid.ULID  `gorm:"primaryKey" json:"id"`
	ProjectID  ulid.ULID  `gorm:"index;not null" json:"projectId"`
	KeyHash    string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	KeyPrefix  string     `gorm:"size:16;not null" json:"keyPrefix"`
	Name       *string    `gorm:"size:255" json:"name,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// TableName keeps the snake_case plural used by the schema.
func (APIKey) TableName() string { return "api_keys" }

// Expired reports whether the key is past its expiry at the given instant.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// CreatedAPIKey is the creation response carrying the plaintext token. It is
// never persisted.
type CreatedAPIKey struct {
	APIKey
	Key string `json:"key"`
}

// APIKeyRepository is the persistence port for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id ulid.ULID) (*APIKey, error)
	// GetActiveByHash returns the key with the given hash if it has not
	// expired as of now.
	GetActiveByHash(ctx context.Context, hash string, now time.Time) (*APIKey, error)
	ListByProject(ctx context.Context, projectID ulid.ULID) ([]*APIKey, error)
	Delete(ctx context.Context, id ulid.ULID) error
	// TouchLastUsed sets last_used_at; lost updates are acceptable.
	TouchLastUsed(ctx context.Context, id ulid.ULID, at time.Time) error
}

// APIKeyService manages key lifecycle and authenticates ingestion tokens.
type APIKeyService interface {
	Create(ctx context.Context, projectID ulid.ULID, name *string, expiresAt *time.Time) (*CreatedAPIKey, error)
	List(ctx context.Context, projectID ulid.ULID) ([]*APIKey, error)
	Delete(ctx context.Context, projectID, keyID ulid.ULID) error
	// AuthenticateToken resolves a bearer token to its key row, rejecting
	// unknown and expired tokens. last_used_at is updated off the critical
	// path.
	AuthenticateToken(ctx context.Context, token string) (*APIKey, error)
}
