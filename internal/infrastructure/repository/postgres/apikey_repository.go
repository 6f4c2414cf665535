package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/auth"
	"traceroot/pkg/ulid"
)

type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates the gorm-backed API key repository.
func NewAPIKeyRepository(db *gorm.DB) auth.APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	if err := dbFrom(ctx, r.db).Create(key).Error; err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *apiKeyRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.APIKey, error) {
	var key auth.APIKey
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &key, nil
}

func (r *apiKeyRepository) GetActiveByHash(ctx context.Context, hash string, now time.Time) (*auth.APIKey, error) {
	var key auth.APIKey
	err := dbFrom(ctx, r.db).
		Where("key_hash = ? AND (expires_at IS NULL OR expires_at > ?)", hash, now).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return &key, nil
}

func (r *apiKeyRepository) ListByProject(ctx context.Context, projectID ulid.ULID) ([]*auth.APIKey, error) {
	var keys []*auth.APIKey
	err := dbFrom(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

func (r *apiKeyRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result := dbFrom(ctx, r.db).Where("id = ?", id).Delete(&auth.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("delete api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrAPIKeyNotFound
	}
	return nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id ulid.ULID, at time.Time) error {
	err := dbFrom(ctx, r.db).
		Model(&auth.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
