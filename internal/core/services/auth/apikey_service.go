// Package auth implements API-key lifecycle and the ingestion-side token
// authentication.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/auth"
	"traceroot/pkg/apikey"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

const (
	touchTimeout = 5 * time.Second

	// touchInterval throttles last_used_at writes; a hot key does not need a
	// relational write per request.
	touchInterval = time.Minute
)

type apiKeyService struct {
	repo   auth.APIKeyRepository
	logger *logrus.Logger
}

// NewAPIKeyService creates the API-key service.
func NewAPIKeyService(repo auth.APIKeyRepository, logger *logrus.Logger) auth.APIKeyService {
	return &apiKeyService{repo: repo, logger: logger}
}

// Create generates a token and stores only its hash and display prefix. The
// plaintext is present in the returned value and nowhere else.
func (s *apiKeyService) Create(ctx context.Context, projectID ulid.ULID, name *string, expiresAt *time.Time) (*auth.CreatedAPIKey, error) {
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, appErrors.NewValidationError("invalid expiry", "expiresAt must be in the future")
	}

	token, err := apikey.Generate()
	if err != nil {
		return nil, appErrors.NewInternalError("failed to create api key", err)
	}
	key := &auth.APIKey{
		ID:        ulid.New(),
		ProjectID: projectID,
		KeyHash:   apikey.Hash(token),
		KeyPrefix: apikey.DisplayPrefix(token),
		Name:      name,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		s.logger.WithError(err).WithField("project_id", projectID.String()).Error("Failed to create api key")
		return nil, appErrors.NewInternalError("failed to create api key", err)
	}
	return &auth.CreatedAPIKey{APIKey: *key, Key: token}, nil
}

func (s *apiKeyService) List(ctx context.Context, projectID ulid.ULID) ([]*auth.APIKey, error) {
	keys, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to list api keys", err)
	}
	return keys, nil
}

// Delete removes a key; authentication with it fails from the next request
// on. The key must belong to the given project.
func (s *apiKeyService) Delete(ctx context.Context, projectID, keyID ulid.ULID) error {
	key, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			return appErrors.NewNotFoundError("api key")
		}
		return appErrors.NewInternalError("failed to delete api key", err)
	}
	if key.ProjectID != projectID {
		return appErrors.NewNotFoundError("api key")
	}
	if err := s.repo.Delete(ctx, keyID); err != nil {
		return appErrors.NewInternalError("failed to delete api key", err)
	}
	return nil
}

// AuthenticateToken resolves a bearer token to its non-expired key row. The
// last_used_at update happens on a detached context so it never delays or
// fails ingestion.
func (s *apiKeyService) AuthenticateToken(ctx context.Context, token string) (*auth.APIKey, error) {
	if token == "" {
		return nil, appErrors.NewUnauthorizedError("missing API key")
	}
	// Foreign tokens never match a stored hash; reject them before the lookup.
	if !apikey.HasTokenPrefix(token) {
		return nil, appErrors.NewUnauthorizedError("invalid or expired API key")
	}

	hash := apikey.Hash(token)
	key, err := s.repo.GetActiveByHash(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			return nil, appErrors.NewUnauthorizedError("invalid or expired API key")
		}
		s.logger.WithError(err).Error("Failed to look up api key")
		return nil, appErrors.NewInternalError("failed to authenticate api key", err)
	}
	// The lookup already went by hash; re-check in constant time so a store
	// with a lax collation cannot admit a near-miss.
	if !apikey.Equal(key.KeyHash, hash) {
		return nil, appErrors.NewUnauthorizedError("invalid or expired API key")
	}

	if key.LastUsedAt == nil || time.Since(*key.LastUsedAt) > touchInterval {
		keyID := key.ID
		go func() {
			touchCtx, cancel := context.WithTimeout(context.Background(), touchTimeout)
			defer cancel()
			if err := s.repo.TouchLastUsed(touchCtx, keyID, time.Now().UTC()); err != nil {
				s.logger.WithError(err).WithField("api_key_id", keyID.String()).Debug("Failed to update api key last_used_at")
			}
		}()
	}

	return key, nil
}
