// Package user implements identity resolution over the relational store.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/user"
	appErrors "traceroot/pkg/errors"
)

type userService struct {
	repo   user.Repository
	logger *logrus.Logger
}

// NewUserService creates the user identity service.
func NewUserService(repo user.Repository, logger *logrus.Logger) user.Service {
	return &userService{repo: repo, logger: logger}
}

// Resolve upserts the asserted identity. Lookup is by subject id first, then
// by email, so a provider that re-issues subjects does not duplicate users.
func (s *userService) Resolve(ctx context.Context, identity user.Identity) (*user.User, error) {
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return nil, appErrors.NewUnauthorizedError("missing user identity")
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	name := strings.TrimSpace(identity.Name)

	existing, err := s.repo.GetByID(ctx, subject)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, email, name)
	case errors.Is(err, user.ErrNotFound):
		// Fall through to the secondary key.
	default:
		return nil, appErrors.NewInternalError("failed to resolve user", err)
	}

	if email != "" {
		byEmail, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return s.refresh(ctx, byEmail, email, name)
		case errors.Is(err, user.ErrNotFound):
		default:
			return nil, appErrors.NewInternalError("failed to resolve user", err)
		}
	}

	created := &user.User{ID: subject}
	if email != "" {
		created.Email = &email
	}
	if name != "" {
		created.DisplayName = &name
	}
	if err := s.repo.Create(ctx, created); err != nil {
		// A concurrent first request for the same identity may have won.
		if again, getErr := s.repo.GetByID(ctx, subject); getErr == nil {
			return again, nil
		}
		return nil, appErrors.NewInternalError("failed to create user", err)
	}
	return created, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, appErrors.NewNotFoundError("user")
		}
		return nil, appErrors.NewInternalError("failed to get user", err)
	}
	return u, nil
}

// refresh folds newly asserted identity fields into an existing row.
func (s *userService) refresh(ctx context.Context, u *user.User, email, name string) (*user.User, error) {
	changed := false
	if email != "" && (u.Email == nil || *u.Email != email) {
		u.Email = &email
		changed = true
	}
	if name != "" && (u.DisplayName == nil || *u.DisplayName != name) {
		u.DisplayName = &name
		changed = true
	}
	if !changed {
		return u, nil
	}
	if err := s.repo.Update(ctx, u); err != nil {
		// Identity refresh is not worth failing the request over.
		s.logger.WithError(err).WithField("user_id", u.ID).Warn("Failed to refresh user identity fields")
	}
	return u, nil
}
