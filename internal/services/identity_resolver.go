package services

import (
	"context"
	"errors"
	"fmt"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/repositories"

	"github.com/sirupsen/logrus"
)

// IdentityResolver binds a provider-asserted profile to the canonical user
// with the same email, creating that user on first sight. Existing records
// are never updated.
type IdentityResolver struct {
	users  repositories.UserRepository
	events EventPublisher
	log    logrus.FieldLogger
}

// NewIdentityResolver creates a new IdentityResolver. events may be nil.
func NewIdentityResolver(users repositories.UserRepository, events EventPublisher, log logrus.FieldLogger) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		events: events,
		log:    log,
	}
}

// SignIn is the OAuth callback hook: it reports whether the sign-in is
// accepted. Every failure is logged and turned into a deny.
func (r *IdentityResolver) SignIn(ctx context.Context, profile models.OAuthProfile) bool {
	user, created, err := r.Resolve(ctx, profile)
	entry := r.log.WithFields(logrus.Fields{
		"provider": profile.Provider,
		"email":    profile.Email,
	})
	if err != nil {
		entry.WithError(err).Error("Error checking if user exists")
		return false
	}
	entry.WithFields(logrus.Fields{"user_id": user.ID, "created": created}).Info("oauth sign-in accepted")
	return true
}

// Resolve returns the canonical user for profile and whether it was created
// by this call.
func (r *IdentityResolver) Resolve(ctx context.Context, profile models.OAuthProfile) (*models.User, bool, error) {
	if profile.Email == "" {
		return nil, false, fmt.Errorf("%s profile without email: %w", profile.Provider, apperr.ErrValidation)
	}

	user, err := r.users.FindByEmail(ctx, profile.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, false, fmt.Errorf("lookup %s: %w", profile.Email, err)
	}

	user = &models.User{
		Email:    profile.Email,
		Username: DeriveUsername(profile.DisplayName, profile.Email),
		Image:    profile.AvatarURL,
	}
	user.SetProviderID(profile.Provider, profile.Subject)

	if err := r.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil, false, fmt.Errorf("create %s: %w", profile.Email, err)
		}
		// A concurrent first sign-in created the record between our lookup
		// and insert; bind to that one.
		existing, lookupErr := r.users.FindByEmail(ctx, profile.Email)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("create %s: %w", profile.Email, err)
		}
		return existing, false, nil
	}

	publishUserCreated(r.events, r.log, models.NewUserCreatedEvent(user, models.SourceOAuth, profile.Provider))
	return user, true, nil
}
