package services

import (
	"context"
	"errors"
	"fmt"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/repositories"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSessionCacheSize = 4096

// SessionProjector enriches an authenticated session with the durable id of
// its canonical user. Ids are immutable and users are never deleted, so
// email to id pairs are cached.
type SessionProjector struct {
	users repositories.UserRepository
	ids   *lru.Cache[string, string]
}

// NewSessionProjector creates a SessionProjector caching up to cacheSize emails.
func NewSessionProjector(users repositories.UserRepository, cacheSize int) (*SessionProjector, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultSessionCacheSize
	}
	ids, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionProjector{users: users, ids: ids}, nil
}

// Project returns a copy of sess with User.ID set. A session whose email has
// no backing record fails with apperr.ErrSessionUserNotFound.
func (p *SessionProjector) Project(ctx context.Context, sess *models.Session) (*models.Session, error) {
	if sess == nil || sess.User.Email == "" {
		return nil, fmt.Errorf("session without email: %w", apperr.ErrSessionUserNotFound)
	}
	email := sess.User.Email
	out := *sess

	if id, ok := p.ids.Get(email); ok {
		out.User.ID = id
		return &out, nil
	}

	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, fmt.Errorf("session for %s: %w", email, apperr.ErrSessionUserNotFound)
		}
		return nil, fmt.Errorf("project session for %s: %w", email, err)
	}

	p.ids.Add(email, user.ID)
	out.User.ID = user.ID
	return &out, nil
}
