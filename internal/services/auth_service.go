package services

import (
	"context"
	"errors"
	"fmt"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/repositories"
	"promptshare/internal/validation"

	"github.com/sirupsen/logrus"
)

// AuthService handles the credential flows: registration and password login.
type AuthService struct {
	users  repositories.UserRepository
	hasher *PasswordHasher
	tokens *TokenService
	events EventPublisher
	log    logrus.FieldLogger

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(users repositories.UserRepository, hasher *PasswordHasher, tokens *TokenService, events EventPublisher, log logrus.FieldLogger) *AuthService {
	dummy, err := hasher.Hash("timing-equaliser-Pa55!")
	if err != nil {
		log.WithError(err).Warn("failed to prepare dummy password hash")
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		events:    events,
		log:       log,
		dummyHash: dummy,
	}
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password,max=72"`
}

// Register validates the plaintext input, enforces email uniqueness, hashes
// the password and stores a new credential-based user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, fmt.Errorf("email '%s' already registered: %w", in.Email, apperr.ErrDuplicateEmail)
	}
	if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
	}
	// The unique index still rejects a concurrent registration that passed
	// the lookup above.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	publishUserCreated(s.events, s.log, models.NewUserCreatedEvent(user, models.SourceRegistration, ""))
	return user, nil
}

// LoginInput is the login request body. Only presence is checked; the
// password policy applies at registration.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the bearer token and the public projection of the user.
type LoginResult struct {
	Token string
	User  models.PublicUser
}

// Login authenticates email/password and issues a token. An unknown email and
// a wrong password both fail with apperr.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmailWithPassword(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			s.hasher.Verify(in.Password, s.dummyHash)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// OAuth-derived accounts have no hash and can never pass here.
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user.Public()}, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	return s.tokens.Verify(tokenString)
}

// CurrentUser loads the user a verified token was issued to.
func (s *AuthService) CurrentUser(ctx context.Context, claims *TokenClaims) (*models.User, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", claims.UserID, err)
	}
	return user, nil
}
