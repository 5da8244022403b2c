package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/repositories"
	"promptshare/internal/services"
	"promptshare/internal/validation"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishUserCreated(event models.UserCreatedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

var testLog = newTestLogger()

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const testJWTSecret = "test_jwt_secret_0123456789"

func newAuthService(repo repositories.UserRepository, events services.EventPublisher) (*services.AuthService, *services.TokenService) {
	tokens := services.NewTokenService([]byte(testJWTSecret))
	hasher := services.NewPasswordHasherWithCost(bcrypt.MinCost)
	return services.NewAuthService(repo, hasher, tokens, events, testLog), tokens
}

func notFound(email string) error {
	return fmt.Errorf("user with email %s: %w", email, apperr.ErrUserNotFound)
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockEvents := new(MockEventPublisher)
	authService, _ := newAuthService(mockRepo, mockEvents)
	ctx := context.Background()

	in := services.RegisterInput{Username: "alice.dev1", Email: "a@x.com", Password: "Str0ng!Pass"}

	// Test successful registration
	mockRepo.On("FindByEmail", mock.Anything, in.Email).Return(nil, notFound(in.Email)).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == in.Email && u.Username == in.Username &&
			u.PasswordHash != in.Password && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) == nil &&
			!u.HasProviderLink()
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "user-123"
	}).Return(nil).Once()
	mockEvents.On("PublishUserCreated", mock.MatchedBy(func(e models.UserCreatedEvent) bool {
		return e.UserID == "user-123" && e.Source == models.SourceRegistration
	})).Return(nil).Once()

	user, err := authService.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	mockRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("FindByEmail", mock.Anything, in.Email).Return(&models.User{ID: "user-123"}, nil).Once()
	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)

	// Test duplicate detected by the storage layer
	mockRepo.On("FindByEmail", mock.Anything, in.Email).Return(nil, notFound(in.Email)).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(apperr.ErrDuplicateEmail).Once()
	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)

	// Test storage unavailable
	mockRepo.On("FindByEmail", mock.Anything, in.Email).Return(nil, apperr.ErrStorageUnavailable).Once()
	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_ValidatesPlaintext(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService, _ := newAuthService(mockRepo, nil)

	_, err := authService.Register(context.Background(), services.RegisterInput{
		Username: "al", Email: "a@x.com", Password: "weakpass",
	})
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "password")
	mockRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_EventFailureDoesNotFail(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	mockEvents := new(MockEventPublisher)
	authService, _ := newAuthService(repo, mockEvents)

	mockEvents.On("PublishUserCreated", mock.Anything).Return(errors.New("broker down")).Once()
	user, err := authService.Register(context.Background(), services.RegisterInput{
		Username: "alice.dev1", Email: "a@x.com", Password: "Str0ng!Pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	mockEvents.AssertExpectations(t)
}

func TestAuthService_Register_ConcurrentSameEmail(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	authService, _ := newAuthService(repo, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = authService.Register(context.Background(), services.RegisterInput{
				Username: fmt.Sprintf("racer.user%d", i), Email: "race@x.com", Password: "Str0ng!Pass",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, repo.Len())
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService, tokens := newAuthService(mockRepo, nil)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("Str0ng!Pass"), bcrypt.MinCost)
	user := &models.User{
		ID:           "user-123",
		Username:     "alice.dev1",
		Email:        "a@x.com",
		PasswordHash: string(hashedPassword),
	}

	// Test successful login
	mockRepo.On("FindByEmailWithPassword", mock.Anything, "a@x.com").Return(user, nil).Once()
	result, err := authService.Login(ctx, services.LoginInput{Email: "a@x.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.PublicUser{ID: "user-123", Username: "alice.dev1", Email: "a@x.com"}, result.User)

	claims, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("FindByEmailWithPassword", mock.Anything, "a@x.com").Return(user, nil).Once()
	_, wrongPasswordErr := authService.Login(ctx, services.LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, wrongPasswordErr, apperr.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found) yields the identical error
	mockRepo.On("FindByEmailWithPassword", mock.Anything, "ghost@x.com").Return(nil, notFound("ghost@x.com")).Once()
	_, unknownEmailErr := authService.Login(ctx, services.LoginInput{Email: "ghost@x.com", Password: "Str0ng!Pass"})
	assert.ErrorIs(t, unknownEmailErr, apperr.ErrInvalidCredentials)
	assert.Equal(t, wrongPasswordErr.Error(), unknownEmailErr.Error())
	mockRepo.AssertExpectations(t)

	// Test OAuth-derived account without a password hash
	mockRepo.On("FindByEmailWithPassword", mock.Anything, "oauth@x.com").
		Return(&models.User{ID: "user-456", Email: "oauth@x.com", Username: "oauth.user"}, nil).Once()
	_, err = authService.Login(ctx, services.LoginInput{Email: "oauth@x.com", Password: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = authService.Login(ctx, services.LoginInput{Email: "oauth@x.com", Password: "anything"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Test storage failure is not disguised as bad credentials
	mockRepo.On("FindByEmailWithPassword", mock.Anything, "a@x.com").Return(nil, apperr.ErrStorageUnavailable).Once()
	_, err = authService.Login(ctx, services.LoginInput{Email: "a@x.com", Password: "Str0ng!Pass"})
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, apperr.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_CurrentUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService, _ := newAuthService(mockRepo, nil)

	mockRepo.On("FindByID", mock.Anything, "user-123").Return(&models.User{ID: "user-123", Email: "a@x.com"}, nil).Once()
	user, err := authService.CurrentUser(context.Background(), &services.TokenClaims{UserID: "user-123", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	mockRepo.AssertExpectations(t)
}
