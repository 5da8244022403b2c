package services_test

import (
	"context"
	"sync"
	"testing"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/repositories"
	"promptshare/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func githubProfile(email string) models.OAuthProfile {
	return models.OAuthProfile{
		Provider:    models.ProviderGitHub,
		Subject:     "583231",
		Email:       email,
		DisplayName: "The Octocat",
		AvatarURL:   "https://avatars.githubusercontent.com/u/583231",
	}
}

func TestIdentityResolver_FirstSignInCreatesUser(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	mockEvents := new(MockEventPublisher)
	resolver := services.NewIdentityResolver(repo, mockEvents, testLog)
	ctx := context.Background()

	mockEvents.On("PublishUserCreated", mock.MatchedBy(func(e models.UserCreatedEvent) bool {
		return e.Email == "octo@x.com" && e.Source == models.SourceOAuth && e.Provider == models.ProviderGitHub
	})).Return(nil).Once()

	assert.True(t, resolver.SignIn(ctx, githubProfile("octo@x.com")))
	assert.Equal(t, 1, repo.Len())

	user, err := repo.FindByEmailWithPassword(ctx, "octo@x.com")
	require.NoError(t, err)
	assert.Equal(t, "theoctocat", user.Username)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/583231", user.Image)
	assert.Empty(t, user.PasswordHash)
	require.NotNil(t, user.GitHubID)
	assert.Equal(t, "583231", *user.GitHubID)

	// A second sign-in binds to the same record and creates nothing.
	assert.True(t, resolver.SignIn(ctx, githubProfile("octo@x.com")))
	assert.Equal(t, 1, repo.Len())
	mockEvents.AssertExpectations(t)
}

func TestIdentityResolver_ExistingUserIsNotUpdated(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	resolver := services.NewIdentityResolver(repo, nil, testLog)
	ctx := context.Background()

	existing := &models.User{Username: "alice.dev1", Email: "a@x.com", PasswordHash: "$2a$10$hash"}
	require.NoError(t, repo.Create(ctx, existing))

	profile := models.OAuthProfile{Provider: models.ProviderGoogle, Subject: "g-1", Email: "a@x.com", DisplayName: "Alice Renamed", AvatarURL: "https://new"}
	user, created, err := resolver.Resolve(ctx, profile)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, user.ID)

	stored, err := repo.FindByEmailWithPassword(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice.dev1", stored.Username)
	assert.Empty(t, stored.Image)
	assert.Nil(t, stored.GoogleID)
	assert.Equal(t, "$2a$10$hash", stored.PasswordHash)
}

func TestIdentityResolver_DeniesOnFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("storage unavailable", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		resolver := services.NewIdentityResolver(mockRepo, nil, testLog)
		mockRepo.On("FindByEmail", mock.Anything, "octo@x.com").Return(nil, apperr.ErrStorageUnavailable).Once()

		assert.False(t, resolver.SignIn(ctx, githubProfile("octo@x.com")))
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("create fails", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		resolver := services.NewIdentityResolver(mockRepo, nil, testLog)
		mockRepo.On("FindByEmail", mock.Anything, "octo@x.com").Return(nil, notFound("octo@x.com")).Once()
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(apperr.ErrStorageUnavailable).Once()

		assert.False(t, resolver.SignIn(ctx, githubProfile("octo@x.com")))
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		resolver := services.NewIdentityResolver(mockRepo, nil, testLog)

		_, _, err := resolver.Resolve(ctx, githubProfile(""))
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.False(t, resolver.SignIn(ctx, githubProfile("")))
		mockRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("provider id already linked to another email", func(t *testing.T) {
		repo := repositories.NewMemoryUserRepository()
		resolver := services.NewIdentityResolver(repo, nil, testLog)
		require.True(t, resolver.SignIn(ctx, githubProfile("old@x.com")))

		assert.False(t, resolver.SignIn(ctx, githubProfile("new@x.com")))
		assert.Equal(t, 1, repo.Len())
	})
}

func TestIdentityResolver_LostCreateRaceBindsToWinner(t *testing.T) {
	mockRepo := new(MockUserRepository)
	resolver := services.NewIdentityResolver(mockRepo, nil, testLog)
	winner := &models.User{ID: "user-1", Email: "octo@x.com", Username: "theoctocat"}

	mockRepo.On("FindByEmail", mock.Anything, "octo@x.com").Return(nil, notFound("octo@x.com")).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(apperr.ErrDuplicateEmail).Once()
	mockRepo.On("FindByEmail", mock.Anything, "octo@x.com").Return(winner, nil).Once()

	user, created, err := resolver.Resolve(context.Background(), githubProfile("octo@x.com"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "user-1", user.ID)
	mockRepo.AssertExpectations(t)
}

func TestIdentityResolver_ConcurrentFirstSignIn(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	resolver := services.NewIdentityResolver(repo, nil, testLog)

	const workers = 10
	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.SignIn(context.Background(), githubProfile("octo@x.com"))
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.Equal(t, 1, repo.Len())
}
