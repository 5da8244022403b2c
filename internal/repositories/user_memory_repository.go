package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"promptshare/internal/apperr"
	"promptshare/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	users      map[string]models.User // by ID
	byEmail    map[string]string
	byProvider map[string]string // "<provider>:<subject>" -> ID
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[string]models.User),
		byEmail:    make(map[string]string),
		byProvider: make(map[string]string),
	}
}

// FindByEmail returns the user with the given email, without its password hash.
func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, err := r.findByEmail(email)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// FindByEmailWithPassword returns the user with the given email, including its password hash.
func (r *MemoryUserRepository) FindByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	return r.findByEmail(email)
}

func (r *MemoryUserRepository) findByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, apperr.ErrUserNotFound)
	}
	user := r.users[id]
	return &user, nil
}

// FindByID returns the user with the given ID, without its password hash.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, apperr.ErrUserNotFound)
	}
	user.PasswordHash = ""
	return &user, nil
}

// Create adds a new user. The uniqueness checks and the insert happen under
// one write lock.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	if err := validateNewUser(user); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return fmt.Errorf("create user %s: %w", user.Email, apperr.ErrDuplicateEmail)
	}
	links := providerKeys(user)
	for _, key := range links {
		if _, ok := r.byProvider[key]; ok {
			return fmt.Errorf("create user %s: provider link %s taken: %w", user.Email, key, apperr.ErrDuplicateEmail)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	for _, key := range links {
		r.byProvider[key] = user.ID
	}
	return nil
}

// Len returns the number of stored users.
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func providerKeys(user *models.User) []string {
	var keys []string
	if user.GitHubID != nil {
		keys = append(keys, string(models.ProviderGitHub)+":"+*user.GitHubID)
	}
	if user.GoogleID != nil {
		keys = append(keys, string(models.ProviderGoogle)+":"+*user.GoogleID)
	}
	if user.FacebookID != nil {
		keys = append(keys, string(models.ProviderFacebook)+":"+*user.FacebookID)
	}
	return keys
}
