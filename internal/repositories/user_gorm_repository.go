package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptshare/internal/apperr"
	"promptshare/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// publicColumns is the default read projection; password_hash is left out.
var publicColumns = []string{
	"id", "email", "username", "image",
	"github_id", "google_id", "facebook_id",
	"created_at", "updated_at",
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
// The handle should be opened with TranslateError enabled so unique
// violations surface as gorm.ErrDuplicatedKey.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Migrate creates or updates the users table and its unique indexes.
func (r *GORMUserRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return storageErr("migrate users", err)
	}
	return nil
}

// FindByEmail retrieves a user by their email, without the password hash.
func (r *GORMUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Select(publicColumns), "email", email)
}

// FindByEmailWithPassword retrieves a user by their email, including the password hash.
func (r *GORMUserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx), "email", email)
}

// FindByID retrieves a user by their ID, without the password hash.
func (r *GORMUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Select(publicColumns), "id", id)
}

func (r *GORMUserRepository) first(q *gorm.DB, column, value string) (*models.User, error) {
	var user models.User
	if err := q.Where(column+" = ?", value).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with %s %s: %w", column, value, apperr.ErrUserNotFound)
		}
		return nil, storageErr("find user by "+column, err)
	}
	return &user, nil
}

// Create inserts a new user. Email uniqueness is enforced by the unique index,
// so two racing inserts cannot both succeed.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := validateNewUser(user); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.Email, apperr.ErrDuplicateEmail)
		}
		return storageErr("create user", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Handles opened without TranslateError.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
