package repositories

import (
	"context"
	"fmt"

	"promptshare/internal/apperr"
	"promptshare/internal/models"
	"promptshare/internal/validation"
)

// UserRepository is the user directory: the authoritative store of canonical
// user records keyed by email.
//
// Lookups return apperr.ErrUserNotFound when no record matches. Create
// returns apperr.ErrDuplicateEmail when a unique key is already taken and a
// *validation.ValidationError when the record breaks the account rules.
// Driver and connectivity failures wrap apperr.ErrStorageUnavailable.
type UserRepository interface {
	// FindByEmail returns the record without its password hash.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByEmailWithPassword also loads the normally hidden password hash.
	FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// validateNewUser checks the record-level rules every backend enforces
// before inserting.
func validateNewUser(user *models.User) error {
	if err := validation.Struct(user); err != nil {
		return err
	}
	if user.PasswordHash != "" && user.HasProviderLink() {
		return &validation.ValidationError{Fields: map[string]string{
			"password": "credential accounts cannot carry a provider link",
		}}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, apperr.ErrStorageUnavailable, err)
}
