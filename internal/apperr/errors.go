// Package apperr holds the error taxonomy shared by the directory, the
// services and the HTTP handlers.
package apperr

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrValidation         = errors.New("validation failed")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrSessionUserNotFound = errors.New("session user not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PublicMessage returns a message for err that is safe to put in a 5xx
// response body. Only the outermost known sentinel is exposed.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorageUnavailable):
		return ErrStorageUnavailable.Error()
	case errors.Is(err, ErrTokenExpired):
		return ErrTokenExpired.Error()
	case errors.Is(err, ErrTokenInvalid):
		return ErrTokenInvalid.Error()
	default:
		return "unexpected error"
	}
}
