// Package validation wraps go-playground/validator with the account rules
// shared by registration, the user directory and OAuth username derivation.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"promptshare/internal/apperr"
)

const (
	UsernameMinLen = 8
	UsernameMaxLen = 20

	PasswordMinLen = 8
	// PasswordMaxLen is bcrypt's input limit.
	PasswordMaxLen = 72

	passwordSpecials = "@$!%*?&"
)

// ValidationError lists the offending fields keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", apperr.ErrValidation, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return apperr.ErrValidation }

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator with the custom rules
// registered. validator.Validate caches struct metadata and is safe for
// concurrent use.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return IsValidUsername(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s and converts validator failures into a *ValidationError.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "must be a valid email address"
	case "username":
		return "must be 8-20 letters, digits, '.' or '_' without leading, trailing or doubled separators"
	case "password":
		return "must be at least 8 characters with an uppercase letter, a lowercase letter, a number and one of @$!%*?&"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func isSeparator(r rune) bool { return r == '.' || r == '_' }

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// IsValidUsername reports whether s is 8-20 characters of [A-Za-z0-9._]
// with no leading, trailing or consecutive '.'/'_'.
func IsValidUsername(s string) bool {
	if len(s) < UsernameMinLen || len(s) > UsernameMaxLen {
		return false
	}
	prevSep := false
	for i, r := range s {
		switch {
		case isASCIIAlnum(r):
			prevSep = false
		case isSeparator(r):
			if i == 0 || prevSep {
				return false
			}
			prevSep = true
		default:
			return false
		}
	}
	return !prevSep
}

// IsStrongPassword reports whether s is at least 8 characters drawn from
// letters, digits and @$!%*?&, containing at least one of each class.
func IsStrongPassword(s string) bool {
	if len(s) < PasswordMinLen {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}
