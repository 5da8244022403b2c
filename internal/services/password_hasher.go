package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor applied to every stored password.
const BcryptCost = 10

// PasswordHasher turns plaintext passwords into salted bcrypt hashes and
// checks candidates against them.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher using BcryptCost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: BcryptCost}
}

// NewPasswordHasherWithCost is used by tests that cannot afford cost 10.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash returns a fresh salted hash; hashing the same plaintext twice yields
// different results.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares the derived
// keys in constant time.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
