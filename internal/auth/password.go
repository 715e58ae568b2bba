package auth

import (
	"golang.org/x/crypto/bcrypt"

	"chirpnet/internal/apperr"
)

// HashPassword produces a salted bcrypt hash of the plaintext. The hash is
// what gets stored; the plaintext is never persisted anywhere.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks a plaintext candidate against a stored hash. Any
// mismatch is reported as ErrInvalidCredentials so callers cannot tell a
// wrong password from a corrupt hash.
func ComparePassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperr.ErrInvalidCredentials
	}
	return nil
}
