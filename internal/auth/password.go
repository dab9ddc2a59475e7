package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/staybook/internal/models"
)

// bcryptCost matches the work factor the original deployment used. bcrypt
// derives a fresh salt on every call, so no hash shares salt material with
// another.
const bcryptCost = 10

const maxPasswordLength = 72 // bcrypt input limit

// HashPassword derives a salted bcrypt digest of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > maxPasswordLength {
		return "", errors.New("password exceeds maximum length")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword compares a password against a stored bcrypt digest.
// The comparison inside bcrypt is constant-time on the derived key.
func VerifyPassword(passwordHash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.ErrWrongPassword
	}

	return nil
}
