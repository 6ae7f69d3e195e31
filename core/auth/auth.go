package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is counted in characters.
	MinPasswordLength = 8
	// maxPasswordBytes is the most bcrypt will hash.
	maxPasswordBytes = 72
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must contain at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	// ErrPasswordMismatch is returned by VerifyPassword for a wrong password.
	ErrPasswordMismatch = errors.New("password does not match")
)

// ValidatePassword applies the account password policy.
func ValidatePassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword checks the policy and returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword compares password with a stored bcrypt hash. A wrong
// password yields ErrPasswordMismatch; any other error means the stored hash
// is unusable.
func VerifyPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("invalid password hash: %w", err)
	}
}
