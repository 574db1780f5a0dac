package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCost is returned for a work factor outside bcrypt's range.
	// bcrypt itself would silently fall back to its default below MinCost.
	ErrInvalidCost = errors.New("bcrypt cost out of range")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's
	// 72 byte input.  A 72 rune password with multibyte characters does.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// ValidCost reports whether cost can be passed to HashPassword.
func ValidCost(cost int) bool {
	return cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost
}

// HashPassword returns the bcrypt hash of plain at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if !ValidCost(cost) {
		return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a login attempt.  Any error,
// including a malformed hash, is a mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
