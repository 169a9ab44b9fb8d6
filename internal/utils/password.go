package utils

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to customer self-registration and staff
// accounts alike.
const MinPasswordLength = 8

var ErrWeakPassword = errors.New("password must be at least 8 characters")

// CheckPassword enforces the length rule on the number of characters, not
// bytes.  bcrypt ignores everything past 72 bytes, so longer input is refused.
func CheckPassword(plain string) error {
	if utf8.RuneCountInString(plain) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(plain) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// HashPassword hashes plain with cost, clamped to bcrypt's accepted range.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
