package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

// bcryptCost is the work factor for end-user and admin passwords. Roughly
// 100ms per hash on current hardware.
const bcryptCost = 12

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash. The
// comparison is constant-time inside bcrypt.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the end-user password policy: 8-72 characters
// with at least one lowercase letter, one uppercase letter and one digit.
// The 72-byte cap is bcrypt's input limit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Validation("Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperr.Validation("Password must be at most 72 characters")
	}

	var lower, upper, digit bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return apperr.Validation("Password must contain at least one lowercase letter, one uppercase letter and one digit")
	}
	return nil
}

// ValidateAdminPassword enforces the stricter admin policy: 12-72 characters.
func ValidateAdminPassword(password string) error {
	if len(password) < 12 {
		return apperr.Validation("Admin password must be at least 12 characters")
	}
	if len(password) > 72 {
		return apperr.Validation("Admin password must be at most 72 characters")
	}
	return nil
}
