// Package token owns the opaque-token machinery: refresh tokens and
// single-use tokens (password reset, email confirmation). Only SHA-256
// hashes are persisted; plaintext is returned to the caller exactly once.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Token lengths in characters of URL-safe output.
const (
	RefreshTokenLength   = 64
	SingleUseTokenLength = 32
)

// GenerateSecureToken creates a URL-safe random string of exactly n
// characters.
func GenerateSecureToken(n int) (string, error) {
	// base64url yields 4 chars per 3 bytes; n source bytes always encode to
	// at least n characters.
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}

// HashToken returns the hex-encoded SHA-256 of a token, the only form that
// ever touches the database.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
