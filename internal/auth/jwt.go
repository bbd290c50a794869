package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/project"
)

// AccessClaims are the claims carried by every access token.
type AccessClaims struct {
	Email     string `json:"email"`
	ProjectID string `json:"projectId"`
	jwt.RegisteredClaims
}

// MintAccessToken signs an HS256 access token for the user under the
// project's signing secret. The secret is base64 at rest and raw bytes in
// the HMAC.
func MintAccessToken(p *project.Project, userID uuid.UUID, email string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(p.SigningSecret)
	if err != nil {
		return "", fmt.Errorf("signing_secret_decode_failed: %w", err)
	}

	now := time.Now()
	claims := AccessClaims{
		Email:     email,
		ProjectID: p.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.AccessTokenTTL())),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken parses and validates a token against the project's
// secret. Tokens minted for a different project are rejected even when the
// signature happens to verify.
func VerifyAccessToken(p *project.Project, tokenString string) (*AccessClaims, error) {
	secret, err := base64.StdEncoding.DecodeString(p.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("signing_secret_decode_failed: %w", err)
	}

	claims := &AccessClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}

	if claims.ProjectID != p.ID {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}

	return claims, nil
}

// UserIDFromClaims parses the subject claim back to a UUID.
func UserIDFromClaims(claims *AccessClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperr.AuthFailure("Invalid or expired token")
	}
	return id, nil
}
