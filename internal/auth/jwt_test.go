package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/internal/crypto"
	"github.com/gatehouse-dev/gatehouse/internal/project"
)

func testProject(t *testing.T, id string) *project.Project {
	t.Helper()
	secret, err := crypto.GenerateSigningSecret()
	require.NoError(t, err)
	return &project.Project{
		ID:                     id,
		Name:                   "Test Project",
		SigningSecret:          secret,
		SigningAlgorithm:       "HS256",
		AccessTokenTTLSeconds:  3600,
		RefreshTokenTTLSeconds: 604800,
		Enabled:                true,
	}
}

func TestAccessTokenRoundtrip(t *testing.T) {
	p := testProject(t, "test_app")
	userID := uuid.New()

	tokenString, err := MintAccessToken(p, userID, "user@example.com")
	require.NoError(t, err)

	claims, err := VerifyAccessToken(p, tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "test_app", claims.ProjectID)

	parsed, err := UserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestAccessTokenExpiry(t *testing.T) {
	p := testProject(t, "test_app")
	tokenString, err := MintAccessToken(p, uuid.New(), "user@example.com")
	require.NoError(t, err)

	claims, err := VerifyAccessToken(p, tokenString)
	require.NoError(t, err)

	ttl := time.Until(claims.ExpiresAt.Time)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)
}

func TestAccessTokenRejectsOtherProject(t *testing.T) {
	p1 := testProject(t, "project_one")
	p2 := testProject(t, "project_two")

	tokenString, err := MintAccessToken(p1, uuid.New(), "user@example.com")
	require.NoError(t, err)

	// Different secret: signature fails.
	_, err = VerifyAccessToken(p2, tokenString)
	assert.Error(t, err)

	// Same secret, different project id: the projectId claim check fails.
	p3 := *p1
	p3.ID = "project_three"
	_, err = VerifyAccessToken(&p3, tokenString)
	assert.Error(t, err)
}

func TestAccessTokenRejectsGarbage(t *testing.T) {
	p := testProject(t, "test_app")
	_, err := VerifyAccessToken(p, "not.a.jwt")
	assert.Error(t, err)
	_, err = VerifyAccessToken(p, "")
	assert.Error(t, err)
}
