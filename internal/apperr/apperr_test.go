package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsProjectToStatusCodes(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{Validation("bad name"), http.StatusBadRequest, "VALIDATION"},
		{BadRequest("exchange failed"), http.StatusBadRequest, "BAD_REQUEST"},
		{AuthFailure("Invalid credentials"), http.StatusUnauthorized, "AUTH_FAILURE"},
		{Forbidden("admin role required"), http.StatusForbidden, "FORBIDDEN"},
		{NotFound("Project"), http.StatusNotFound, "NOT_FOUND"},
		{Conflict("email already registered"), http.StatusConflict, "CONFLICT"},
		{RateLimited(300), http.StatusTooManyRequests, "RATE_LIMITED"},
		{Internal(errors.New("pq: boom")), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status, tc.code)
		assert.Equal(t, tc.code, tc.err.Code)
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: duplicate key value violates unique constraint")
	err := Internal(cause)

	assert.NotContains(t, err.Error(), "pq:")
	assert.ErrorIs(t, err, cause)
}

func TestRateLimitedCarriesRetryHint(t *testing.T) {
	err := RateLimited(900)
	assert.Equal(t, 900, err.RetryAfterSeconds)
	assert.Contains(t, err.Message, "900")
}

func TestFromUpgradesUnknownErrors(t *testing.T) {
	plain := errors.New("connection refused")
	ae := From(plain)
	require.NotNil(t, ae)
	assert.Equal(t, "INTERNAL", ae.Code)
	assert.ErrorIs(t, ae, plain)

	wrapped := fmt.Errorf("login: %w", AuthFailure("Invalid credentials"))
	ae = From(wrapped)
	assert.Equal(t, "AUTH_FAILURE", ae.Code)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
}
