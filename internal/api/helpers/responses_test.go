package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
}

func TestRespondErrorAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, apperr.NotFound("Project"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Project not found", env.Error)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

func TestRespondErrorUnknownErrorStaysGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: column users.email does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.NotContains(t, env.Error, "pq:")
}

func TestRespondErrorRateLimitHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, apperr.RateLimited(300))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))
}
