package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return &Engine{client: http.DefaultClient, log: slog.Default()}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "the-code", r.FormValue("code"))
		assert.Equal(t, "client-1", r.FormValue("client_id"))
		assert.Equal(t, "hunter2", r.FormValue("client_secret"))
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	defer srv.Close()

	cfg := &Config{ProviderName: "github", ClientID: "client-1", ClientSecret: "hunter2", TokenURL: srv.URL}
	tok, err := testEngine().exchangeCode(context.Background(), cfg, "the-code", "https://app/cb")
	require.NoError(t, err)
	assert.Equal(t, "provider-token", tok)
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := &Config{ProviderName: "github", TokenURL: srv.URL}
	_, err := testEngine().exchangeCode(context.Background(), cfg, "stale", "https://app/cb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange failed")
}

func TestFetchUserInfoProjection(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		email   string
		display string
		userID  string
	}{
		{
			name:    "google style",
			body:    `{"sub":"108","email":"a@x.com","name":"Ada","picture":"https://img/a.png"}`,
			email:   "a@x.com",
			display: "Ada",
			userID:  "108",
		},
		{
			name:    "github style numeric id",
			body:    `{"id":12345,"login":"octocat","email":"octo@x.com","avatar_url":"https://img/o.png"}`,
			email:   "octo@x.com",
			display: "octocat",
			userID:  "12345",
		},
		{
			name:    "microsoft style",
			body:    `{"oid":"ms-1","mail":"m@x.com","displayName":"M"}`,
			email:   "m@x.com",
			display: "M",
			userID:  "ms-1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cfg := &Config{ProviderName: "custom", UserInfoURL: srv.URL}
			info, raw, err := testEngine().fetchUserInfo(context.Background(), cfg, "tok")
			require.NoError(t, err)
			assert.Equal(t, tc.email, info.Email)
			assert.Equal(t, tc.display, info.DisplayName)
			assert.Equal(t, tc.userID, info.ProviderUserID)
			assert.JSONEq(t, tc.body, raw)
		})
	}
}

func TestFetchUserInfoMissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1","name":"No Email"}`))
	}))
	defer srv.Close()

	cfg := &Config{ProviderName: "custom", UserInfoURL: srv.URL}
	_, _, err := testEngine().fetchUserInfo(context.Background(), cfg, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email not provided")
}
