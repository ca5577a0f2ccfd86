package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret")

	raw := p.AuthURL("opaque-state", "https://portal.example.com/auth/google/callback")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "https://portal.example.com/auth/google/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-token-value",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("client-id", "client-secret")
	p.endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	t.Run("success", func(t *testing.T) {
		token, err := p.Exchange(context.Background(), "good-code", "https://portal.example.com/cb")
		require.NoError(t, err)
		assert.Equal(t, "access-token-value", token.AccessToken)
	})

	t.Run("provider rejects code", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "bad-code", "https://portal.example.com/cb")
		assert.ErrorIs(t, err, ErrExchangeFailed)
	})
}

func TestGoogleProvider_Profile(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		expected Profile
	}{
		{
			name: "full profile",
			response: map[string]any{
				"sub":   "google-sub-1",
				"email": "Alice@Example.com",
				"name":  "Alice",
			},
			expected: Profile{
				Subject: "google-sub-1",
				Email:   "alice@example.com",
				Name:    "Alice",
			},
		},
		{
			name: "v2 id field instead of sub",
			response: map[string]any{
				"id":    "google-id-2",
				"email": "bob@example.com",
			},
			expected: Profile{
				Subject: "google-id-2",
				Email:   "bob@example.com",
				Name:    "bob@example.com",
			},
		},
		{
			name: "no email",
			response: map[string]any{
				"sub": "google-sub-3",
			},
			expected: Profile{
				Subject: "google-sub-3",
				Email:   "google-sub-3@google.invalid",
				Name:    "google-sub-3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			t.Cleanup(srv.Close)

			p := NewGoogleProvider("client-id", "client-secret")
			p.userInfoURL = srv.URL

			profile, err := p.Profile(context.Background(), &oauth2.Token{AccessToken: "tok"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *profile)
		})
	}
}

func TestGoogleProvider_ProfileEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("client-id", "client-secret")
	p.userInfoURL = srv.URL

	_, err := p.Profile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	assert.ErrorIs(t, err, ErrProfileFailed)
}
