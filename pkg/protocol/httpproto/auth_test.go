package httpproto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"goa.design/utcp/pkg/utcptypes"
)

func TestApplyAuth_NilAuthIsANoop(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req, nil, newTokenCache()))
	require.Empty(t, req.Header.Get("Authorization"))
}

func TestApplyAuth_BasicSetsExpectedHeader(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req, &utcptypes.BasicAuth{Username: "u", Password: "p"}, newTokenCache()))
	require.Equal(t, basicHeaderValue("u", "p"), req.Header.Get("Authorization"))
}

func TestApplyAuth_APIKeyRejectsEmptyCredential(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	err = applyAuth(context.Background(), req, &utcptypes.APIKeyAuth{VarName: "X-API-Key", Location: utcptypes.APIKeyLocationHeader}, newTokenCache())
	require.Error(t, err)
}

func TestApplyAuth_APIKeyInQueryAndCookieLocations(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req, &utcptypes.APIKeyAuth{Key: "secret", VarName: "token", Location: utcptypes.APIKeyLocationQuery}, newTokenCache()))
	require.Equal(t, "secret", req.URL.Query().Get("token"))

	req2, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req2, &utcptypes.APIKeyAuth{Key: "secret", VarName: "session", Location: utcptypes.APIKeyLocationCookie}, newTokenCache()))
	cookie, err := req2.Cookie("session")
	require.NoError(t, err)
	require.Equal(t, "secret", cookie.Value)
}

func TestApplyAuth_OAuth2FetchesAndCachesToken(t *testing.T) {
	t.Parallel()

	var tokenRequests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "token_type": "bearer"})
	}))
	defer srv.Close()

	cache := newTokenCache()
	a := &utcptypes.OAuth2Auth{ClientID: "client", ClientSecret: "secret", TokenURL: srv.URL}

	req1, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req1, a, cache))
	require.Equal(t, "Bearer tok-123", req1.Header.Get("Authorization"))

	req2, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req2, a, cache))
	require.Equal(t, "Bearer tok-123", req2.Header.Get("Authorization"))
	require.Equal(t, 1, tokenRequests, "second call should reuse the cached token rather than re-fetching")
}

func TestApplyAuth_OAuth2RetriesTransientFailureThenSucceeds(t *testing.T) {
	t.Parallel()

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-after-retry", "token_type": "bearer"})
	}))
	defer srv.Close()

	cache := newTokenCache()
	a := &utcptypes.OAuth2Auth{ClientID: "client", ClientSecret: "secret", TokenURL: srv.URL}

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.NoError(t, applyAuth(context.Background(), req, a, cache))
	require.Equal(t, "Bearer tok-after-retry", req.Header.Get("Authorization"))
	require.GreaterOrEqual(t, attempts, 2, "a transient 503 should be retried rather than failing the attempt")
}

func TestApplyAuth_OAuth2PermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_client"})
	}))
	defer srv.Close()

	cache := newTokenCache()
	a := &utcptypes.OAuth2Auth{ClientID: "client", ClientSecret: "wrong", TokenURL: srv.URL}

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/x", nil)
	require.NoError(t, err)
	require.Error(t, applyAuth(context.Background(), req, a, cache))
	require.Equal(t, 2, attempts, "a permanent 401 should fail each AuthStyle attempt exactly once, never retried")
}

func TestIsTransientOAuthErr(t *testing.T) {
	t.Parallel()

	retryable := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	require.True(t, isTransientOAuthErr(retryable))

	permanent := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusUnauthorized}}
	require.False(t, isTransientOAuthErr(permanent))
}

func TestTokenCache_GetExpiresEntriesPastTheirExpiry(t *testing.T) {
	t.Parallel()

	cache := newTokenCache()
	cache.set("client", "expired-token", time.Now().Add(-time.Hour))
	_, ok := cache.get("client")
	require.False(t, ok)
}

func TestTokenCache_GetNeverExpiresZeroExpiry(t *testing.T) {
	t.Parallel()

	cache := newTokenCache()
	cache.set("client", "forever-token", time.Time{})
	token, ok := cache.get("client")
	require.True(t, ok)
	require.Equal(t, "forever-token", token)
}
