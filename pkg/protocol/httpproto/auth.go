package httpproto

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// applyAuth mutates req in place per spec §4.7's per-kind rules, using
// cache as the shared OAuth2 token store for the owning protocol instance.
func applyAuth(ctx context.Context, req *http.Request, auth utcptypes.Auth, cache *tokenCache) error {
	if auth == nil {
		return nil
	}
	switch a := auth.(type) {
	case *utcptypes.APIKeyAuth:
		return applyAPIKey(req, a)
	case *utcptypes.BasicAuth:
		applyBasic(req, a)
		return nil
	case *utcptypes.OAuth2Auth:
		return applyOAuth2(ctx, req, a, cache)
	default:
		return &utcperr.MissingCredentialError{Kind: string(auth.Kind())}
	}
}

func applyAPIKey(req *http.Request, a *utcptypes.APIKeyAuth) error {
	if a.Key == "" {
		return &utcperr.MissingCredentialError{Kind: string(utcptypes.AuthKindAPIKey)}
	}
	switch a.Location {
	case utcptypes.APIKeyLocationHeader, "":
		req.Header.Set(a.VarName, a.Key)
	case utcptypes.APIKeyLocationQuery:
		q := req.URL.Query()
		q.Set(a.VarName, a.Key)
		req.URL.RawQuery = q.Encode()
	case utcptypes.APIKeyLocationCookie:
		req.AddCookie(&http.Cookie{Name: a.VarName, Value: a.Key})
	}
	return nil
}

func applyBasic(req *http.Request, a *utcptypes.BasicAuth) {
	req.SetBasicAuth(a.Username, a.Password)
}

// applyOAuth2 implements the two-attempt client-credentials grant from
// spec §4.7/§6: first with credentials in the form body
// (oauth2.AuthStyleInParams), then, on failure, with credentials via HTTP
// Basic auth and only grant_type/scope in the body
// (oauth2.AuthStyleInHeader). Successful grants are cached by client_id.
// Each attempt is itself retried with exponential backoff
// (github.com/cenkalti/backoff/v4) when the failure looks transient (a
// network error or a 429/502/503/504 from the token endpoint); a permanent
// rejection (bad credentials, malformed request) fails the attempt
// immediately and falls through to the next AuthStyle.
func applyOAuth2(ctx context.Context, req *http.Request, a *utcptypes.OAuth2Auth, cache *tokenCache) error {
	if token, ok := cache.get(a.ClientID); ok {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	var scopes []string
	if a.Scope != "" {
		scopes = []string{a.Scope}
	}

	var lastErr error
	for _, style := range []oauth2.AuthStyle{oauth2.AuthStyleInParams, oauth2.AuthStyleInHeader} {
		cfg := &clientcredentials.Config{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			TokenURL:     a.TokenURL,
			Scopes:       scopes,
			AuthStyle:    style,
		}

		var token *oauth2.Token
		fetch := func() error {
			t, err := cfg.Token(ctx)
			if err != nil {
				if !isTransientOAuthErr(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			token = t
			return nil
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		if err := backoff.Retry(fetch, bo); err != nil {
			lastErr = unwrapPermanent(err)
			continue
		}
		cache.set(a.ClientID, token.AccessToken, token.Expiry)
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		return nil
	}
	return lastErr
}

// isTransientOAuthErr reports whether err from a client-credentials token
// fetch is worth retrying: a network-level failure, or a token endpoint
// response carrying a retryable HTTP status.
func isTransientOAuthErr(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// unwrapPermanent strips backoff's PermanentError wrapper so callers see the
// underlying token-fetch error.
func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// basicHeaderValue is exposed for tests that need to assert the exact
// header UTCP would send without round-tripping through net/http.
func basicHeaderValue(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
