package utcptypes

import (
	"encoding/json"
	"fmt"
)

// AuthKind discriminates the Auth tagged union.
type AuthKind string

const (
	// AuthKindAPIKey injects a key into a header, query parameter, or cookie.
	AuthKindAPIKey AuthKind = "api_key"
	// AuthKindBasic encodes user:password as HTTP Basic auth.
	AuthKindBasic AuthKind = "basic"
	// AuthKindOAuth2 performs a client-credentials grant and caches the token.
	AuthKindOAuth2 AuthKind = "oauth2"
)

// APIKeyLocation enumerates where an API key auth scheme places its value.
type APIKeyLocation string

const (
	APIKeyLocationHeader APIKeyLocation = "header"
	APIKeyLocationQuery  APIKeyLocation = "query"
	APIKeyLocationCookie APIKeyLocation = "cookie"
)

// Auth is a tagged-union variant identifying how a call template
// authenticates outbound requests.
type Auth interface {
	// Kind returns the auth discriminator.
	Kind() AuthKind
	// Clone returns a deep copy, so repository reads never share state with
	// stored templates.
	Clone() Auth
}

// APIKeyAuth carries a static or variable-resolved API key.
type APIKeyAuth struct {
	// Key is the literal or ${VAR}-templated key value.
	Key string `json:"api_key"`
	// VarName is the header/query/cookie name the key is injected under.
	VarName string `json:"var_name"`
	// Location selects where the key is injected.
	Location APIKeyLocation `json:"location"`
}

func (a *APIKeyAuth) Kind() AuthKind { return AuthKindAPIKey }

func (a *APIKeyAuth) Clone() Auth {
	cp := *a
	return &cp
}

// BasicAuth carries HTTP Basic credentials.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *BasicAuth) Kind() AuthKind { return AuthKindBasic }

func (a *BasicAuth) Clone() Auth {
	cp := *a
	return &cp
}

// OAuth2Auth carries client-credentials grant parameters.
type OAuth2Auth struct {
	TokenURL     string `json:"token_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope,omitempty"`
}

func (a *OAuth2Auth) Kind() AuthKind { return AuthKindOAuth2 }

func (a *OAuth2Auth) Clone() Auth {
	cp := *a
	return &cp
}

// authEnvelope is the wire shape shared by every Auth variant: a
// discriminator plus the variant's own fields inlined at the top level.
type authEnvelope struct {
	AuthType AuthKind `json:"auth_type"`
}

// DecodeAuth parses a JSON auth object into the concrete Auth variant named
// by its "auth_type" discriminator.
func DecodeAuth(data []byte) (Auth, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env authEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode auth envelope: %w", err)
	}
	switch env.AuthType {
	case AuthKindAPIKey:
		var a APIKeyAuth
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode api_key auth: %w", err)
		}
		return &a, nil
	case AuthKindBasic:
		var a BasicAuth
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode basic auth: %w", err)
		}
		return &a, nil
	case AuthKindOAuth2:
		var a OAuth2Auth
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode oauth2 auth: %w", err)
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown auth_type %q", env.AuthType)
	}
}

// EncodeAuth serializes an Auth variant back to its tagged JSON wire form.
func EncodeAuth(a Auth) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	switch v := a.(type) {
	case *APIKeyAuth:
		return json.Marshal(struct {
			AuthType AuthKind `json:"auth_type"`
			*APIKeyAuth
		}{AuthKindAPIKey, v})
	case *BasicAuth:
		return json.Marshal(struct {
			AuthType AuthKind `json:"auth_type"`
			*BasicAuth
		}{AuthKindBasic, v})
	case *OAuth2Auth:
		return json.Marshal(struct {
			AuthType AuthKind `json:"auth_type"`
			*OAuth2Auth
		}{AuthKindOAuth2, v})
	default:
		return nil, fmt.Errorf("unknown auth variant %T", a)
	}
}
