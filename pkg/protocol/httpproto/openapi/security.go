package openapi

import (
	"fmt"

	"goa.design/utcp/pkg/utcptypes"
)

// matchSecurity resolves the first security requirement (operation-level,
// falling back to global) against the document's security schemes. When
// the scheme's kind and, for api-key, variable-name/location match the
// caller-provided authTools, the caller's live credential is used;
// otherwise a placeholder "${NAME_N}" is emitted, with N taken from
// nextIndex and incremented per placeholder so multiple schemes never
// collide.
func matchSecurity(opSecurity any, globalSecurity []any, securitySchemes map[string]any, authTools utcptypes.Auth, nextIndex int) (utcptypes.Auth, int) {
	reqs, ok := opSecurity.([]any)
	if !ok || len(reqs) == 0 {
		reqs = globalSecurity
	}
	if len(reqs) == 0 {
		return nil, nextIndex
	}
	req, ok := reqs[0].(map[string]any)
	if !ok {
		return nil, nextIndex
	}
	var schemeName string
	for name := range req {
		schemeName = name
		break
	}
	if schemeName == "" {
		return nil, nextIndex
	}
	scheme, ok := securitySchemes[schemeName].(map[string]any)
	if !ok {
		return nil, nextIndex
	}
	schemeType, _ := scheme["type"].(string)

	switch schemeType {
	case "apiKey":
		varName, _ := scheme["name"].(string)
		location, _ := scheme["in"].(string)
		loc := utcptypes.APIKeyLocation(location)
		if aka, ok := authTools.(*utcptypes.APIKeyAuth); ok && aka.VarName == varName && aka.Location == loc {
			return aka.Clone().(*utcptypes.APIKeyAuth), nextIndex
		}
		placeholder := fmt.Sprintf("${%s_%d}", sanitizePlaceholder(varName), nextIndex)
		return &utcptypes.APIKeyAuth{Key: placeholder, VarName: varName, Location: loc}, nextIndex + 1
	case "http":
		httpScheme, _ := scheme["scheme"].(string)
		if httpScheme == "basic" {
			if ba, ok := authTools.(*utcptypes.BasicAuth); ok {
				return ba.Clone().(*utcptypes.BasicAuth), nextIndex
			}
			placeholder := fmt.Sprintf("${%s_%d}", sanitizePlaceholder(schemeName), nextIndex)
			return &utcptypes.BasicAuth{Username: placeholder, Password: placeholder}, nextIndex + 1
		}
		return nil, nextIndex
	case "oauth2", "openIdConnect":
		if oa, ok := authTools.(*utcptypes.OAuth2Auth); ok {
			return oa.Clone().(*utcptypes.OAuth2Auth), nextIndex
		}
		placeholder := fmt.Sprintf("${%s_%d}", sanitizePlaceholder(schemeName), nextIndex)
		return &utcptypes.OAuth2Auth{ClientID: placeholder, ClientSecret: placeholder}, nextIndex + 1
	default:
		return nil, nextIndex
	}
}

func sanitizePlaceholder(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
