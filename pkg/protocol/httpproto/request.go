package httpproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"goa.design/utcp/pkg/utcptypes"
)

// httpFields is the subset of fields shared by http, streamable_http, and
// sse call templates, used to drive request construction and auth
// application uniformly across the three variants.
type httpFields struct {
	URL          string
	Method       utcptypes.HTTPMethod
	ContentType  string
	Headers      map[string]string
	BodyField    string
	HeaderFields []string
	Auth         utcptypes.Auth
}

func fieldsOf(t utcptypes.CallTemplate) (httpFields, error) {
	switch v := t.(type) {
	case *utcptypes.HTTPCallTemplate:
		return httpFields{v.URL, v.Method, v.ContentType, v.Headers, v.BodyField, v.HeaderFields, v.Auth}, nil
	case *utcptypes.StreamableHTTPCallTemplate:
		return httpFields{v.URL, v.Method, v.ContentType, v.Headers, v.BodyField, v.HeaderFields, v.Auth}, nil
	case *utcptypes.SSECallTemplate:
		return httpFields{v.URL, http.MethodGet, "", v.Headers, v.BodyField, v.HeaderFields, v.Auth}, nil
	default:
		return httpFields{}, fmt.Errorf("httpproto: unsupported call template %T", t)
	}
}

var pathParamPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// buildRequest maps args onto fields per spec §4.7's `callTool` rules: path
// placeholders are substituted and removed from the input set, header_fields
// become headers, body_field becomes the body, and anything left over
// becomes query parameters.
func buildRequest(ctx context.Context, fields httpFields, args map[string]any) (*http.Request, error) {
	if err := checkSecure(fields.URL); err != nil {
		return nil, err
	}

	remaining := make(map[string]any, len(args))
	for k, v := range args {
		remaining[k] = v
	}

	resolvedURL := pathParamPattern.ReplaceAllStringFunc(fields.URL, func(match string) string {
		name := pathParamPattern.FindStringSubmatch(match)[1]
		if v, ok := remaining[name]; ok {
			delete(remaining, name)
			return url.PathEscape(fmt.Sprint(v))
		}
		return match
	})

	var headerFieldSet map[string]bool
	if len(fields.HeaderFields) > 0 {
		headerFieldSet = make(map[string]bool, len(fields.HeaderFields))
		for _, h := range fields.HeaderFields {
			headerFieldSet[h] = true
		}
	}

	headerValues := make(map[string]string)
	for name := range headerFieldSet {
		if v, ok := remaining[name]; ok {
			headerValues[name] = fmt.Sprint(v)
			delete(remaining, name)
		}
	}

	var bodyReader io.Reader
	var bodyContentType string
	if fields.BodyField != "" {
		if v, ok := remaining[fields.BodyField]; ok {
			delete(remaining, fields.BodyField)
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal body field %q: %w", fields.BodyField, err)
			}
			bodyReader = bytes.NewReader(b)
			bodyContentType = "application/json"
		}
	}

	method := string(fields.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL, bodyReader)
	if err != nil {
		return nil, err
	}

	if err := checkSecure(req.URL.String()); err != nil {
		return nil, err
	}

	for k, v := range fields.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headerValues {
		req.Header.Set(k, v)
	}
	if bodyContentType != "" {
		req.Header.Set("Content-Type", bodyContentType)
	} else if fields.ContentType != "" {
		req.Header.Set("Content-Type", fields.ContentType)
	}

	if len(remaining) > 0 {
		q := req.URL.Query()
		for k, v := range remaining {
			q.Set(k, fmt.Sprint(v))
		}
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

// decodeResponseBody parses body as JSON when contentType says so, else
// returns it as a raw string.
func decodeResponseBody(contentType string, body []byte) (any, error) {
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode json response: %w", err)
		}
		return v, nil
	}
	return string(body), nil
}

// isManualShape reports whether a decoded JSON document looks like a UTCP
// manual (top-level "tools" array) as opposed to an OpenAPI document.
func isManualShape(doc map[string]any) bool {
	_, ok := doc["tools"]
	return ok
}

// isOpenAPIShape reports whether a decoded JSON document looks like an
// OpenAPI document per spec §6's detection rule.
func isOpenAPIShape(doc map[string]any) bool {
	for _, key := range []string{"openapi", "swagger", "paths"} {
		if _, ok := doc[key]; ok {
			return true
		}
	}
	return false
}
