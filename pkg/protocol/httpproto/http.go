package httpproto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/protocol/httpproto/openapi"
	"goa.design/utcp/pkg/telemetry"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// HTTPProtocol implements protocol.Protocol for the "http" call-template
// kind: single-shot request/response, with UTCP-manual and OpenAPI
// discovery both supported.
type HTTPProtocol struct {
	client *http.Client
	cache  *tokenCache
	logger telemetry.Logger
}

// NewHTTPProtocol constructs an HTTPProtocol with a default per-call
// timeout (spec §5: 30s default, overridden per request via context).
func NewHTTPProtocol(logger telemetry.Logger) *HTTPProtocol {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &HTTPProtocol{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  newTokenCache(),
		logger: logger,
	}
}

// RegisterManual implements protocol.Protocol.
func (p *HTTPProtocol) RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.HTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *HTTPCallTemplate, got %T", template)
	}
	fields, err := fieldsOf(t)
	if err != nil {
		return nil, err
	}
	if err := checkSecure(fields.URL); err != nil {
		return nil, err
	}

	req, err := buildRequest(ctx, fields, map[string]any{})
	if err != nil {
		return nil, err
	}
	if err := applyAuth(ctx, req, fields.Auth, p.cache); err != nil {
		return failedRegistration(t, err), nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return failedRegistration(t, err), nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedRegistration(t, err), nil
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return failedRegistration(t, err), nil
	}

	var manual *utcptypes.Manual
	if isManualShape(doc) {
		manual = &utcptypes.Manual{}
		if err := manual.UnmarshalJSON(body); err != nil {
			return failedRegistration(t, err), nil
		}
	} else if isOpenAPIShape(doc) {
		base := baseURLFrom(fields.URL)
		manual, err = openapi.Convert(doc, base, t.AuthTools)
		if err != nil {
			return failedRegistration(t, err), nil
		}
	} else {
		return failedRegistration(t, fmt.Errorf("response is neither a UTCP manual nor an OpenAPI document")), nil
	}

	return &protocol.RegisterManualResult{Template: t, Manual: manual, Success: true}, nil
}

func failedRegistration(t utcptypes.CallTemplate, err error) *protocol.RegisterManualResult {
	return &protocol.RegisterManualResult{
		Template: t,
		Manual:   &utcptypes.Manual{UTCPVersion: utcptypes.UTCPVersion, Tools: []*utcptypes.Tool{}},
		Success:  false,
		Errors:   []string{err.Error()},
	}
}

func baseURLFrom(operationURL string) string {
	u, err := url.Parse(operationURL)
	if err != nil {
		return ""
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}

// DeregisterManual implements protocol.Protocol. The HTTP protocol holds no
// per-manual resource beyond the token cache, which is shared by client_id
// rather than by manual.
func (p *HTTPProtocol) DeregisterManual(_ context.Context, _ utcptypes.CallTemplate) error {
	return nil
}

// CallTool implements protocol.Protocol.
func (p *HTTPProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.HTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *HTTPCallTemplate, got %T", template)
	}
	fields, err := fieldsOf(t)
	if err != nil {
		return nil, err
	}
	req, err := buildRequest(ctx, fields, args)
	if err != nil {
		return nil, err
	}
	if err := applyAuth(ctx, req, fields.Auth, p.cache); err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	result, err := decodeResponseBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	return result, nil
}

// CallToolStreaming implements protocol.Protocol. The plain http protocol
// has no chunked semantics of its own; it yields the single complete result
// as one chunk.
func (p *HTTPProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
	ch := make(chan protocol.StreamChunk, 1)
	result, err := p.CallTool(ctx, toolName, args, template)
	if err != nil {
		ch <- protocol.StreamChunk{Err: err}
	} else {
		ch <- protocol.StreamChunk{Data: result}
	}
	close(ch)
	return ch, nil
}

// Close implements protocol.Protocol.
func (p *HTTPProtocol) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
