package httpproto

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// StreamableHTTPProtocol implements protocol.Protocol for the
// "streamable_http" call-template kind: the response body is consumed as a
// sequence of chunks in receipt order (spec §4.7).
type StreamableHTTPProtocol struct {
	client *http.Client
	cache  *tokenCache
}

// NewStreamableHTTPProtocol constructs a StreamableHTTPProtocol.
func NewStreamableHTTPProtocol() *StreamableHTTPProtocol {
	return &StreamableHTTPProtocol{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  newTokenCache(),
	}
}

// RegisterManual implements protocol.Protocol: the discovery response is
// streamed, its chunks are concatenated, and the result is parsed as a UTCP
// manual. Unlike the plain http protocol, OpenAPI documents are not
// converted.
func (p *StreamableHTTPProtocol) RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.StreamableHTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *StreamableHTTPCallTemplate, got %T", template)
	}
	chunks, err := p.callStreaming(ctx, "registerManual", t, map[string]any{})
	if err != nil {
		return failedRegistration(t, err), nil
	}
	var buf bytes.Buffer
	for c := range chunks {
		if c.Err != nil {
			return failedRegistration(t, c.Err), nil
		}
		if s, ok := c.Data.(string); ok {
			buf.WriteString(s)
		}
	}
	manual := &utcptypes.Manual{}
	if err := manual.UnmarshalJSON(buf.Bytes()); err != nil {
		return failedRegistration(t, err), nil
	}
	return &protocol.RegisterManualResult{Template: t, Manual: manual, Success: true}, nil
}

// DeregisterManual implements protocol.Protocol.
func (p *StreamableHTTPProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error {
	return nil
}

func (p *StreamableHTTPProtocol) callStreaming(ctx context.Context, toolName string, t *utcptypes.StreamableHTTPCallTemplate, args map[string]any) (<-chan protocol.StreamChunk, error) {
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

	chunkSize := t.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	ch := make(chan protocol.StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		buf := make([]byte, chunkSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case ch <- protocol.StreamChunk{Data: string(chunk)}:
				case <-ctx.Done():
					ch <- protocol.StreamChunk{Err: &utcperr.TimeoutError{Scope: "streamable_http call"}}
					return
				}
			}
			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				ch <- protocol.StreamChunk{Err: &utcperr.ProtocolCallFailedError{Tool: toolName, Err: readErr}}
				return
			}
		}
	}()
	return ch, nil
}

// CallTool implements protocol.Protocol as the concatenation of every
// chunk yielded by CallToolStreaming.
func (p *StreamableHTTPProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.StreamableHTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *StreamableHTTPCallTemplate, got %T", template)
	}
	chunks, err := p.callStreaming(ctx, toolName, t, args)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for c := range chunks {
		if c.Err != nil {
			return nil, c.Err
		}
		if s, ok := c.Data.(string); ok {
			buf.WriteString(s)
		}
	}
	return buf.String(), nil
}

// CallToolStreaming implements protocol.Protocol.
func (p *StreamableHTTPProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
	t, ok := template.(*utcptypes.StreamableHTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *StreamableHTTPCallTemplate, got %T", template)
	}
	return p.callStreaming(ctx, toolName, t, args)
}

// Close implements protocol.Protocol.
func (p *StreamableHTTPProtocol) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
