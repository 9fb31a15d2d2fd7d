// Package textproto implements protocol.Protocol for the "text" call-
// template kind: a manual or static tool response loaded from a local file
// and/or inline content, with content taking precedence when both are set
// (spec §3/§4).
package textproto

import (
	"context"
	"fmt"
	"os"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// TextProtocol implements protocol.Protocol for the "text" kind.
type TextProtocol struct{}

// NewTextProtocol constructs a TextProtocol.
func NewTextProtocol() *TextProtocol { return &TextProtocol{} }

func read(t *utcptypes.TextCallTemplate) (string, error) {
	if t.Content != "" {
		return t.Content, nil
	}
	if t.FilePath == "" {
		return "", fmt.Errorf("textproto: neither content nor file_path is set")
	}
	b, err := os.ReadFile(t.FilePath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RegisterManual implements protocol.Protocol: the file/content is parsed
// as a UTCP manual.
func (p *TextProtocol) RegisterManual(_ context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.TextCallTemplate)
	if !ok {
		return nil, fmt.Errorf("textproto: expected *TextCallTemplate, got %T", template)
	}
	text, err := read(t)
	if err != nil {
		return failedRegistration(t, err), nil
	}
	manual := &utcptypes.Manual{}
	if err := manual.UnmarshalJSON([]byte(text)); err != nil {
		return failedRegistration(t, err), nil
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

// DeregisterManual implements protocol.Protocol.
func (p *TextProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error { return nil }

// CallTool implements protocol.Protocol: the tool's own static response is
// the file/content text, returned as a string without parsing.
func (p *TextProtocol) CallTool(_ context.Context, toolName string, _ map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.TextCallTemplate)
	if !ok {
		return nil, fmt.Errorf("textproto: expected *TextCallTemplate, got %T", template)
	}
	text, err := read(t)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	return text, nil
}

// CallToolStreaming implements protocol.Protocol by yielding the static
// response as a single chunk.
func (p *TextProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
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
func (p *TextProtocol) Close(context.Context) error { return nil }
