// Package directproto implements protocol.Protocol for the "direct-call"
// call-template kind: in-process callables registered by name, for
// embedding native Go functions as tools without any transport.
package directproto

import (
	"context"
	"fmt"
	"sync"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// Callable is a process-local function invocable as a direct-call tool.
type Callable func(ctx context.Context, args map[string]any) (any, error)

// DirectProtocol implements protocol.Protocol for the "direct-call" kind.
// Callables are registered by the embedding application with
// RegisterCallable, before or after client startup (there is no discovery
// step for this protocol).
type DirectProtocol struct {
	mu        sync.RWMutex
	callables map[string]Callable
}

// NewDirectProtocol constructs an empty DirectProtocol.
func NewDirectProtocol() *DirectProtocol {
	return &DirectProtocol{callables: make(map[string]Callable)}
}

// RegisterCallable installs fn under name. Re-registering a name overwrites
// the previous callable.
func (p *DirectProtocol) RegisterCallable(name string, fn Callable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callables[name] = fn
}

// RegisterManual implements protocol.Protocol. direct-call manuals carry no
// discoverable tool list of their own; the caller is expected to register
// tools directly into the repository alongside RegisterCallable.
func (p *DirectProtocol) RegisterManual(_ context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.DirectCallTemplate)
	if !ok {
		return nil, fmt.Errorf("directproto: expected *DirectCallTemplate, got %T", template)
	}
	return &protocol.RegisterManualResult{
		Template: t,
		Manual:   &utcptypes.Manual{UTCPVersion: utcptypes.UTCPVersion, Tools: []*utcptypes.Tool{}},
		Success:  true,
	}, nil
}

// DeregisterManual implements protocol.Protocol.
func (p *DirectProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error { return nil }

// CallTool implements protocol.Protocol by invoking the registered callable
// named by the template's callable_name.
func (p *DirectProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.DirectCallTemplate)
	if !ok {
		return nil, fmt.Errorf("directproto: expected *DirectCallTemplate, got %T", template)
	}
	p.mu.RLock()
	fn, ok := p.callables[t.CallableName]
	p.mu.RUnlock()
	if !ok {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: fmt.Errorf("no callable registered under %q", t.CallableName)}
	}
	result, err := fn(ctx, args)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	return result, nil
}

// CallToolStreaming implements protocol.Protocol by yielding CallTool's
// result as a single chunk.
func (p *DirectProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
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
func (p *DirectProtocol) Close(context.Context) error { return nil }
